// Package wav writes rendered audio to 16-bit mono WAV files.
package wav

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const bitDepth = 16

// Writer is an audio.Sink that encodes samples into a WAV stream. Samples
// outside [-1, 1] are clipped.
type Writer struct {
	enc    *gowav.Encoder
	buf    *goaudio.IntBuffer
	closer io.Closer // the file opened by Create, if any
}

// New writes a WAV stream to w. The header is finalized on Close, which is
// why w must be seekable.
func New(w io.WriteSeeker, sampleRate int) *Writer {
	return &Writer{
		enc: gowav.NewEncoder(w, sampleRate, bitDepth, 1, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
	}
}

// Create opens path for writing and returns a Writer on it.
func Create(path string, sampleRate int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}
	w := New(f, sampleRate)
	w.closer = f
	return w, nil
}

// Write encodes one block of samples.
func (w *Writer) Write(samples []float32) error {
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		s = max(-1, min(1, s))
		w.buf.Data = append(w.buf.Data, int(s*32767))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
