// Package render drives a processor block by block: it fills the control
// signals from a voice, runs the instrument and hands the output to a sink
// or to a real-time player.
package render

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chazu/patchbay/pkg/audio"
	"github.com/chazu/patchbay/pkg/control"
	"github.com/chazu/patchbay/pkg/signal"
)

// Processor runs one block. *compile.Instrument and *session.Session both
// satisfy it.
type Processor interface {
	Process(sync, freq, out signal.Buffer)
}

// Options configure an offline render.
type Options struct {
	SampleRate float64
	BlockSize  int
	Duration   time.Duration // rendered length, rounded up to whole blocks
}

// Stats summarizes a render.
type Stats struct {
	Blocks  int
	Samples int
	Peak    float32
}

// Offline renders opts.Duration of audio into sink. Score events are applied
// at block granularity: an event anywhere inside a block takes effect for the
// whole block. score may be nil. The sink is not closed.
func Offline(ctx context.Context, p Processor, v *control.Voice, score *control.Score, sink audio.Sink, opts Options) (Stats, error) {
	var st Stats
	if opts.BlockSize <= 0 || !(opts.SampleRate > 0) {
		return st, fmt.Errorf("render: invalid block size %d or sample rate %g", opts.BlockSize, opts.SampleRate)
	}

	samples := opts.Duration.Seconds() * opts.SampleRate
	blocks := int(math.Ceil(samples/float64(opts.BlockSize) - 1e-9))
	blockDur := time.Duration(float64(opts.BlockSize) / opts.SampleRate * float64(time.Second))

	sync := signal.New(opts.BlockSize)
	freq := signal.New(opts.BlockSize)
	out := signal.New(opts.BlockSize)

	for k := range blocks {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if score != nil {
			score.Advance(v, time.Duration(k+1)*blockDur)
		}
		v.Fill(sync, freq)
		p.Process(sync, freq, out)
		if err := sink.Write(out); err != nil {
			return st, fmt.Errorf("render block %d: %w", k, err)
		}
		st.Blocks++
		st.Samples += len(out)
		st.Peak = max(st.Peak, signal.Peak(out))
	}
	return st, nil
}

// Live returns a BlockFunc for a real-time player. The control buffers are
// allocated once here; the returned function does not allocate.
func Live(p Processor, v *control.Voice, blockSize int) audio.BlockFunc {
	sync := signal.New(blockSize)
	freq := signal.New(blockSize)
	return func(out []float32) {
		v.Fill(sync, freq)
		p.Process(sync, freq, out)
	}
}
