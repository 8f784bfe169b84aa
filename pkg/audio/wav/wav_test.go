package wav

import (
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"
)

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := Create(path, 22050)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for range 3 {
		if err := w.Write([]float32{0, 0.5, -0.5, 2, -2}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	dec := gowav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if buf.Format.SampleRate != 22050 || buf.Format.NumChannels != 1 {
		t.Errorf("format = %+v, want 22050 Hz mono", buf.Format)
	}
	if len(buf.Data) != 15 {
		t.Fatalf("got %d samples, want 15", len(buf.Data))
	}
	want := []int{0, 16383, -16383, 32767, -32767}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], v)
		}
	}
}

func TestCreateBadPath(t *testing.T) {
	if _, err := Create(filepath.Join(t.TempDir(), "missing", "out.wav"), 44100); err == nil {
		t.Error("expected error for missing directory")
	}
}
