// Package audio defines the boundary between a running instrument and the
// outside world: sinks that consume rendered blocks and block sources that
// real-time players pull from.
package audio

// Sink consumes rendered mono samples.
type Sink interface {
	Write(samples []float32) error
	Close() error
}

// BlockFunc renders the next block into out. It is called from the audio
// device goroutine and must not block.
type BlockFunc func(out []float32)

// Discard is a Sink that drops everything written to it.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write([]float32) error { return nil }
func (discard) Close() error          { return nil }
