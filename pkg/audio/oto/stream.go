// Package oto plays a running instrument on the default audio device. The
// device pulls float32 samples; each time the current block is used up the
// next one is rendered with the player's BlockFunc.
//
// Build with the headless tag to replace the device with a silent stub.
package oto

import (
	"encoding/binary"
	"math"

	"github.com/chazu/patchbay/pkg/audio"
)

// stream adapts a BlockFunc to the io.Reader the device pulls from.
type stream struct {
	fill  audio.BlockFunc
	block []float32
	pos   int
}

func newStream(blockSize int, fill audio.BlockFunc) *stream {
	s := &stream{fill: fill, block: make([]float32, blockSize)}
	s.pos = len(s.block)
	return s
}

// Read fills p with whole little-endian float32 samples.
func (s *stream) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := range n {
		if s.pos == len(s.block) {
			s.fill(s.block)
			s.pos = 0
		}
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(s.block[s.pos]))
		s.pos++
	}
	return 4 * n, nil
}
