//go:build headless

package oto

import (
	"sync"
	"time"

	"github.com/chazu/patchbay/pkg/audio"
)

// Player renders blocks in real time and throws them away.
type Player struct {
	stream    *stream
	blockSize int
	period    time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New returns a silent player that pulls one block per block period.
func New(sampleRate, blockSize int, fill audio.BlockFunc) (*Player, error) {
	return &Player{
		stream:    newStream(blockSize, fill),
		blockSize: blockSize,
		period:    time.Duration(blockSize) * time.Second / time.Duration(sampleRate),
	}, nil
}

// Start begins pulling blocks.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return
	}
	p.stop, p.done = make(chan struct{}), make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		buf := make([]byte, 4*p.blockSize)
		ticker := time.NewTicker(p.period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.stream.Read(buf)
			}
		}
	}(p.stop, p.done)
}

// Close stops pulling blocks.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		<-p.done
		p.stop = nil
	}
	return nil
}
