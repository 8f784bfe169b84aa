//go:build !headless

package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/patchbay/pkg/audio"
	ebioto "github.com/ebitengine/oto/v3"
)

// Player streams blocks to the audio device.
type Player struct {
	ctx    *ebioto.Context
	player *ebioto.Player

	mu      sync.Mutex // setup and control only, never the read path
	started bool
}

// New opens the default device for mono float32 output at sampleRate and
// prepares a player that renders blockSize samples at a time with fill.
// Only one Player may exist per process.
func New(sampleRate, blockSize int, fill audio.BlockFunc) (*Player, error) {
	ctx, ready, err := ebioto.NewContext(&ebioto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       ebioto.FormatFloat32LE,
		BufferSize:   2 * time.Duration(blockSize) * time.Second / time.Duration(sampleRate),
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(newStream(blockSize, fill)),
	}, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("close audio player: %w", err)
	}
	return nil
}
