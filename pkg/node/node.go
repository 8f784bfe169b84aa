// Package node implements the per-block transfer functions of every node
// kind. A node is constructed once per compile and returns a stateful
// Update that is called once per block.
package node

import (
	"fmt"
	"math/rand/v2"

	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// Update processes one block. in and out are indexed by the slot order of
// the node's descriptor. Every output buffer is fully written on each call.
type Update func(in, out []signal.Buffer)

// Config carries the construction parameters shared by all nodes of one
// compiled instrument.
type Config struct {
	SampleRate float64
	Rand       *rand.Rand // noise source; nil uses a fixed seed
}

// Construct builds the transfer function for kind. An unregistered kind is a
// programming error and panics.
func Construct(kind graph.Kind, cfg Config, knobs *Knobs) Update {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(0, 0))
	}
	switch kind {
	case graph.KindMixer:
		return mixer
	case graph.KindGain:
		return newGain(knobs)
	case graph.KindOscillator:
		return newOscillator(cfg, knobs).update
	case graph.KindEnvelope:
		return newEnvelope(cfg, knobs).update
	case graph.KindFilter:
		return newFilter(cfg, knobs).update
	}
	panic(fmt.Sprintf("node: invalid node kind %d", int(kind)))
}

// mixer sums every input buffer.
func mixer(in, out []signal.Buffer) {
	y := out[0]
	if len(in) == 0 {
		signal.Zero(y)
		return
	}
	signal.Copy(y, in[0])
	for _, x := range in[1:] {
		for i := range y {
			y[i] += x[i]
		}
	}
}

func newGain(knobs *Knobs) Update {
	return func(in, out []signal.Buffer) {
		x, y := in[0], out[0]
		gain := float32(knobs.Get(graph.GainKnob))
		for i := range y {
			y[i] = gain * x[i]
		}
	}
}
