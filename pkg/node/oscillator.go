package node

import (
	"math"

	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// oscillator generates noise, sine, square or saw. phase is measured in
// cycles and advances by the per-sample frequency, so a frequency step
// rescales the running phase instead of restarting it.
type oscillator struct {
	cfg   Config
	knobs *Knobs
	phase float64
	omega float64 // cycles per sample at the last processed sample
	on    bool    // gate state at the previous block boundary
}

func newOscillator(cfg Config, knobs *Knobs) *oscillator {
	return &oscillator{cfg: cfg, knobs: knobs}
}

func (o *oscillator) update(in, out []signal.Buffer) {
	sync, freq, y := in[0], in[1], out[0]
	shape := graph.Shape(math.Round(o.knobs.Get(graph.ShapeKnob)))

	if shape == graph.ShapeNoise {
		for i := range y {
			y[i] = float32(o.cfg.Rand.Float64()*2 - 1)
		}
		return
	}

	gate := len(sync) > 0 && sync[0] > 0.5
	if gate && !o.on {
		o.phase = 0
	}
	o.on = gate

	for i := range y {
		o.omega = float64(freq[i]) / o.cfg.SampleRate
		_, frac := math.Modf(o.phase)
		if frac < 0 {
			frac++
		}

		switch shape {
		case graph.ShapeSine:
			y[i] = float32(math.Sin(2 * math.Pi * frac))
		case graph.ShapeSquare:
			if frac < 0.5 {
				y[i] = 1
			} else {
				y[i] = -1
			}
		default:
			y[i] = float32(1 - 2*frac)
		}

		o.phase = frac + o.omega
	}
}
