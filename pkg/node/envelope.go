package node

import (
	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// DeclickTime is how long after a stage transition the envelope blends from
// the amplitude it had at the transition instant, in seconds.
const DeclickTime = 0.003

// envelope is a gated ADSR amplitude envelope applied to its input.
type envelope struct {
	cfg   Config
	knobs *Knobs

	t         int64 // samples since the last stage transition
	on        bool  // attack, decay or sustain
	releasing bool
	from      float64 // amplitude at the last transition
	last      float64 // amplitude of the previous sample
}

func newEnvelope(cfg Config, knobs *Knobs) *envelope {
	return &envelope{cfg: cfg, knobs: knobs}
}

func (e *envelope) update(in, out []signal.Buffer) {
	sync, x, y := in[0], in[1], out[0]
	attack := e.knobs.Get(graph.AttackKnob)
	decay := e.knobs.Get(graph.DecayKnob)
	sustain := e.knobs.Get(graph.SustainKnob)
	release := e.knobs.Get(graph.ReleaseKnob)
	sr := e.cfg.SampleRate

	if len(sync) > 0 {
		switch gate := sync[0]; {
		case gate > 0.5 && !e.on:
			e.on, e.releasing = true, false
			e.from, e.t = e.last, 0
		case gate < 0.5 && e.on:
			e.on, e.releasing = false, true
			e.from, e.t = e.last, 0
		}
	}

	for i := range y {
		ts := float64(e.t) / sr
		e.t++

		var amp float64
		switch {
		case e.on:
			amp = sustain
			if ts < attack {
				amp = ts / attack
			} else if ts < attack+decay {
				amp = 1 + (ts-attack)/decay*(sustain-1)
			}
		case e.releasing:
			if ts < release {
				amp = sustain * (1 - ts/release)
			}
		}
		if (e.on || e.releasing) && ts < DeclickTime {
			w := ts / DeclickTime
			amp = e.from + (amp-e.from)*w
		}

		y[i] = float32(amp) * x[i]
		e.last = amp
	}

	if e.releasing {
		ts := float64(e.t) / sr
		if ts > release && ts >= DeclickTime {
			e.releasing = false
		}
	}
}
