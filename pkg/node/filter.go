package node

import (
	"math"

	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// filter is an RBJ cookbook low-pass biquad. State is kept per sample in
// float64, so splitting a block in two does not change the output.
type filter struct {
	cfg   Config
	knobs *Knobs

	x1, x2 float64
	y1, y2 float64
}

func newFilter(cfg Config, knobs *Knobs) *filter {
	return &filter{cfg: cfg, knobs: knobs}
}

const (
	// minBandwidth keeps the poles off the unit circle at bandwidth 0.
	minBandwidth = 0.1
	// maxAlpha bounds the pole radius away from zero near Nyquist, where
	// sin(w) is tiny and the bandwidth term explodes.
	maxAlpha = 10
)

// lowpass returns the normalized coefficients b0, b1, b2, a1, a2 for the
// given cutoff and bandwidth in octaves.
func lowpass(sampleRate, cutoff, bandwidth float64) (b0, b1, b2, a1, a2 float64) {
	cutoff = max(cutoff, 1)
	cutoff = min(cutoff, 0.49*sampleRate)
	bandwidth = max(bandwidth, minBandwidth)

	w := 2 * math.Pi * cutoff / sampleRate
	sn, cs := math.Sin(w), math.Cos(w)
	alpha := min(sn*math.Sinh(math.Ln2/2*bandwidth*w/sn), maxAlpha)

	a0 := 1 + alpha
	b0 = (1 - cs) / 2 / a0
	b1 = (1 - cs) / a0
	b2 = b0
	a1 = -2 * cs / a0
	a2 = (1 - alpha) / a0
	return b0, b1, b2, a1, a2
}

func (f *filter) update(in, out []signal.Buffer) {
	x, y := in[0], out[0]
	b0, b1, b2, a1, a2 := lowpass(f.cfg.SampleRate,
		f.knobs.Get(graph.CutoffKnob), f.knobs.Get(graph.BandwidthKnob))

	for i := range y {
		xi := float64(x[i])
		yi := b0*xi + b1*f.x1 + b2*f.x2 - a1*f.y1 - a2*f.y2
		f.x2, f.x1 = f.x1, xi
		f.y2, f.y1 = f.y1, yi
		y[i] = float32(yi)
	}
}
