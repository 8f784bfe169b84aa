package graph

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Knobs
// ---------------------------------------------------------------------------

// KnobDescriptor describes one bounded scalar parameter of a node kind.
type KnobDescriptor struct {
	Label       string  `json:"label"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Default     float64 `json:"default"`
	Logarithmic bool    `json:"logarithmic,omitempty"` // control position maps exponentially
	Integral    bool    `json:"integral,omitempty"`    // only whole values are meaningful
}

// Clamp limits v to [Lower, Upper], rounding integral knobs.
func (k KnobDescriptor) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return k.Default
	}
	if k.Integral {
		v = math.Round(v)
	}
	return math.Max(k.Lower, math.Min(k.Upper, v))
}

// Contains reports whether v lies within the knob bounds.
func (k KnobDescriptor) Contains(v float64) bool {
	return v >= k.Lower && v <= k.Upper
}

// Normalize maps a knob value to a control position in [0,1].
func (k KnobDescriptor) Normalize(v float64) float64 {
	if k.Upper == k.Lower {
		return 0
	}
	v = k.Clamp(v)
	if k.Logarithmic && k.Lower > 0 {
		return (math.Log(v) - math.Log(k.Lower)) / (math.Log(k.Upper) - math.Log(k.Lower))
	}
	return (v - k.Lower) / (k.Upper - k.Lower)
}

// Denormalize maps a control position in [0,1] back to a knob value.
func (k KnobDescriptor) Denormalize(pos float64) float64 {
	pos = math.Max(0, math.Min(1, pos))
	var v float64
	if k.Logarithmic && k.Lower > 0 {
		v = math.Exp(math.Log(k.Lower) + pos*(math.Log(k.Upper)-math.Log(k.Lower)))
	} else {
		v = k.Lower + pos*(k.Upper-k.Lower)
	}
	return k.Clamp(v)
}

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// Descriptor is the static metadata of a node kind: its input and output
// slot names and its knobs. Descriptors are never mutated.
type Descriptor struct {
	Inputs  []string         `json:"inputs"`
	Outputs []string         `json:"outputs"`
	Knobs   []KnobDescriptor `json:"knobs"`
}

// InputIndex returns the slot index of the named input, or -1.
func (d Descriptor) InputIndex(name string) int {
	return indexOf(d.Inputs, name)
}

// OutputIndex returns the slot index of the named output, or -1.
func (d Descriptor) OutputIndex(name string) int {
	return indexOf(d.Outputs, name)
}

// KnobIndex returns the index of the knob with the given label, or -1.
func (d Descriptor) KnobIndex(label string) int {
	for i, k := range d.Knobs {
		if k.Label == label {
			return i
		}
	}
	return -1
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Shape selects the oscillator waveform. It is stored in the oscillator's
// shape knob.
type Shape int

const (
	ShapeNoise Shape = iota
	ShapeSine
	ShapeSquare
	ShapeSaw
)

func (s Shape) String() string {
	switch s {
	case ShapeNoise:
		return "noise"
	case ShapeSine:
		return "sine"
	case ShapeSquare:
		return "square"
	case ShapeSaw:
		return "saw"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape converts a shape name into a Shape.
func ParseShape(s string) (Shape, error) {
	for sh := ShapeNoise; sh <= ShapeSaw; sh++ {
		if sh.String() == s {
			return sh, nil
		}
	}
	return 0, fmt.Errorf("unknown oscillator shape %q, expected noise, sine, square or saw", s)
}

// Knob indices, by kind.
const (
	GainKnob = 0

	ShapeKnob = 0

	AttackKnob  = 0
	DecayKnob   = 1
	SustainKnob = 2
	ReleaseKnob = 3

	CutoffKnob    = 0
	BandwidthKnob = 1
)

var registry = map[Kind]Descriptor{
	KindMixer: {
		Inputs:  []string{"a", "b", "c", "d"},
		Outputs: []string{"output"},
	},
	KindGain: {
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Knobs: []KnobDescriptor{
			{Label: "gain", Lower: -2, Upper: 2, Default: 1},
		},
	},
	KindOscillator: {
		Inputs:  []string{"sync", "frequency"},
		Outputs: []string{"output"},
		Knobs: []KnobDescriptor{
			{Label: "shape", Lower: 0, Upper: 3, Default: float64(ShapeSine), Integral: true},
		},
	},
	KindEnvelope: {
		Inputs:  []string{"sync", "input"},
		Outputs: []string{"output"},
		Knobs: []KnobDescriptor{
			{Label: "attack", Lower: 0, Upper: 1, Default: 0.03},
			{Label: "decay", Lower: 0, Upper: 1, Default: 0.2},
			{Label: "sustain", Lower: 0, Upper: 1, Default: 0.5},
			{Label: "release", Lower: 0, Upper: 1, Default: 0.2},
		},
	},
	KindFilter: {
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Knobs: []KnobDescriptor{
			{Label: "cutoff", Lower: 1, Upper: 20000, Default: 200, Logarithmic: true},
			{Label: "bandwidth", Lower: 0, Upper: 10, Default: 1},
		},
	},
}

// Describe returns the descriptor for kind. An unregistered kind is a
// programming error and panics.
func Describe(kind Kind) Descriptor {
	d, ok := registry[kind]
	if !ok {
		panic(fmt.Sprintf("graph: invalid node kind %d", int(kind)))
	}
	return d
}

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindMixer, KindGain, KindOscillator, KindEnvelope, KindFilter}
}

// DefaultKnobs returns a fresh slice of kind's default knob values.
func DefaultKnobs(kind Kind) []float64 {
	d := Describe(kind)
	values := make([]float64, len(d.Knobs))
	for i, k := range d.Knobs {
		values[i] = k.Default
	}
	return values
}

// Input endpoint slots and their names.
const (
	SyncSlot      = 0
	FrequencySlot = 1
)

// InputDescriptor describes the virtual input endpoint: it only has outputs.
func InputDescriptor() Descriptor {
	return Descriptor{Outputs: []string{"sync", "frequency"}}
}

// OutputDescriptor describes the virtual output endpoint: a single input.
func OutputDescriptor() Descriptor {
	return Descriptor{Inputs: []string{"output"}}
}
