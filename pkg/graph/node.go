package graph

import "fmt"

// Kind enumerates the node types an instrument can contain. The set is
// fixed; every kind has exactly one Descriptor.
type Kind int

const (
	KindMixer      Kind = iota // sums its inputs
	KindGain                   // scalar multiply
	KindOscillator             // noise/sine/square/saw source
	KindEnvelope               // ADSR amplitude shaper
	KindFilter                 // resonant low-pass biquad
)

func (k Kind) String() string {
	switch k {
	case KindMixer:
		return "mixer"
	case KindGain:
		return "gain"
	case KindOscillator:
		return "oscillator"
	case KindEnvelope:
		return "envelope"
	case KindFilter:
		return "filter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is a registered kind.
func (k Kind) Valid() bool {
	return k >= KindMixer && k <= KindFilter
}

// ParseKind converts a kind name back into a Kind. Unlike Describe, it
// returns an error rather than panicking because its input comes from
// files and user source.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NodeInstance is one node placed in an instrument. Knobs[i] corresponds
// positionally to Describe(Kind).Knobs[i].
type NodeInstance struct {
	Kind  Kind      `json:"kind"`
	Knobs []float64 `json:"knobs"`
}

// NewNodeInstance returns an instance of kind with every knob at its default.
func NewNodeInstance(kind Kind) NodeInstance {
	return NodeInstance{Kind: kind, Knobs: DefaultKnobs(kind)}
}
