package node

import (
	"math"
	"sync/atomic"
)

// Knobs holds the live knob values of one compiled node. The editor writes
// with Set while the audio goroutine reads with Get; each read is a whole
// float64, never a torn value.
type Knobs struct {
	v []atomic.Uint64
}

// NewKnobs copies values into a new knob set.
func NewKnobs(values []float64) *Knobs {
	k := &Knobs{v: make([]atomic.Uint64, len(values))}
	for i, x := range values {
		k.v[i].Store(math.Float64bits(x))
	}
	return k
}

// Len returns the number of knobs.
func (k *Knobs) Len() int {
	return len(k.v)
}

// Get returns the current value of knob i.
func (k *Knobs) Get(i int) float64 {
	return math.Float64frombits(k.v[i].Load())
}

// Set stores a new value for knob i.
func (k *Knobs) Set(i int, x float64) {
	k.v[i].Store(math.Float64bits(x))
}

// Values returns a snapshot of every knob.
func (k *Knobs) Values() []float64 {
	out := make([]float64, len(k.v))
	for i := range k.v {
		out[i] = k.Get(i)
	}
	return out
}
