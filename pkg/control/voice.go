// Package control produces the block-level sync and frequency signals that
// drive a compiled instrument: a monophonic voice fed by note events from
// MIDI, the keyboard or a score.
package control

import (
	"math"
	"sync/atomic"

	"github.com/chazu/patchbay/pkg/signal"
	"gitlab.com/gomidi/midi/v2"
)

// DefaultFrequency is the pitch of a voice before any note arrives.
const DefaultFrequency = 440

// Voice holds a gate and a frequency. Note events may arrive on any
// goroutine; the audio goroutine reads them once per block with Fill.
type Voice struct {
	gate atomic.Bool
	freq atomic.Uint64 // float64 bits
	key  atomic.Int32  // sounding key, -1 when none
}

// NewVoice returns a voice with the gate closed at freq Hz.
func NewVoice(freq float64) *Voice {
	v := &Voice{}
	v.freq.Store(math.Float64bits(freq))
	v.key.Store(-1)
	return v
}

// NoteOn opens the gate at the pitch of key. The newest note wins.
func (v *Voice) NoteOn(key uint8) {
	v.freq.Store(math.Float64bits(NoteFrequency(key)))
	v.key.Store(int32(key))
	v.gate.Store(true)
}

// NoteOff closes the gate if key is the sounding note. Releasing a note that
// was already replaced by a newer one is ignored.
func (v *Voice) NoteOff(key uint8) {
	if v.key.CompareAndSwap(int32(key), -1) {
		v.gate.Store(false)
	}
}

// SetGate opens or closes the gate without changing the pitch.
func (v *Voice) SetGate(on bool) {
	if !on {
		v.key.Store(-1)
	}
	v.gate.Store(on)
}

// SetFrequency sets the pitch in Hz.
func (v *Voice) SetFrequency(hz float64) {
	v.freq.Store(math.Float64bits(hz))
}

// Gate reports whether the gate is open.
func (v *Voice) Gate() bool {
	return v.gate.Load()
}

// Frequency returns the current pitch in Hz.
func (v *Voice) Frequency() float64 {
	return math.Float64frombits(v.freq.Load())
}

// Fill writes one block of control signal. The gate is held for the whole
// block: 1 while open, 0 while closed.
func (v *Voice) Fill(sync, freq signal.Buffer) {
	var g float32
	if v.Gate() {
		g = 1
	}
	signal.Fill(sync, g)
	signal.Fill(freq, float32(v.Frequency()))
}

// HandleMIDI applies a note start or note end message and reports whether
// msg was one. A note on with velocity 0 counts as a note end. All channels
// are accepted.
func (v *Voice) HandleMIDI(msg midi.Message) bool {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		v.NoteOn(key)
		return true
	}
	if msg.GetNoteEnd(&ch, &key) {
		v.NoteOff(key)
		return true
	}
	return false
}
