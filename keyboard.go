package main

import "strings"

// pianoKeys lays one octave plus the next C over the home row, with the
// black keys on the row above.
const pianoKeys = "awsedftgyhujk"

// keyboard turns single key presses into note events for the play command.
type keyboard struct {
	octave int // octave of the 'a' key, in scientific pitch notation
	held   int // sounding key, -1 when none
}

func newKeyboard() *keyboard {
	return &keyboard{octave: 4, held: -1}
}

// keyAction is what a key press asks the voice to do.
type keyAction int

const (
	actionNone keyAction = iota
	actionNoteOn
	actionNoteOff
	actionOctave
	actionReload
	actionQuit
)

// press handles one key. For note actions it also returns the MIDI key.
// Pressing the sounding key again releases it; space releases whatever is
// held.
func (k *keyboard) press(b byte) (keyAction, uint8) {
	switch b {
	case 'q', 3: // q, Ctrl-C
		return actionQuit, 0
	case 'r':
		return actionReload, 0
	case 'z':
		if k.octave > 0 {
			k.octave--
		}
		return actionOctave, 0
	case 'x':
		if k.octave < 8 {
			k.octave++
		}
		return actionOctave, 0
	case ' ':
		if k.held < 0 {
			return actionNone, 0
		}
		key := uint8(k.held)
		k.held = -1
		return actionNoteOff, key
	}

	semi := strings.IndexByte(pianoKeys, b)
	if semi < 0 {
		return actionNone, 0
	}
	key := 12*(k.octave+1) + semi
	if key > 127 {
		return actionNone, 0
	}
	if key == k.held {
		k.held = -1
		return actionNoteOff, uint8(key)
	}
	k.held = key
	return actionNoteOn, uint8(key)
}
