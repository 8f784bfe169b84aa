package control

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoteFrequency returns the equal-tempered pitch of a MIDI key, with key 69
// (A4) at 440 Hz.
func NoteFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote converts a note name such as "A4", "C#3" or "Bb2", or a bare
// MIDI key number, into a MIDI key. Octave 4 holds middle C (key 60).
func ParseNote(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("note %d out of range 0..127", n)
		}
		return uint8(n), nil
	}
	if s == "" {
		return 0, fmt.Errorf("empty note")
	}

	pc, ok := pitchClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note %q", s)
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		pc++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		pc--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", s)
	}
	key := (octave+1)*12 + pc
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return uint8(key), nil
}
