package control

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event is a note start or end at a point in time.
type Event struct {
	At  time.Duration
	Key uint8
	On  bool
}

// Score is a time-ordered list of note events played into a Voice during an
// offline render. Events at the same instant apply note ends first, so a
// note followed directly by another plays legato.
type Score struct {
	events []Event
	length time.Duration
	next   int
}

// NewScore sorts events by time and returns a score positioned at the start.
func NewScore(events ...Event) *Score {
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.At, b.At); c != 0 {
			return c
		}
		switch {
		case a.On == b.On:
			return 0
		case !a.On:
			return -1
		}
		return 1
	})
	s := &Score{events: events}
	if len(events) > 0 {
		s.length = events[len(events)-1].At
	}
	return s
}

// Hold plays one note from time zero for d.
func Hold(key uint8, d time.Duration) *Score {
	return NewScore(Event{At: 0, Key: key, On: true}, Event{At: d, Key: key, On: false})
}

// ParseMelody reads a space-separated list of note:duration steps, for
// example "C4:250ms E4:250ms G4:500ms r:1s". A step named r is a rest.
func ParseMelody(s string) (*Score, error) {
	var events []Event
	var at time.Duration
	for _, step := range strings.Fields(s) {
		name, length, ok := strings.Cut(step, ":")
		if !ok {
			return nil, fmt.Errorf("melody step %q: want note:duration", step)
		}
		d, err := time.ParseDuration(length)
		if err != nil {
			return nil, fmt.Errorf("melody step %q: %w", step, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("melody step %q: duration must be positive", step)
		}
		if name != "r" {
			key, err := ParseNote(name)
			if err != nil {
				return nil, fmt.Errorf("melody step %q: %w", step, err)
			}
			events = append(events, Event{At: at, Key: key, On: true}, Event{At: at + d, Key: key, On: false})
		}
		at += d
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("melody has no notes")
	}
	score := NewScore(events...)
	score.length = at
	return score, nil
}

// Advance applies every pending event before until to v.
func (s *Score) Advance(v *Voice, until time.Duration) {
	for s.next < len(s.events) && s.events[s.next].At < until {
		e := s.events[s.next]
		if e.On {
			v.NoteOn(e.Key)
		} else {
			v.NoteOff(e.Key)
		}
		s.next++
	}
}

// Done reports whether every event has been applied.
func (s *Score) Done() bool {
	return s.next >= len(s.events)
}

// Duration returns the length of the score: the time of its last event, or
// the end of a trailing rest.
func (s *Score) Duration() time.Duration {
	return s.length
}

// Pad extends the score by d of silence after its last event.
func (s *Score) Pad(d time.Duration) {
	if d > 0 {
		s.length += d
	}
}

// Reset rewinds the score to the start.
func (s *Score) Reset() {
	s.next = 0
}
