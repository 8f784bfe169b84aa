package control

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"gitlab.com/gomidi/midi/v2"
)

func TestReadMIDI(t *testing.T) {
	stream := []byte{
		0x90, 60, 100,          // note on
		64, 90,                 // running status note on
		0xF8,                   // clock inside the stream
		0xF0, 0x43, 0x10, 0xF7, // sysex
		0xC0, 5,                // program change
		0x80, 60, 0,            // note off
		0x90, 64,               // truncated
	}

	want := [][]byte{
		{0x90, 60, 100},
		{0x90, 64, 90},
		{0xC0, 5},
		{0x80, 60, 0},
	}
	var got []midi.Message
	err := ReadMIDI(bytes.NewReader(stream), func(m midi.Message) {
		// real-time and system messages are not channel voice data
		if len(m) > 0 && m[0] < 0xF0 {
			got = append(got, m)
		}
	})
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d = % X, want % X", i, []byte(got[i]), want[i])
		}
	}
}

func TestReadMIDIReturnsReadError(t *testing.T) {
	boom := errors.New("device gone")
	err := ReadMIDI(iotest.ErrReader(boom), func(midi.Message) {})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestReadMIDIDrivesVoice(t *testing.T) {
	v := NewVoice(DefaultFrequency)
	stream := []byte{0x91, 69, 80, 0x81, 69, 0}
	notes := 0
	ReadMIDI(bytes.NewReader(stream), func(m midi.Message) {
		if v.HandleMIDI(m) {
			notes++
		}
	})
	if notes != 2 || v.Gate() {
		t.Errorf("handled %d notes, gate %v; want 2 and closed", notes, v.Gate())
	}
}
