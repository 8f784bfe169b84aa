package control

import (
	"errors"
	"io"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ReadMIDI reads a raw MIDI byte stream, such as a /dev/snd/midi* device,
// and passes each complete message to fn. Running status is honoured.
// System exclusive, time code and active sensing are dropped; other
// real-time messages are passed through. It returns nil at EOF.
func ReadMIDI(r io.Reader, fn func(midi.Message)) error {
	rd := drivers.NewReader(drivers.ListenConfig{}, func(msg []byte, _ int32) {
		fn(midi.Message(slices.Clone(msg)))
	})

	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			rd.EachMessage(buf[:n], 0)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
