package main

import (
	"bufio"
	"io"

	"gitlab.com/gomidi/midi/v2"
)

// midiStream frames a raw MIDI byte stream, such as a character device,
// into channel messages. Running status is honoured; system exclusive and
// real-time bytes are skipped.
type midiStream struct {
	r      *bufio.Reader
	status byte
}

func newMIDIStream(r io.Reader) *midiStream {
	return &midiStream{r: bufio.NewReader(r)}
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	}
	switch status {
	case 0xF1, 0xF3:
		return 1
	case 0xF2:
		return 2
	}
	return 0
}

// Next returns the next complete channel or system common message.
func (s *midiStream) Next() (midi.Message, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch {
		case b >= 0xF8:
			continue
		case b == 0xF0:
			if err := s.skipSysEx(); err != nil {
				return nil, err
			}
			s.status = 0
			continue
		case b&0x80 != 0:
			if b >= 0xF0 {
				// System common messages cancel running status.
				s.status = 0
				if _, err := s.readData(dataLen(b)); err != nil {
					return nil, err
				}
				continue
			}
			s.status = b
			data, err := s.readData(dataLen(b))
			if err != nil {
				return nil, err
			}
			return append(midi.Message{b}, data...), nil
		default:
			if s.status == 0 {
				continue
			}
			n := dataLen(s.status)
			msg := midi.Message{s.status, b}
			if n == 2 {
				rest, err := s.readData(1)
				if err != nil {
					return nil, err
				}
				msg = append(msg, rest...)
			}
			return msg, nil
		}
	}
}

func (s *midiStream) readData(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b >= 0xF8 {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *midiStream) skipSysEx() error {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xF7 {
			return nil
		}
	}
}
