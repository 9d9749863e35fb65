package backend

import (
	"fmt"
	"strings"
)

type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
	Custom
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Custom:
		return "custom"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// ParseWaveform accepts the lower-case names returned by String.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine":
		return Sine, nil
	case "triangle":
		return Triangle, nil
	case "square":
		return Square, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "custom":
		return Custom, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}

type FilterKind int

const (
	Lowpass FilterKind = iota
	Highpass
)

func (k FilterKind) String() string {
	switch k {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	}
	return fmt.Sprintf("filter(%d)", int(k))
}

func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lowpass":
		return Lowpass, nil
	case "highpass":
		return Highpass, nil
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}
