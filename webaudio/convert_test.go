package webaudio

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
)

func TestOscillatorType(t *testing.T) {
	tests := []struct {
		w       backend.Waveform
		want    string
		wantErr bool
	}{
		{backend.Sine, "sine", false},
		{backend.Triangle, "triangle", false},
		{backend.Square, "square", false},
		{backend.Sawtooth, "sawtooth", false},
		{backend.Custom, "", true},
	}
	for _, tt := range tests {
		got, err := oscillatorType(tt.w)
		if tt.wantErr {
			if !errors.Is(err, backend.ErrInvalidConfig) {
				t.Fatalf("%v: expected ErrInvalidConfig, got %v", tt.w, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%v: got %q, %v; want %q", tt.w, got, err, tt.want)
		}
	}
}

func TestFilterType(t *testing.T) {
	if got, err := filterType(backend.Lowpass); err != nil || got != "lowpass" {
		t.Fatalf("lowpass: got %q, %v", got, err)
	}
	if got, err := filterType(backend.Highpass); err != nil || got != "highpass" {
		t.Fatalf("highpass: got %q, %v", got, err)
	}
	if _, err := filterType(backend.FilterKind(99)); !errors.Is(err, backend.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDBToGain(t *testing.T) {
	if g := dbToGain(0); g != 1 {
		t.Fatalf("0 dB: got %g", g)
	}
	if g := dbToGain(20); math.Abs(g-10) > 1e-12 {
		t.Fatalf("20 dB: got %g", g)
	}
	if g := dbToGain(-6); math.Abs(g-0.501187) > 1e-5 {
		t.Fatalf("-6 dB: got %g", g)
	}
}

func TestToFloat32(t *testing.T) {
	got := toFloat32([]float64{0, 0.5, -1})
	if len(got) != 3 || got[1] != 0.5 || got[2] != -1 {
		t.Fatalf("got %v", got)
	}
}

func TestValidCompressor(t *testing.T) {
	ok := backend.CompressorSettings{ThresholdDB: -24, KneeDB: 30, Ratio: 12, Attack: 0.01, Release: 0.25}
	if err := validCompressor(ok); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}
	bad := []func(*backend.CompressorSettings){
		func(s *backend.CompressorSettings) { s.ThresholdDB = 3 },
		func(s *backend.CompressorSettings) { s.KneeDB = 41 },
		func(s *backend.CompressorSettings) { s.Ratio = 0.5 },
		func(s *backend.CompressorSettings) { s.Attack = -0.1 },
		func(s *backend.CompressorSettings) { s.Release = 2 },
	}
	for i, mutate := range bad {
		s := ok
		mutate(&s)
		if err := validCompressor(s); !errors.Is(err, backend.ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}
