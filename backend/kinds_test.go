package backend

import "testing"

func TestParseWaveformRoundTrip(t *testing.T) {
	for _, w := range []Waveform{Sine, Triangle, Square, Sawtooth, Custom} {
		got, err := ParseWaveform(w.String())
		if err != nil {
			t.Fatalf("parse %s: %v", w, err)
		}
		if got != w {
			t.Fatalf("parse %s: got %s", w, got)
		}
	}
	if _, err := ParseWaveform("noise"); err == nil {
		t.Fatalf("expected error for unknown waveform")
	}
}

func TestParseFilterKind(t *testing.T) {
	k, err := ParseFilterKind(" Highpass ")
	if err != nil || k != Highpass {
		t.Fatalf("got %v, %v", k, err)
	}
	if _, err := ParseFilterKind("bandpass"); err == nil {
		t.Fatalf("expected error for bandpass")
	}
}
