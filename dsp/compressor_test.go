package dsp

import (
	"math"
	"testing"
)

func TestStaticCurveRegions(t *testing.T) {
	c := NewCompressor(48000, -24, 30, 12, 0.01, 0.25, 0)

	if got := c.StaticCurve(-60); got != -60 {
		t.Fatalf("below knee: got %f", got)
	}
	if got, want := c.StaticCurve(0), -24+24.0/12; math.Abs(got-want) > 1e-9 {
		t.Fatalf("above knee: got %f want %f", got, want)
	}
	prev := c.StaticCurve(-80)
	for db := -79.0; db <= 0; db++ {
		cur := c.StaticCurve(db)
		if cur < prev {
			t.Fatalf("static curve decreasing at %f dB", db)
		}
		prev = cur
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	sr := 48000.0
	c := NewCompressor(sr, -24, 30, 12, 0.01, 0.25, 0)
	var outPeak float64
	for i := 0; i < int(sr/2); i++ {
		x := math.Sin(2 * math.Pi * 220 * float64(i) / sr)
		l, r := c.ProcessStereo(x, x)
		if l != r {
			t.Fatalf("linked channels diverged")
		}
		if i > int(sr/4) {
			outPeak = math.Max(outPeak, math.Abs(l))
		}
	}
	if outPeak > 0.5 {
		t.Fatalf("expected gain reduction, peak %f", outPeak)
	}
	if c.ReductionDB() >= 0 {
		t.Fatalf("reduction should be negative, got %f", c.ReductionDB())
	}
	c.Reset()
	if c.ReductionDB() != 0 {
		t.Fatalf("reset did not clear state")
	}
}

func TestCompressorPassesQuietSignal(t *testing.T) {
	c := NewCompressor(48000, -24, 30, 12, 0.01, 0.25, 0)
	for i := 0; i < 4800; i++ {
		l, _ := c.ProcessStereo(0.001, 0.001)
		if math.Abs(l-0.001) > 1e-6 {
			t.Fatalf("quiet signal altered: %g", l)
		}
	}
}
