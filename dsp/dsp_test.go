package dsp

import (
	"math"
	"testing"
)

func TestLowpassPassesDCAndAttenuatesNyquist(t *testing.T) {
	b := NewBiquad(LowpassCoefficients(1000, 0.707, 48000))
	var y float64
	for i := 0; i < 4800; i++ {
		y = b.Process(1)
	}
	if math.Abs(y-1) > 1e-3 {
		t.Fatalf("DC gain = %f, want 1", y)
	}

	b.Reset()
	peak := 0.0
	for i := 0; i < 4800; i++ {
		x := 1.0
		if i%2 == 1 {
			x = -1
		}
		y = b.Process(x)
		if i > 2400 {
			peak = math.Max(peak, math.Abs(y))
		}
	}
	if peak > 0.01 {
		t.Fatalf("nyquist leak = %f", peak)
	}
}

func TestHighpassBlocksDC(t *testing.T) {
	b := NewBiquad(HighpassCoefficients(2000, 0.707, 48000))
	var y float64
	for i := 0; i < 9600; i++ {
		y = b.Process(1)
	}
	if math.Abs(y) > 1e-4 {
		t.Fatalf("DC leak = %g", y)
	}
}

func TestSetCoefficientsKeepsState(t *testing.T) {
	b := NewBiquad(LowpassCoefficients(500, 1, 8000))
	for i := 0; i < 100; i++ {
		b.Process(1)
	}
	before := b.y1
	b.SetCoefficients(LowpassCoefficients(600, 1, 8000))
	if b.y1 != before {
		t.Fatalf("state changed on coefficient update")
	}
}

func TestCutoffClampedBelowNyquist(t *testing.T) {
	c := LowpassCoefficients(30000, 1, 8000)
	for _, v := range []float64{c.B0, c.B1, c.B2, c.A1, c.A2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite coefficient %v", c)
		}
	}
}

func TestSectionMatchesBiquad(t *testing.T) {
	s := NewHighpassSection(2000, 0.707, 44100)
	b := NewBiquad(HighpassCoefficients(2000, 0.707, 44100))
	for i := 0; i < 256; i++ {
		x := math.Sin(float64(i) * 0.3)
		if d := math.Abs(s.ProcessSample(x) - b.Process(x)); d > 1e-9 {
			t.Fatalf("sample %d differs by %g", i, d)
		}
	}
}
