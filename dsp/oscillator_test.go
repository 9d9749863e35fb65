package dsp

import (
	"math"
	"testing"
)

func TestStandardWaveformsAreBounded(t *testing.T) {
	dt := 440.0 / 48000
	phase := 0.0
	for i := 0; i < 48000; i++ {
		for name, v := range map[string]float64{
			"sine":     Sine(phase),
			"triangle": Triangle(phase),
			"square":   Square(phase, dt),
			"sawtooth": Sawtooth(phase, dt),
		} {
			if math.Abs(v) > 1.0001 {
				t.Fatalf("%s out of range at phase %f: %f", name, phase, v)
			}
		}
		phase = AdvancePhase(phase, dt)
	}
}

func TestTriangleShape(t *testing.T) {
	cases := map[float64]float64{0: 0, 0.25: 1, 0.5: 0, 0.75: -1}
	for p, want := range cases {
		if got := Triangle(p); math.Abs(got-want) > 1e-12 {
			t.Fatalf("Triangle(%f) = %f, want %f", p, got, want)
		}
	}
}

func TestAdvancePhaseWraps(t *testing.T) {
	if p := AdvancePhase(0.9, 0.25); math.Abs(p-0.15) > 1e-12 {
		t.Fatalf("got %f", p)
	}
	if p := AdvancePhase(0.1, -0.25); math.Abs(p-0.85) > 1e-12 {
		t.Fatalf("negative increment: got %f", p)
	}
}

func TestPeriodicTableSingleHarmonic(t *testing.T) {
	table := PeriodicTable([]float64{1, 0, 0.5}, nil, 1024)
	// Only the second harmonic is present, so the quarter period repeats
	// at half the table length.
	for i := 0; i < 512; i++ {
		if d := math.Abs(table[i] - table[i+512]); d > 1e-9 {
			t.Fatalf("index %d not periodic at half length: %g", i, d)
		}
	}
	if math.Abs(table[0]-1) > 1e-12 {
		t.Fatalf("normalized cosine should start at 1, got %f", table[0])
	}
}

func TestTableLookupInterpolates(t *testing.T) {
	table := []float64{0, 1, 0, -1}
	if v := TableLookup(table, 0.125); math.Abs(v-0.5) > 1e-12 {
		t.Fatalf("got %f", v)
	}
	if v := TableLookup(table, 0.875); math.Abs(v+0.5) > 1e-12 {
		t.Fatalf("wrap: got %f", v)
	}
}
