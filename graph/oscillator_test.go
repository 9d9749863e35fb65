package graph

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
)

func TestOscillatorStartStopAndEnded(t *testing.T) {
	c := NewContext(1000)
	o, _ := c.NewOscillator()
	_ = o.SetWaveform(backend.Square)
	_ = o.Frequency().SetValueAtTime(0, 0)
	mustConnect(t, o, c.Destination())
	if err := o.Stop(0.05); !errors.Is(err, backend.ErrInvalidState) {
		t.Fatalf("stop before start: %v", err)
	}
	if err := o.Start(0.01); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(0.02); !errors.Is(err, backend.ErrInvalidState) {
		t.Fatalf("double start: %v", err)
	}
	if err := o.Stop(0.05); err != nil {
		t.Fatal(err)
	}

	var ended atomic.Int32
	o.OnEnded(func() { ended.Add(1) })

	out := c.Process(40)
	if ended.Load() != 0 {
		t.Fatalf("ended fired early")
	}
	out = append(out, c.Process(40)...)
	if ended.Load() != 1 {
		t.Fatalf("ended count = %d, want 1", ended.Load())
	}
	for i := 0; i < 80; i++ {
		want := 0.0
		if i >= 10 && i < 50 {
			want = 1
		}
		if left(out, i) != want {
			t.Fatalf("frame %d = %f, want %f", i, left(out, i), want)
		}
	}

	osc := o.(*Oscillator)
	if st, ok := osc.StopTime(); !ok || math.Abs(st-0.05) > 1e-12 {
		t.Fatalf("StopTime = %f, %v", st, ok)
	}
	if !osc.Ended() {
		t.Fatalf("Ended() = false")
	}

	// Late registration still runs once.
	o.OnEnded(func() { ended.Add(1) })
	c.Process(1)
	if ended.Load() != 2 {
		t.Fatalf("late callback not run, count=%d", ended.Load())
	}
}

func TestEndedCallbackMayUseContext(t *testing.T) {
	c := NewContext(1000)
	o := dcSource(t, c)
	g, _ := c.NewGain()
	mustConnect(t, o, g)
	mustConnect(t, g, c.Destination())
	_ = o.Stop(0.01)
	closed := false
	o.OnEnded(func() {
		_ = o.Close()
		_ = g.Close()
		closed = c.LiveNodes() == 0
	})
	c.Process(200)
	if !closed {
		t.Fatalf("callback could not close nodes")
	}
}

func TestOscillatorFrequency(t *testing.T) {
	sr := 48000
	c := NewContext(sr)
	o, _ := c.NewOscillator()
	_ = o.Frequency().SetValueAtTime(1000, 0)
	_ = o.Start(0)
	mustConnect(t, o, c.Destination())
	out := c.Process(sr)
	crossings := 0
	for i := 1; i < sr; i++ {
		if (left(out, i-1) < 0) != (left(out, i) < 0) {
			crossings++
		}
	}
	if crossings < 1990 || crossings > 2010 {
		t.Fatalf("zero crossings = %d, want ~2000", crossings)
	}
}

func TestDetuneShiftsPitch(t *testing.T) {
	if r := centsToRatio(1200); math.Abs(r-2) > 1e-3 {
		t.Fatalf("1200 cents = %f", r)
	}
	if r := centsToRatio(-1200); math.Abs(r-0.5) > 1e-3 {
		t.Fatalf("-1200 cents = %f", r)
	}
}

func TestPeriodicWave(t *testing.T) {
	c := NewContext(8000)
	if _, err := c.NewPeriodicWave([]float64{1}, []float64{0}); !errors.Is(err, backend.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := c.NewPeriodicWave([]float64{1, 1}, []float64{0}); !errors.Is(err, backend.ErrInvalidConfig) {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
	w, err := c.NewPeriodicWave([]float64{1, 0.2, 1, -0.8}, []float64{0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if w.Harmonics() != 3 {
		t.Fatalf("harmonics = %d", w.Harmonics())
	}
	o, _ := c.NewOscillator()
	if err := o.SetPeriodicWave(w); err != nil {
		t.Fatal(err)
	}
	if o.(*Oscillator).Waveform() != backend.Custom {
		t.Fatalf("waveform not custom")
	}
	if err := o.SetWaveform(backend.Custom); !errors.Is(err, backend.ErrInvalidConfig) {
		t.Fatalf("custom without table: %v", err)
	}
	_ = o.Frequency().SetValueAtTime(100, 0)
	_ = o.Start(0)
	mustConnect(t, o, c.Destination())
	out := c.Process(800)
	peak := 0.0
	for i := 0; i < 800; i++ {
		peak = math.Max(peak, math.Abs(left(out, i)))
	}
	if peak < 0.9 || peak > 1.0001 {
		t.Fatalf("normalized peak = %f", peak)
	}
}
