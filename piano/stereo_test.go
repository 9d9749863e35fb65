package piano

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/graph"
)

func TestStereoWidthIsClamped(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{2.5, 2.5},
		{10, 2.5},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampWidth(tt.in); got != tt.want {
			t.Fatalf("ClampWidth(%g) = %g, want %g", tt.in, got, tt.want)
		}
		l, r := StereoGains(tt.in)
		wl, wr := StereoGains(tt.want)
		if l != wl || r != wr {
			t.Fatalf("StereoGains(%g) = (%g,%g), want gains of %g", tt.in, l, r, tt.want)
		}
	}
}

func TestStereoGainsFormula(t *testing.T) {
	l, r := StereoGains(0)
	if !approxEqual(l, 1, 1e-12) || !approxEqual(r, stereoCenterBlend, 1e-12) {
		t.Fatalf("width 0 gains = (%g,%g), want (1,%g)", l, r, stereoCenterBlend)
	}
	l, r = StereoGains(1)
	if !approxEqual(l, r, 1e-12) {
		t.Fatalf("width 1 gains differ: (%g,%g)", l, r)
	}
	want := math.Sqrt2/2 + stereoCenterBlend*math.Sqrt2/2
	if !approxEqual(l, want, 1e-12) {
		t.Fatalf("width 1 gain = %g, want %g", l, want)
	}
	l, r = StereoGains(2)
	if !approxEqual(l, stereoCenterBlend, 1e-12) || !approxEqual(r, 1, 1e-12) {
		t.Fatalf("width 2 gains = (%g,%g), want (%g,1)", l, r, stereoCenterBlend)
	}
}

func dcInput(t *testing.T, ctx *graph.Context) backend.Oscillator {
	t.Helper()
	o, err := ctx.NewOscillator()
	if err != nil {
		t.Fatalf("new oscillator: %v", err)
	}
	if err := o.SetWaveform(backend.Square); err != nil {
		t.Fatalf("set waveform: %v", err)
	}
	if err := o.Frequency().SetValueAtTime(0, 0); err != nil {
		t.Fatalf("set frequency: %v", err)
	}
	if err := o.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	return o
}

func TestStereoControlFeedbackSteadyState(t *testing.T) {
	ctx := graph.NewContext(8000)
	s, err := NewStereoControl(ctx, 1)
	if err != nil {
		t.Fatalf("NewStereoControl: %v", err)
	}
	src := dcInput(t, ctx)
	if err := src.Connect(s.Input()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Connect(ctx.Destination()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	out := ctx.Process(256)

	g, _ := StereoGains(1)
	want := g / (1 - stereoFeedback*g)
	last := float64(out[len(out)-2])
	if !approxEqual(last, want, 1e-4) {
		t.Fatalf("steady-state left = %g, want %g", last, want)
	}
}

func TestStereoControlRampsWidthChanges(t *testing.T) {
	ctx := graph.NewContext(8000)
	s, err := NewStereoControl(ctx, 1)
	if err != nil {
		t.Fatalf("NewStereoControl: %v", err)
	}
	l1, r1 := StereoGains(1)
	if got := s.channels.Left().Value(); !approxEqual(got, l1, 1e-12) {
		t.Fatalf("initial left = %g, want %g", got, l1)
	}

	ctx.Process(400)
	now := ctx.CurrentTime()
	if err := s.SetWidth(2); err != nil {
		t.Fatalf("SetWidth: %v", err)
	}
	l2, r2 := StereoGains(2)
	left := inspect(t, s.channels.Left())
	right := inspect(t, s.channels.Right())

	if got := left.ValueAtTime(now); !approxEqual(got, l1, 1e-12) {
		t.Fatalf("ramp does not start at the current value: %g, want %g", got, l1)
	}
	mid := left.ValueAtTime(now + stereoRampTime/2)
	if !(mid < l1 && mid > l2) {
		t.Fatalf("left mid-ramp = %g, want between %g and %g", mid, l2, l1)
	}
	if got := left.ValueAtTime(now + stereoRampTime); !approxEqual(got, l2, 1e-9) {
		t.Fatalf("left after ramp = %g, want %g", got, l2)
	}
	if got := right.ValueAtTime(now + stereoRampTime); !approxEqual(got, r2, 1e-9) {
		t.Fatalf("right after ramp = %g, want %g (from %g)", got, r2, r1)
	}
	if s.Width() != 2 {
		t.Fatalf("width = %g, want 2", s.Width())
	}
}

func TestStereoControlDisconnectKeepsFeedback(t *testing.T) {
	ctx := graph.NewContext(8000)
	s, err := NewStereoControl(ctx, 1)
	if err != nil {
		t.Fatalf("NewStereoControl: %v", err)
	}
	if err := s.Connect(ctx.Destination()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := s.Connect(ctx.Destination()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	src := dcInput(t, ctx)
	if err := src.Connect(s.Input()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	out := ctx.Process(256)
	g, _ := StereoGains(1)
	if got := float64(out[len(out)-2]); !approxEqual(got, g/(1-stereoFeedback*g), 1e-4) {
		t.Fatalf("feedback path lost after disconnect: %g", got)
	}

	before := ctx.LiveNodes()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := ctx.LiveNodes(); got != before-3 {
		t.Fatalf("live nodes = %d, want %d", got, before-3)
	}
}

func TestSetStereoWidthPropagatesToSoundingVoices(t *testing.T) {
	p, _ := newTestPiano(t, 8000, nil)
	a := mustPress(t, p, 60)
	b := mustPress(t, p, 64)

	if err := p.SetStereoWidth(0.5); err != nil {
		t.Fatalf("SetStereoWidth: %v", err)
	}
	for _, v := range []*Voice{a, b} {
		for i, l := range v.layers {
			if l.stereo.Width() != 0.5 {
				t.Fatalf("voice %d layer %d width = %g", v.Note(), i, l.stereo.Width())
			}
		}
	}

	if err := p.SetStereoWidth(10); err != nil {
		t.Fatalf("SetStereoWidth: %v", err)
	}
	if p.StereoWidth() != MaxStereoWidth {
		t.Fatalf("width = %g, want %g", p.StereoWidth(), MaxStereoWidth)
	}
	c := mustPress(t, p, 67)
	if got := c.layers[0].stereo.Width(); got != MaxStereoWidth {
		t.Fatalf("new voice width = %g, want %g", got, MaxStereoWidth)
	}
	l, _ := StereoGains(MaxStereoWidth)
	if got := c.layers[0].stereo.channels.Left().Value(); !approxEqual(got, l, 1e-12) {
		t.Fatalf("new voice starts at %g, want %g without a ramp", got, l)
	}

	if err := p.SetStereoWidth(math.NaN()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("NaN width: got %v, want ErrConfiguration", err)
	}
	if p.StereoWidth() != MaxStereoWidth {
		t.Fatalf("rejected width changed the setting")
	}
}
