package piano

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/graph"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

func TestPressIsIdempotent(t *testing.T) {
	p, ctx := newTestPiano(t, 8000, nil)
	v := mustPress(t, p, 69)
	live := ctx.LiveNodes()

	if err := p.PressKey(69); err != nil {
		t.Fatalf("second PressKey: %v", err)
	}
	again, _ := p.Voice(69)
	if again != v {
		t.Fatalf("second press replaced the voice")
	}
	if got := ctx.LiveNodes(); got != live {
		t.Fatalf("live nodes changed from %d to %d on duplicate press", live, got)
	}
	if notes := p.ActiveNotes(); len(notes) != 1 || notes[0] != 69 {
		t.Fatalf("active notes = %v, want [69]", notes)
	}
}

func TestReleaseUnknownNoteIsNoop(t *testing.T) {
	p, ctx := newTestPiano(t, 8000, nil)
	mustPress(t, p, 60)
	live := ctx.LiveNodes()

	for _, note := range []int{61, 200, -1} {
		if err := p.ReleaseKey(note); err != nil {
			t.Fatalf("ReleaseKey(%d): %v", note, err)
		}
	}
	if got := ctx.LiveNodes(); got != live {
		t.Fatalf("live nodes changed from %d to %d", live, got)
	}
	if p.Tails() != 0 {
		t.Fatalf("stale release created a tail")
	}
	if !p.IsSounding(60) {
		t.Fatalf("unrelated note was released")
	}
}

func TestPressReleasePressStartsDistinctVoice(t *testing.T) {
	p, ctx := newTestPiano(t, 8000, nil)
	baseline := ctx.LiveNodes()

	first := mustPress(t, p, 64)
	mustRelease(t, p, 64)
	second := mustPress(t, p, 64)

	if first == second || first.ID() == second.ID() {
		t.Fatalf("expected a distinct voice")
	}
	if first.State() != Releasing {
		t.Fatalf("first voice state = %s, want releasing", first.State())
	}
	if second.State() != Sounding {
		t.Fatalf("second voice state = %s, want sounding", second.State())
	}
	perVoice := second.OpenNodes()

	renderPast(ctx, first.StopTime())

	if first.State() != Cleaned {
		t.Fatalf("first voice state = %s, want cleaned", first.State())
	}
	if second.State() != Sounding || !p.IsSounding(64) {
		t.Fatalf("second voice was disturbed by the first voice's tail")
	}
	if got := ctx.LiveNodes(); got != baseline+perVoice {
		t.Fatalf("live nodes = %d, want %d", got, baseline+perVoice)
	}
	for i := range second.Oscillators() {
		if graphOscillator(t, second, i).Ended() {
			t.Fatalf("second voice oscillator %d ended", i)
		}
	}
}

func TestDecayIsNonIncreasing(t *testing.T) {
	p, _ := newTestPiano(t, 8000, nil)
	v := mustPress(t, p, 57)
	env := p.Params().Envelope
	g := inspect(t, v.MasterGain())

	t0 := v.StartTime()
	if got := g.ValueAtTime(t0 + env.Attack); !approxEqual(got, 1, 1e-9) {
		t.Fatalf("gain at end of attack = %g, want 1", got)
	}
	prev := math.Inf(1)
	for i := 0; i <= 200; i++ {
		tm := t0 + env.Attack + env.Decay*float64(i)/200
		val := g.ValueAtTime(tm)
		if val > prev+1e-12 {
			t.Fatalf("gain rose during decay at %.4f: %g > %g", tm, val, prev)
		}
		prev = val
	}
	if !approxEqual(prev, env.Sustain, 1e-9) {
		t.Fatalf("gain at end of decay = %g, want %g", prev, env.Sustain)
	}
}

func TestReleaseStartsFromCapturedValue(t *testing.T) {
	for _, at := range []float64{0.004, 0.008, 0.05, 0.15, 0.3, 0.6} {
		t.Run(fmt.Sprintf("%.3fs", at), func(t *testing.T) {
			p, ctx := newTestPiano(t, 8000, nil)
			env := p.Params().Envelope
			v := mustPress(t, p, 60)
			g := inspect(t, v.MasterGain())

			renderSeconds(ctx, at)
			now := ctx.CurrentTime()
			want := g.ValueAtTime(now)
			mustRelease(t, p, 60)

			if got := g.ValueAtTime(now); !approxEqual(got, want, 1e-9) {
				t.Fatalf("release origin = %g, want captured %g", got, want)
			}
			damped := math.Min(want, env.Sustain*dampRatio)
			end := now + env.Release*dampPortion
			if got := g.ValueAtTime(end); !approxEqual(got, damped, 1e-9) {
				t.Fatalf("value after first release phase = %g, want %g", got, damped)
			}
			prev := want
			for i := 1; i <= 100; i++ {
				val := g.ValueAtTime(now + (v.StopTime()-now)*float64(i)/100)
				if val > prev+1e-12 {
					t.Fatalf("gain rose during release: %g > %g", val, prev)
				}
				prev = val
			}
			if want := now + env.Release + dampMargin; !approxEqual(v.StopTime(), want, 1e-12) {
				t.Fatalf("stop time = %g, want %g", v.StopTime(), want)
			}
		})
	}
}

func TestCleanupReleasesAllNodes(t *testing.T) {
	p, ctx := newTestPiano(t, 8000, nil)
	baseline := ctx.LiveNodes()

	v := mustPress(t, p, 48)
	if v.OpenNodes() == 0 || ctx.LiveNodes() != baseline+v.OpenNodes() {
		t.Fatalf("voice owns %d nodes, context has %d over baseline", v.OpenNodes(), ctx.LiveNodes()-baseline)
	}
	renderSeconds(ctx, 0.1)
	mustRelease(t, p, 48)
	if p.Tails() != 1 {
		t.Fatalf("tails = %d, want 1", p.Tails())
	}

	// Just before the floor the tail is still alive.
	renderSeconds(ctx, v.StopTime()-ctx.CurrentTime()-0.01)
	if v.State() != Releasing || v.OpenNodes() == 0 {
		t.Fatalf("voice cleaned before its stop time")
	}

	renderPast(ctx, v.StopTime())
	if v.State() != Cleaned {
		t.Fatalf("state = %s, want cleaned", v.State())
	}
	if v.OpenNodes() != 0 {
		t.Fatalf("voice still owns %d nodes", v.OpenNodes())
	}
	if got := ctx.LiveNodes(); got != baseline {
		t.Fatalf("live nodes = %d, want %d (%v)", got, baseline, ctx.LiveNodesByKind())
	}
	if p.Tails() != 0 {
		t.Fatalf("tails = %d, want 0", p.Tails())
	}
}

func TestLayerFrequencyScaling(t *testing.T) {
	ratios := []float64{1, 2, 4, 0.5, 3.01}
	for _, f0 := range []float64{27.5, 440, 4186} {
		t.Run(fmt.Sprintf("%gHz", f0), func(t *testing.T) {
			ctx := graph.NewContext(48000)
			var owned nodeSet
			defer owned.closeAll()
			for _, r := range ratios {
				cfg := timbre.LayerConfig{Waveform: backend.Sine, Ratio: r, Gain: 0.5, DecayTarget: 0.001, DecayTime: 1}
				l, err := buildLayer(ctx, f0, cfg, 1, []float64{-1, 1}, 0, &owned)
				if err != nil {
					t.Fatalf("buildLayer: %v", err)
				}
				want := f0 * r
				if got := l.osc.Frequency().Value(); math.Abs(got-want) > 1e-9*want {
					t.Fatalf("ratio %g: frequency = %.12g, want %.12g", r, got, want)
				}
			}
		})
	}
}

func TestPressDrivesLayerFrequencies(t *testing.T) {
	tests := []struct {
		note int
		f0   float64
	}{
		{21, 27.5},
		{69, 440},
		{108, 4186.009},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("note%d", tt.note), func(t *testing.T) {
			p, _ := newTestPiano(t, 48000, nil)
			v := mustPress(t, p, tt.note)
			if !approxEqual(v.Frequency(), tt.f0, 1e-3) {
				t.Fatalf("fundamental = %g, want %g", v.Frequency(), tt.f0)
			}
			for i, o := range v.Oscillators() {
				want := v.Frequency() * v.layers[i].cfg.Ratio
				if got := o.Frequency().Value(); math.Abs(got-want) > 1e-9*want {
					t.Fatalf("layer %d frequency = %g, want %g", i, got, want)
				}
			}
		})
	}
}

func TestEndToEndDefaultTimbre(t *testing.T) {
	p, ctx := newTestPiano(t, 8000, nil)
	env := p.Params().Envelope

	v := mustPress(t, p, 69)
	if v.Timbre() != timbre.Simple {
		t.Fatalf("timbre = %q, want %q", v.Timbre(), timbre.Simple)
	}
	oscs := v.Oscillators()
	if len(oscs) != 3 {
		t.Fatalf("oscillators = %d, want 3", len(oscs))
	}
	for i, want := range []float64{440, 880, 1760} {
		if got := oscs[i].Frequency().Value(); !approxEqual(got, want, 1e-9) {
			t.Fatalf("oscillator %d at %g Hz, want %g", i, got, want)
		}
		if got := v.layers[i].gain.Gain().Value(); !approxEqual(got, 0.5, 1e-9) {
			t.Fatalf("layer %d gain = %g, want 0.5", i, got)
		}
	}

	renderSeconds(ctx, env.Attack+env.Decay+0.02)
	if got := v.MasterGain().Value(); !approxEqual(got, env.Sustain, 1e-3) {
		t.Fatalf("master gain after attack+decay = %g, want %g", got, env.Sustain)
	}

	mustRelease(t, p, 69)
	if p.IsSounding(69) {
		t.Fatalf("note still registered after release")
	}
	stopAt := v.StopTime()
	g := inspect(t, v.MasterGain())
	if got := g.ValueAtTime(stopAt); !approxEqual(got, releaseFloor, 1e-9) {
		t.Fatalf("gain at stop time = %g, want floor %g", got, releaseFloor)
	}
	for i := range oscs {
		st, ok := graphOscillator(t, v, i).StopTime()
		if !ok || math.Abs(st-stopAt) > 1.0/8000 {
			t.Fatalf("oscillator %d stop = %g (%v), want %g", i, st, ok, stopAt)
		}
	}

	renderPast(ctx, stopAt)
	for i := range oscs {
		if !graphOscillator(t, v, i).Ended() {
			t.Fatalf("oscillator %d did not end", i)
		}
	}
	if v.State() != Cleaned {
		t.Fatalf("state = %s, want cleaned", v.State())
	}
}

func TestVoiceProducesPitchedOutput(t *testing.T) {
	params := NewDefaultParams()
	params.Envelope.Sustain = 0.8
	p, ctx := newTestPiano(t, 48000, params)
	single := timbre.Config{Name: "sine", Layers: []timbre.LayerConfig{
		{Waveform: backend.Sine, Ratio: 1, Gain: 0.5, DecayTarget: 0.4, DecayTime: 2},
	}}
	if err := p.AddTimbre(single); err != nil {
		t.Fatalf("AddTimbre: %v", err)
	}
	if !p.SetTimbre("sine") {
		t.Fatalf("SetTimbre failed")
	}
	mustPress(t, p, 57)
	renderSeconds(ctx, 0.1)
	out := renderSeconds(ctx, 0.5)

	got := measureFundamentalFreq(leftChannel(out), 48000)
	if math.Abs(got-220) > 3 {
		t.Fatalf("measured %0.2f Hz, want 220", got)
	}
	if stereoRMS(out) < 1e-3 {
		t.Fatalf("output is silent")
	}
}

func TestReleaseFloorTracksTinyDamping(t *testing.T) {
	params := NewDefaultParams()
	params.Envelope.Sustain = 0.005
	p, ctx := newTestPiano(t, 8000, params)
	v := mustPress(t, p, 60)
	renderSeconds(ctx, 0.5)
	mustRelease(t, p, 60)

	g := inspect(t, v.MasterGain())
	damped := params.Envelope.Sustain * dampRatio
	if got := g.ValueAtTime(v.StopTime()); !approxEqual(got, damped, 1e-12) {
		t.Fatalf("floor = %g, want %g", got, damped)
	}
}
