package piano

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

// layer is one oscillator with its shaping chain:
// oscillator -> stereo -> waveshaper -> decay gain [-> post filter].
type layer struct {
	cfg    timbre.LayerConfig
	freq   float64
	osc    backend.Oscillator
	stereo *StereoControl
	shaper backend.Node
	gain   backend.Gain
	post   backend.BiquadFilter
}

// output is the last node of the chain.
func (l *layer) output() backend.Node {
	if l.post != nil {
		return l.post
	}
	return l.gain
}

// buildLayer creates and schedules one layer starting at t0. Every node it
// creates is added to owned, including on failure.
func buildLayer(ctx backend.Context, f0 float64, cfg timbre.LayerConfig, width float64, curve []float64, t0 float64, owned *nodeSet) (*layer, error) {
	l := &layer{cfg: cfg, freq: f0 * cfg.Ratio}
	var err error

	if l.osc, err = ctx.NewOscillator(); err != nil {
		return nil, fmt.Errorf("oscillator: %w", err)
	}
	owned.add(l.osc)
	if cfg.Waveform == backend.Custom {
		real, imag := cfg.PeriodicCoefficients()
		wave, err := ctx.NewPeriodicWave(real, imag)
		if err != nil {
			return nil, fmt.Errorf("periodic wave: %w", err)
		}
		if err := l.osc.SetPeriodicWave(wave); err != nil {
			return nil, err
		}
	} else if err := l.osc.SetWaveform(cfg.Waveform); err != nil {
		return nil, err
	}
	if err := l.osc.Frequency().SetValueAtTime(l.freq, t0); err != nil {
		return nil, err
	}
	if cfg.DetuneCents != 0 {
		if err := l.osc.Detune().SetValueAtTime(cfg.DetuneCents, t0); err != nil {
			return nil, err
		}
	}

	if l.stereo, err = NewStereoControl(ctx, width); err != nil {
		return nil, fmt.Errorf("stereo: %w", err)
	}
	for _, n := range l.stereo.nodes() {
		owned.add(n)
	}

	if l.shaper, err = ctx.NewWaveShaper(curve); err != nil {
		return nil, fmt.Errorf("waveshaper: %w", err)
	}
	owned.add(l.shaper)

	if l.gain, err = ctx.NewGain(); err != nil {
		return nil, fmt.Errorf("layer gain: %w", err)
	}
	owned.add(l.gain)
	if err := scheduleLayerDecay(l.gain.Gain(), cfg, t0); err != nil {
		return nil, err
	}

	if f := cfg.Filter; f != nil {
		if l.post, err = ctx.NewBiquadFilter(f.Kind); err != nil {
			return nil, fmt.Errorf("layer filter: %w", err)
		}
		owned.add(l.post)
		q := f.Q
		if q == 0 {
			q = butterworthQ
		}
		if err := l.post.Frequency().SetValueAtTime(f.Cutoff, t0); err != nil {
			return nil, err
		}
		if err := l.post.Q().SetValueAtTime(q, t0); err != nil {
			return nil, err
		}
	}

	links := [][2]backend.Node{
		{l.osc, l.stereo.Input()},
		{l.shaper, l.gain},
	}
	if l.post != nil {
		links = append(links, [2]backend.Node{l.gain, l.post})
	}
	if err := l.stereo.Connect(l.shaper); err != nil {
		return nil, err
	}
	for _, link := range links {
		if err := link[0].Connect(link[1]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// scheduleLayerDecay holds the peak gain through the trigger delay and
// then decays exponentially to the layer's target.
func scheduleLayerDecay(p backend.Param, cfg timbre.LayerConfig, t0 float64) error {
	start := t0 + cfg.TriggerDelay
	if err := p.SetValueAtTime(cfg.Gain, t0); err != nil {
		return err
	}
	if cfg.TriggerDelay > 0 {
		if err := p.SetValueAtTime(cfg.Gain, start); err != nil {
			return err
		}
	}
	return p.ExponentialRampToValueAtTime(math.Max(cfg.DecayTarget, minLevel), start+cfg.DecayTime)
}
