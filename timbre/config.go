// Package timbre defines the oscillator layer descriptors a voice is built
// from and the store that selects the active timbre.
package timbre

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// ErrInvalidTimbre wraps every timbre validation failure.
var ErrInvalidTimbre = errors.New("invalid timbre")

// FilterSpec is an optional fixed filter after a layer's gain stage.
type FilterSpec struct {
	Kind   backend.FilterKind
	Cutoff float64
	// Q defaults to a Butterworth response when zero.
	Q float64
}

// Jitter bounds the random deviation applied to a layer each time a voice
// is built. Ratio and DecayTime are relative (0.001 = ±0.1%), DetuneCents
// is absolute.
type Jitter struct {
	Ratio       float64
	DecayTime   float64
	DetuneCents float64
}

func (j Jitter) IsZero() bool {
	return j.Ratio == 0 && j.DecayTime == 0 && j.DetuneCents == 0
}

// LayerConfig describes one oscillator layer.
type LayerConfig struct {
	Waveform backend.Waveform
	// Harmonics holds the amplitudes of partials 1..n for Custom layers.
	Harmonics []float64

	Ratio        float64
	Gain         float64
	DecayTarget  float64
	DecayTime    float64
	TriggerDelay float64
	DetuneCents  float64

	Filter *FilterSpec
	Jitter Jitter
}

// Config is a named, ordered set of layers.
type Config struct {
	Name   string
	Layers []LayerConfig
}

func (l LayerConfig) Validate() error {
	switch {
	case !isFinite(l.Ratio) || l.Ratio <= 0:
		return fmt.Errorf("ratio must be > 0, got %g", l.Ratio)
	case !isFinite(l.Gain) || l.Gain < 0 || l.Gain > 1:
		return fmt.Errorf("gain must be in [0,1], got %g", l.Gain)
	case !isFinite(l.DecayTarget) || l.DecayTarget < 0 || l.DecayTarget > 1:
		return fmt.Errorf("decay target must be in [0,1], got %g", l.DecayTarget)
	case !isFinite(l.DecayTime) || l.DecayTime <= 0:
		return fmt.Errorf("decay time must be > 0, got %g", l.DecayTime)
	case !isFinite(l.TriggerDelay) || l.TriggerDelay < 0:
		return fmt.Errorf("trigger delay must be >= 0, got %g", l.TriggerDelay)
	case !isFinite(l.DetuneCents):
		return fmt.Errorf("detune must be finite")
	}
	if l.Waveform < backend.Sine || l.Waveform > backend.Custom {
		return fmt.Errorf("unknown waveform %s", l.Waveform)
	}
	if l.Waveform == backend.Custom {
		if len(l.Harmonics) < 1 {
			return fmt.Errorf("custom waveform needs at least one harmonic coefficient")
		}
		for _, h := range l.Harmonics {
			if !isFinite(h) {
				return fmt.Errorf("custom waveform has non-finite coefficient")
			}
		}
	}
	if f := l.Filter; f != nil {
		if f.Kind != backend.Lowpass && f.Kind != backend.Highpass {
			return fmt.Errorf("unknown filter kind %s", f.Kind)
		}
		if !isFinite(f.Cutoff) || f.Cutoff <= 0 {
			return fmt.Errorf("filter cutoff must be > 0, got %g", f.Cutoff)
		}
		if !isFinite(f.Q) || f.Q < 0 {
			return fmt.Errorf("filter q must be >= 0, got %g", f.Q)
		}
	}
	j := l.Jitter
	if !isFinite(j.Ratio) || j.Ratio < 0 || j.Ratio >= 1 {
		return fmt.Errorf("ratio jitter must be in [0,1), got %g", j.Ratio)
	}
	if !isFinite(j.DecayTime) || j.DecayTime < 0 || j.DecayTime >= 1 {
		return fmt.Errorf("decay time jitter must be in [0,1), got %g", j.DecayTime)
	}
	if !isFinite(j.DetuneCents) || j.DetuneCents < 0 {
		return fmt.Errorf("detune jitter must be >= 0, got %g", j.DetuneCents)
	}
	return nil
}

// Validate checks every layer. Errors wrap ErrInvalidTimbre.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTimbre)
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("%w: %q has no layers", ErrInvalidTimbre, c.Name)
	}
	for i, l := range c.Layers {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("%w: %q layer %d: %v", ErrInvalidTimbre, c.Name, i, err)
		}
	}
	return nil
}

// Clone returns a deep copy so stored configurations stay immutable.
func (c Config) Clone() Config {
	out := Config{Name: c.Name, Layers: make([]LayerConfig, len(c.Layers))}
	for i, l := range c.Layers {
		out.Layers[i] = l.clone()
	}
	return out
}

func (l LayerConfig) clone() LayerConfig {
	if l.Harmonics != nil {
		l.Harmonics = append([]float64(nil), l.Harmonics...)
	}
	if l.Filter != nil {
		f := *l.Filter
		l.Filter = &f
	}
	return l
}

// PeriodicCoefficients returns the real/imag arrays for a custom layer's
// periodic wave. Index 0 is the DC term and stays at zero offset.
func (l LayerConfig) PeriodicCoefficients() (real, imag []float64) {
	real = make([]float64, len(l.Harmonics)+1)
	real[0] = 1
	copy(real[1:], l.Harmonics)
	imag = make([]float64, len(real))
	return real, imag
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
