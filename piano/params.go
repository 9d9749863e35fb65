package piano

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

// EnvelopeConfig is the master ADSR. Times are in seconds.
type EnvelopeConfig struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// SweepDuration is the lifetime the filter sweep spans.
func (e EnvelopeConfig) SweepDuration() float64 {
	return e.Attack + e.Decay + e.Release
}

func (e EnvelopeConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"attack", e.Attack}, {"decay", e.Decay}, {"release", e.Release}} {
		if !isFinite(f.v) || f.v < 0 {
			return fmt.Errorf("%w: envelope %s must be >= 0, got %g", ErrConfiguration, f.name, f.v)
		}
	}
	if !isFinite(e.Sustain) || e.Sustain < 0 || e.Sustain > 1 {
		return fmt.Errorf("%w: envelope sustain must be in [0,1], got %g", ErrConfiguration, e.Sustain)
	}
	return nil
}

// FilterSweepConfig drives the per-voice low-pass sweep.
type FilterSweepConfig struct {
	BaseFreq float64
	EndFreq  float64
	Q        float64
	// VelocityTracking is stored and validated but has no effect until a
	// velocity input exists.
	VelocityTracking float64
}

func (f FilterSweepConfig) Validate() error {
	if !isFinite(f.BaseFreq) || f.BaseFreq <= 0 {
		return fmt.Errorf("%w: filter base frequency must be > 0, got %g", ErrConfiguration, f.BaseFreq)
	}
	if !isFinite(f.EndFreq) || f.EndFreq <= 0 {
		return fmt.Errorf("%w: filter end frequency must be > 0, got %g", ErrConfiguration, f.EndFreq)
	}
	if !isFinite(f.Q) || f.Q <= 0 {
		return fmt.Errorf("%w: filter q must be > 0, got %g", ErrConfiguration, f.Q)
	}
	if !isFinite(f.VelocityTracking) || f.VelocityTracking < 0 {
		return fmt.Errorf("%w: velocity tracking must be >= 0, got %g", ErrConfiguration, f.VelocityTracking)
	}
	return nil
}

// StereoConfig holds the requested width. It is clamped when applied.
type StereoConfig struct {
	Width float64
}

func (s StereoConfig) Validate() error {
	if !isFinite(s.Width) {
		return fmt.Errorf("%w: stereo width must be finite", ErrConfiguration)
	}
	return nil
}

// CompressorConfig guards the per-voice output against clipping.
type CompressorConfig struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	Attack      float64
	Release     float64
	MakeupDB    float64
}

func (c CompressorConfig) Validate() error {
	switch {
	case !isFinite(c.ThresholdDB) || c.ThresholdDB < -100 || c.ThresholdDB > 0:
		return fmt.Errorf("%w: compressor threshold must be in [-100,0] dB, got %g", ErrConfiguration, c.ThresholdDB)
	case !isFinite(c.KneeDB) || c.KneeDB < 0 || c.KneeDB > 40:
		return fmt.Errorf("%w: compressor knee must be in [0,40] dB, got %g", ErrConfiguration, c.KneeDB)
	case !isFinite(c.Ratio) || c.Ratio < 1 || c.Ratio > 20:
		return fmt.Errorf("%w: compressor ratio must be in [1,20], got %g", ErrConfiguration, c.Ratio)
	case !isFinite(c.Attack) || c.Attack < 0 || c.Attack > 1:
		return fmt.Errorf("%w: compressor attack must be in [0,1] s, got %g", ErrConfiguration, c.Attack)
	case !isFinite(c.Release) || c.Release < 0 || c.Release > 1:
		return fmt.Errorf("%w: compressor release must be in [0,1] s, got %g", ErrConfiguration, c.Release)
	case !isFinite(c.MakeupDB) || math.Abs(c.MakeupDB) > 40:
		return fmt.Errorf("%w: compressor makeup must be in [-40,40] dB, got %g", ErrConfiguration, c.MakeupDB)
	}
	return nil
}

func (c CompressorConfig) settings() backend.CompressorSettings {
	return backend.CompressorSettings{
		ThresholdDB: c.ThresholdDB,
		KneeDB:      c.KneeDB,
		Ratio:       c.Ratio,
		Attack:      c.Attack,
		Release:     c.Release,
		MakeupDB:    c.MakeupDB,
	}
}

// BodyConfig enables the shared body-resonance convolver on the output bus.
type BodyConfig struct {
	Enabled  bool
	Wet      float64
	Dry      float64
	Duration float64
	Seed     int64
}

func (b BodyConfig) Validate() error {
	if !isFinite(b.Wet) || b.Wet < 0 || !isFinite(b.Dry) || b.Dry < 0 {
		return fmt.Errorf("%w: body mix must be >= 0", ErrConfiguration)
	}
	if b.Enabled && (!isFinite(b.Duration) || b.Duration <= 0 || b.Duration > 10) {
		return fmt.Errorf("%w: body duration must be in (0,10] s, got %g", ErrConfiguration, b.Duration)
	}
	return nil
}

// Params holds the engine configuration.
type Params struct {
	Envelope    EnvelopeConfig
	FilterSweep FilterSweepConfig
	Stereo      StereoConfig
	Compressor  CompressorConfig
	OutputGain  float64
	Body        BodyConfig
	// Timbre selects the initial active timbre. Empty means the store
	// default.
	Timbre string
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		Envelope: EnvelopeConfig{
			Attack:  0.01,
			Decay:   0.3,
			Sustain: 0.15,
			Release: 0.5,
		},
		FilterSweep: FilterSweepConfig{
			BaseFreq:         6000,
			EndFreq:          800,
			Q:                1.5,
			VelocityTracking: 0.3,
		},
		Stereo: StereoConfig{Width: 1.5},
		Compressor: CompressorConfig{
			ThresholdDB: -24,
			KneeDB:      30,
			Ratio:       12,
			Attack:      0.01,
			Release:     0.25,
		},
		OutputGain: 1.0,
		Body: BodyConfig{
			Enabled:  false,
			Wet:      0.3,
			Dry:      1.0,
			Duration: 2.3,
			Seed:     1,
		},
		Timbre: timbre.DefaultName,
	}
}

func (p *Params) Validate() error {
	if err := p.Envelope.Validate(); err != nil {
		return err
	}
	if err := p.FilterSweep.Validate(); err != nil {
		return err
	}
	if err := p.Stereo.Validate(); err != nil {
		return err
	}
	if err := p.Compressor.Validate(); err != nil {
		return err
	}
	if !isFinite(p.OutputGain) || p.OutputGain < 0 || p.OutputGain > 4 {
		return fmt.Errorf("%w: output gain must be in [0,4], got %g", ErrConfiguration, p.OutputGain)
	}
	return p.Body.Validate()
}
