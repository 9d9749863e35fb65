package irsynth

import (
	"fmt"
	"math"
	"math/rand"
)

// Config controls synthetic body IR generation.
//
// The base response is uniform noise under an exponential envelope per
// channel. Modes optionally adds damped resonances on top.
type Config struct {
	SampleRate int
	DurationS  float64
	Seed       int64

	Amplitude float64
	// LeftDecay and RightDecay are envelope rates in 1/s: env(t) = exp(-rate*t).
	LeftDecay  float64
	RightDecay float64

	Modes     int
	ModeLevel float64
	LowModeHz float64

	// NormalizePeak rescales the result to this peak when > 0.
	NormalizePeak float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		DurationS:  2.3,
		Seed:       1,
		Amplitude:  0.1,
		LeftDecay:  3.0,
		RightDecay: 2.8,
		ModeLevel:  0.02,
		LowModeHz:  90,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if !(c.DurationS > 0) || math.IsInf(c.DurationS, 0) {
		return fmt.Errorf("duration must be > 0")
	}
	if !(c.Amplitude > 0) {
		return fmt.Errorf("amplitude must be > 0")
	}
	if c.LeftDecay < 0 || c.RightDecay < 0 {
		return fmt.Errorf("decay rates must be >= 0")
	}
	if c.Modes < 0 {
		return fmt.Errorf("modes must be >= 0")
	}
	if c.Modes > 0 && (c.ModeLevel < 0 || !(c.LowModeHz > 0)) {
		return fmt.Errorf("mode level must be >= 0 and low mode > 0 Hz")
	}
	if c.NormalizePeak < 0 {
		return fmt.Errorf("normalize peak must be >= 0")
	}
	return nil
}

// GenerateStereo synthesizes a stereo IR according to cfg. The same
// config always yields the same samples.
func GenerateStereo(cfg Config) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	n := int(math.Round(cfg.DurationS * float64(cfg.SampleRate)))
	if n < 1 {
		n = 1
	}
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < n; i++ {
		t := float64(i) / float64(cfg.SampleRate)
		left[i] = rng.Float64() * cfg.Amplitude * math.Exp(-t*cfg.LeftDecay)
		right[i] = rng.Float64() * cfg.Amplitude * math.Exp(-t*cfg.RightDecay)
	}

	if cfg.Modes > 0 {
		maxF := 0.45 * float64(cfg.SampleRate)
		for m := 0; m < cfg.Modes; m++ {
			// harmonic-ish series with slight stretch, like a stiff panel
			k := float64(m + 1)
			f := cfg.LowModeHz * k * math.Sqrt(1+0.002*k*k)
			if f >= maxF {
				break
			}
			amp := cfg.ModeLevel / k
			tau := 0.8 / math.Sqrt(k)
			decay := math.Exp(-1.0 / (tau * float64(cfg.SampleRate)))
			phi := rng.Float64() * 2 * math.Pi
			addMode(left, amp, f, phi, decay, cfg.SampleRate)
			addMode(right, amp, f*1.003, phi, decay, cfg.SampleRate)
		}
	}

	s := 1.0
	if cfg.NormalizePeak > 0 {
		peak := math.Max(maxAbs(left), maxAbs(right))
		if peak < 1e-12 {
			peak = 1e-12
		}
		s = cfg.NormalizePeak / peak
	}
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := 0; i < n; i++ {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	return outL, outR, nil
}

// addMode adds an exponentially damped cosine using the two-term
// recurrence x[n] = 2cos(w)x[n-1] - x[n-2].
func addMode(out []float64, amp, freq, phase, decay float64, sampleRate int) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := 1.0

	out[0] += amp * env * x0
	env *= decay
	if len(out) == 1 {
		return
	}
	out[1] += amp * env * x1
	env *= decay
	for i := 2; i < len(out); i++ {
		x2 := 2.0*cw*x1 - x0
		x0 = x1
		x1 = x2
		out[i] += amp * env * x2
		env *= decay
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
