package webaudio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// oscillatorType returns the OscillatorNode type for w. Custom waveforms
// are set through a PeriodicWave instead.
func oscillatorType(w backend.Waveform) (string, error) {
	switch w {
	case backend.Sine, backend.Triangle, backend.Square, backend.Sawtooth:
		return w.String(), nil
	}
	return "", fmt.Errorf("%w: waveform %s has no native type", backend.ErrInvalidConfig, w)
}

func filterType(k backend.FilterKind) (string, error) {
	switch k {
	case backend.Lowpass, backend.Highpass:
		return k.String(), nil
	}
	return "", fmt.Errorf("%w: filter kind %s", backend.ErrInvalidConfig, k)
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

func toFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// validCompressor checks the ranges a DynamicsCompressorNode accepts.
func validCompressor(s backend.CompressorSettings) error {
	switch {
	case s.ThresholdDB < -100 || s.ThresholdDB > 0:
		return fmt.Errorf("%w: threshold %g dB", backend.ErrInvalidConfig, s.ThresholdDB)
	case s.KneeDB < 0 || s.KneeDB > 40:
		return fmt.Errorf("%w: knee %g dB", backend.ErrInvalidConfig, s.KneeDB)
	case s.Ratio < 1 || s.Ratio > 20:
		return fmt.Errorf("%w: ratio %g", backend.ErrInvalidConfig, s.Ratio)
	case s.Attack < 0 || s.Attack > 1:
		return fmt.Errorf("%w: attack %g s", backend.ErrInvalidConfig, s.Attack)
	case s.Release < 0 || s.Release > 1:
		return fmt.Errorf("%w: release %g s", backend.ErrInvalidConfig, s.Release)
	}
	return nil
}
