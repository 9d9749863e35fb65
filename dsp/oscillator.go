package dsp

import "math"

// Phase values are normalized to [0, 1).

func Sine(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

// Triangle starts at zero and rises, matching the sine phase.
func Triangle(phase float64) float64 {
	switch {
	case phase < 0.25:
		return 4 * phase
	case phase < 0.75:
		return 2 - 4*phase
	default:
		return 4*phase - 4
	}
}

// Square is band-limited with PolyBLEP; dt is the phase increment.
func Square(phase, dt float64) float64 {
	v := 1.0
	if phase >= 0.5 {
		v = -1.0
	}
	v += polyBLEP(phase, dt)
	p := phase + 0.5
	if p >= 1 {
		p--
	}
	return v - polyBLEP(p, dt)
}

// Sawtooth rises from -1 to 1 over one period, band-limited with PolyBLEP.
func Sawtooth(phase, dt float64) float64 {
	p := phase + 0.5
	if p >= 1 {
		p--
	}
	return 2*p - 1 - polyBLEP(p, dt)
}

func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}

// AdvancePhase wraps phase+inc into [0, 1).
func AdvancePhase(phase, inc float64) float64 {
	phase += inc
	if phase >= 1 || phase < 0 {
		phase -= math.Floor(phase)
	}
	return phase
}
