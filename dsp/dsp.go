package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// Biquad implements a second-order IIR filter whose coefficients can be
// replaced without clearing its state.
type Biquad struct {
	c biquad.Coefficients

	// State (previous samples)
	x1, x2 float64
	y1, y2 float64
}

// NewBiquad creates a new biquad filter with the given coefficients
func NewBiquad(c biquad.Coefficients) *Biquad {
	return &Biquad{c: c}
}

// SetCoefficients swaps the coefficients in place.
func (b *Biquad) SetCoefficients(c biquad.Coefficients) {
	b.c = c
}

func (b *Biquad) Coefficients() biquad.Coefficients {
	return b.c
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float64) float64 {
	// Direct Form I implementation
	output := b.c.B0*input + b.c.B1*b.x1 + b.c.B2*b.x2 - b.c.A1*b.y1 - b.c.A2*b.y2
	output = dspcore.FlushDenormals(output)

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// LowpassCoefficients designs an RBJ low-pass section. The cutoff is
// clamped just below Nyquist.
func LowpassCoefficients(cutoff, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := rbj(cutoff, q, sampleRate)
	if !ok {
		return biquad.Coefficients{B0: 1}
	}
	inv := 1.0 / (1.0 + alpha)
	return biquad.Coefficients{
		B0: ((1 - cw) * 0.5) * inv,
		B1: (1 - cw) * inv,
		B2: ((1 - cw) * 0.5) * inv,
		A1: (-2 * cw) * inv,
		A2: (1 - alpha) * inv,
	}
}

// HighpassCoefficients designs an RBJ high-pass section.
func HighpassCoefficients(cutoff, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := rbj(cutoff, q, sampleRate)
	if !ok {
		return biquad.Coefficients{B0: 1}
	}
	inv := 1.0 / (1.0 + alpha)
	return biquad.Coefficients{
		B0: ((1 + cw) * 0.5) * inv,
		B1: -(1 + cw) * inv,
		B2: ((1 + cw) * 0.5) * inv,
		A1: (-2 * cw) * inv,
		A2: (1 - alpha) * inv,
	}
}

func rbj(cutoff, q, sampleRate float64) (cw, alpha float64, ok bool) {
	if sampleRate <= 0 || cutoff <= 0 || q <= 0 {
		return 0, 0, false
	}
	nyquist := 0.5 * sampleRate
	if cutoff > 0.999*nyquist {
		cutoff = 0.999 * nyquist
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	return math.Cos(w0), math.Sin(w0) / (2 * q), true
}

// NewLowpassSection returns an algo-dsp section for a fixed low-pass.
func NewLowpassSection(cutoff, q, sampleRate float64) *biquad.Section {
	return biquad.NewSection(LowpassCoefficients(cutoff, q, sampleRate))
}

// NewHighpassSection returns an algo-dsp section for a fixed high-pass.
func NewHighpassSection(cutoff, q, sampleRate float64) *biquad.Section {
	return biquad.NewSection(HighpassCoefficients(cutoff, q, sampleRate))
}

// DBToGain converts decibels to a linear factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainToDB converts a linear factor to decibels, with -200 dB for silence.
func GainToDB(g float64) float64 {
	if g <= 1e-10 {
		return -200
	}
	return 20 * math.Log10(g)
}
