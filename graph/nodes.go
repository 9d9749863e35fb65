package graph

import (
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/dsp"
)

type destination struct {
	base
}

func (d *destination) render(in frame, _ int64) frame { return in }

// Close is a no-op; the destination lives as long as its context.
func (d *destination) Close() error { return nil }

// Gain scales both channels by an automatable factor.
type Gain struct {
	base
	gain *param
}

var _ backend.Gain = (*Gain)(nil)

func (g *Gain) Gain() backend.Param { return g.gain }

func (g *Gain) render(in frame, n int64) frame {
	v := g.gain.at(n)
	return frame{in.l * v, in.r * v}
}

// ChannelGain applies separate left and right gains.
type ChannelGain struct {
	base
	left, right *param
}

var _ backend.ChannelGain = (*ChannelGain)(nil)

func (g *ChannelGain) Left() backend.Param  { return g.left }
func (g *ChannelGain) Right() backend.Param { return g.right }

func (g *ChannelGain) render(in frame, n int64) frame {
	return frame{in.l * g.left.at(n), in.r * g.right.at(n)}
}

// WaveShaper maps each channel through a transfer curve.
type WaveShaper struct {
	base
	curve []float64
}

func (w *WaveShaper) render(in frame, _ int64) frame {
	return frame{dsp.Shape(w.curve, in.l), dsp.Shape(w.curve, in.r)}
}

// BiquadFilter redesigns its coefficients whenever the automated
// frequency or Q changes.
type BiquadFilter struct {
	base
	kind        backend.FilterKind
	freq, q     *param
	left, right *dsp.Biquad
	lastF       float64
	lastQ       float64
}

var _ backend.BiquadFilter = (*BiquadFilter)(nil)

func (f *BiquadFilter) Kind() backend.FilterKind { return f.kind }
func (f *BiquadFilter) Frequency() backend.Param { return f.freq }
func (f *BiquadFilter) Q() backend.Param         { return f.q }

func (f *BiquadFilter) render(in frame, n int64) frame {
	fc := f.freq.at(n)
	q := f.q.at(n)
	if fc != f.lastF || q != f.lastQ || math.IsNaN(f.lastF) {
		sr := f.ctx.sampleRate
		c := dsp.LowpassCoefficients(fc, q, sr)
		if f.kind == backend.Highpass {
			c = dsp.HighpassCoefficients(fc, q, sr)
		}
		f.left.SetCoefficients(c)
		f.right.SetCoefficients(c)
		f.lastF, f.lastQ = fc, q
	}
	return frame{f.left.Process(in.l), f.right.Process(in.r)}
}

// Compressor is a stereo-linked dynamics compressor node.
type Compressor struct {
	base
	comp *dsp.Compressor
}

// ReductionDB reports the current gain reduction.
func (c *Compressor) ReductionDB() float64 {
	c.ctx.mu.Lock()
	defer c.ctx.mu.Unlock()
	return c.comp.ReductionDB()
}

func (c *Compressor) render(in frame, _ int64) frame {
	l, r := c.comp.ProcessStereo(in.l, in.r)
	return frame{l, r}
}

// PeriodicWave is a normalized single-period wavetable.
type PeriodicWave struct {
	table     []float64
	harmonics int
}

func (w *PeriodicWave) Harmonics() int { return w.harmonics }
