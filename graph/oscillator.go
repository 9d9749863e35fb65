package graph

import (
	"fmt"

	approx "github.com/cwbudde/algo-approx"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/dsp"
)

// Oscillator renders a standard waveform or a periodic wavetable between
// its start and stop frames.
type Oscillator struct {
	base
	wave   backend.Waveform
	table  []float64
	freq   *param
	detune *param
	phase  float64

	startFrame int64
	stopFrame  int64
	ended      bool
	onEnded    []func()
}

var _ backend.Oscillator = (*Oscillator)(nil)

func (o *Oscillator) Frequency() backend.Param { return o.freq }
func (o *Oscillator) Detune() backend.Param    { return o.detune }

func (o *Oscillator) SetWaveform(w backend.Waveform) error {
	if w == backend.Custom {
		return fmt.Errorf("%w: custom waveform needs a periodic wave", backend.ErrInvalidConfig)
	}
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.wave = w
	o.table = nil
	return nil
}

func (o *Oscillator) SetPeriodicWave(w backend.PeriodicWave) error {
	pw, ok := w.(*PeriodicWave)
	if !ok {
		return fmt.Errorf("%w: periodic wave %T", backend.ErrForeignNode, w)
	}
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.wave = backend.Custom
	o.table = pw.table
	return nil
}

// Waveform reports the current waveform kind.
func (o *Oscillator) Waveform() backend.Waveform {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return o.wave
}

func (o *Oscillator) Start(t float64) error {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.closed {
		return fmt.Errorf("%w: %s", backend.ErrClosed, o)
	}
	if o.startFrame >= 0 {
		return fmt.Errorf("%w: %s already started", backend.ErrInvalidState, o)
	}
	o.startFrame = max(c.frameOf(t), c.frame)
	return nil
}

func (o *Oscillator) Stop(t float64) error {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.closed {
		return fmt.Errorf("%w: %s", backend.ErrClosed, o)
	}
	if o.startFrame < 0 {
		return fmt.Errorf("%w: %s not started", backend.ErrInvalidState, o)
	}
	if o.stopFrame >= 0 {
		return fmt.Errorf("%w: %s already stopped", backend.ErrInvalidState, o)
	}
	o.stopFrame = max(c.frameOf(t), o.startFrame, c.frame)
	c.schedule(o.stopFrame, o.end)
	return nil
}

// end runs on the render thread with the context locked.
func (o *Oscillator) end() {
	if o.ended {
		return
	}
	o.ended = true
	o.ctx.pending = append(o.ctx.pending, o.onEnded...)
	o.onEnded = nil
}

func (o *Oscillator) OnEnded(fn func()) {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.ended {
		c.pending = append(c.pending, fn)
		return
	}
	o.onEnded = append(o.onEnded, fn)
}

// StartTime reports the scheduled start; ok is false before Start.
func (o *Oscillator) StartTime() (float64, bool) {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(o.startFrame) / c.sampleRate, o.startFrame >= 0
}

// StopTime reports the frame-aligned stop time; ok is false before Stop.
func (o *Oscillator) StopTime() (float64, bool) {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(o.stopFrame) / c.sampleRate, o.stopFrame >= 0
}

// Ended reports whether the render clock has passed the stop frame.
func (o *Oscillator) Ended() bool {
	c := o.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return o.ended
}

func (o *Oscillator) render(_ frame, n int64) frame {
	if o.startFrame < 0 || n < o.startFrame || (o.stopFrame >= 0 && n >= o.stopFrame) {
		return frame{}
	}
	f := o.freq.at(n)
	if d := o.detune.at(n); d != 0 {
		f *= centsToRatio(d)
	}
	dt := f / o.ctx.sampleRate

	var v float64
	switch o.wave {
	case backend.Sine:
		v = dsp.Sine(o.phase)
	case backend.Triangle:
		v = dsp.Triangle(o.phase)
	case backend.Square:
		v = dsp.Square(o.phase, dt)
	case backend.Sawtooth:
		v = dsp.Sawtooth(o.phase, dt)
	case backend.Custom:
		v = dsp.TableLookup(o.table, o.phase)
	}
	o.phase = dsp.AdvancePhase(o.phase, dt)
	return frame{v, v}
}

func centsToRatio(cents float64) float64 {
	const ln2 = 0.69314718055994530942
	return float64(approx.FastExp(float32(cents / 1200 * ln2)))
}
