// Package graph is a native render engine for the backend interfaces. It
// pulls stereo frames through the node graph one sample at a time and
// evaluates every parameter from its automation timeline at that sample.
package graph

import (
	"container/heap"
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/dsp"
)

// RenderQuantum is the number of frames rendered between callback flushes.
const RenderQuantum = 128

type Option func(*Context)

// WithMaxNodes caps the number of live nodes. Zero means no limit.
func WithMaxNodes(n int) Option {
	return func(c *Context) {
		c.maxNodes = n
	}
}

// Context owns the render clock and every node created from it.
type Context struct {
	mu         sync.Mutex
	sampleRate float64
	frame      int64
	maxNodes   int
	nextID     uint64

	nodes   map[*base]struct{}
	dest    *destination
	events  eventQueue
	seq     uint64
	pending []func()
}

var _ backend.Context = (*Context)(nil)

// NewContext creates a render context at the given sample rate.
func NewContext(sampleRate int, opts ...Option) *Context {
	c := &Context{
		sampleRate: float64(sampleRate),
		nodes:      make(map[*base]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dest = &destination{}
	c.dest.setup(c, "destination", c.dest)
	return c
}

func (c *Context) SampleRate() float64 { return c.sampleRate }

func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

// Frame reports the index of the next frame to render.
func (c *Context) Frame() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Context) now() float64 {
	return float64(c.frame) / c.sampleRate
}

// frameOf maps a time to the first frame at or after it.
func (c *Context) frameOf(t float64) int64 {
	f := int64(math.Ceil(t*c.sampleRate - 1e-9))
	if f < 0 {
		return 0
	}
	return f
}

func (c *Context) Destination() backend.Node { return c.dest }

// LiveNodes reports nodes created and not yet closed.
func (c *Context) LiveNodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// LiveNodesByKind groups live nodes by kind, e.g. "oscillator".
func (c *Context) LiveNodesByKind() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int)
	for n := range c.nodes {
		out[n.kind]++
	}
	return out
}

func (c *Context) register(b *base) error {
	if c.maxNodes > 0 && len(c.nodes) >= c.maxNodes {
		return fmt.Errorf("%w: %d live nodes", backend.ErrNodeLimit, len(c.nodes))
	}
	c.nodes[b] = struct{}{}
	return nil
}

// Process renders numFrames stereo frames and returns them interleaved.
func (c *Context) Process(numFrames int) []float32 {
	out := make([]float32, numFrames*2)
	c.Render(out)
	return out
}

// Render fills dst with interleaved stereo frames. Ended callbacks run
// between render quanta with the context unlocked.
func (c *Context) Render(dst []float32) {
	frames := len(dst) / 2
	for start := 0; start < frames; start += RenderQuantum {
		end := start + RenderQuantum
		if end > frames {
			end = frames
		}

		c.mu.Lock()
		c.pruneAutomation()
		for i := start; i < end; i++ {
			f := c.dest.pull(c.frame)
			dst[2*i] = float32(f.l)
			dst[2*i+1] = float32(f.r)
			c.frame++
		}
		c.fireDue()
		callbacks := c.pending
		c.pending = nil
		c.mu.Unlock()

		for _, fn := range callbacks {
			fn()
		}
	}
}

func (c *Context) pruneAutomation() {
	now := c.now()
	for n := range c.nodes {
		for _, p := range n.params {
			p.tl.Prune(now)
		}
	}
}

func (c *Context) schedule(frame int64, fn func()) {
	c.seq++
	heap.Push(&c.events, &event{frame: frame, seq: c.seq, fn: fn})
}

func (c *Context) fireDue() {
	for len(c.events) > 0 && c.events[0].frame <= c.frame {
		ev := heap.Pop(&c.events).(*event)
		ev.fn()
	}
}

func (c *Context) NewOscillator() (backend.Oscillator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := &Oscillator{startFrame: -1, stopFrame: -1, wave: backend.Sine}
	if err := o.init(c, "oscillator", o); err != nil {
		return nil, err
	}
	o.freq = o.newParam(440, -c.sampleRate/2, c.sampleRate/2)
	o.detune = o.newParam(0, -153600, 153600)
	return o, nil
}

func (c *Context) NewPeriodicWave(real, imag []float64) (backend.PeriodicWave, error) {
	if imag != nil && len(imag) != len(real) {
		return nil, fmt.Errorf("%w: real and imag lengths differ (%d, %d)", backend.ErrInvalidConfig, len(real), len(imag))
	}
	if len(real) < 2 {
		return nil, fmt.Errorf("%w: periodic wave needs at least one harmonic", backend.ErrInvalidConfig)
	}
	for _, v := range append(append([]float64(nil), real...), imag...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", backend.ErrInvalidValue)
		}
	}
	return &PeriodicWave{
		table:     dsp.PeriodicTable(real, imag, dsp.DefaultTableSize),
		harmonics: len(real) - 1,
	}, nil
}

func (c *Context) NewGain() (backend.Gain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := &Gain{}
	if err := g.init(c, "gain", g); err != nil {
		return nil, err
	}
	g.gain = g.newParam(1, math.Inf(-1), math.Inf(1))
	return g, nil
}

func (c *Context) NewChannelGain() (backend.ChannelGain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := &ChannelGain{}
	if err := g.init(c, "channel-gain", g); err != nil {
		return nil, err
	}
	g.left = g.newParam(1, math.Inf(-1), math.Inf(1))
	g.right = g.newParam(1, math.Inf(-1), math.Inf(1))
	return g, nil
}

func (c *Context) NewWaveShaper(curve []float64) (backend.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &WaveShaper{curve: append([]float64(nil), curve...)}
	if err := w.init(c, "waveshaper", w); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *Context) NewBiquadFilter(kind backend.FilterKind) (backend.BiquadFilter, error) {
	if kind != backend.Lowpass && kind != backend.Highpass {
		return nil, fmt.Errorf("%w: filter kind %s", backend.ErrInvalidConfig, kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &BiquadFilter{
		kind:  kind,
		left:  dsp.NewBiquad(dsp.LowpassCoefficients(350, 1, c.sampleRate)),
		right: dsp.NewBiquad(dsp.LowpassCoefficients(350, 1, c.sampleRate)),
		lastF: math.NaN(),
	}
	if err := f.init(c, "biquad", f); err != nil {
		return nil, err
	}
	f.freq = f.newParam(350, 0, c.sampleRate/2)
	f.q = f.newParam(1, 1e-4, 1000)
	return f, nil
}

func (c *Context) NewCompressor(s backend.CompressorSettings) (backend.Node, error) {
	if s.Ratio < 1 || s.KneeDB < 0 || s.Attack < 0 || s.Release < 0 {
		return nil, fmt.Errorf("%w: compressor %+v", backend.ErrInvalidConfig, s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &Compressor{
		comp: dsp.NewCompressor(c.sampleRate, s.ThresholdDB, s.KneeDB, s.Ratio, s.Attack, s.Release, s.MakeupDB),
	}
	if err := n.init(c, "compressor", n); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *Context) NewConvolver(left, right []float32) (backend.Node, error) {
	if len(left) == 0 {
		return nil, fmt.Errorf("%w: empty impulse response", backend.ErrInvalidConfig)
	}
	if len(right) == 0 {
		right = left
	}
	conv, err := newConvolver(left, right, RenderQuantum)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := conv.init(c, "convolver", conv); err != nil {
		return nil, err
	}
	return conv, nil
}
