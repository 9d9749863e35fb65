// Package webaudio directs a browser AudioContext through the backend
// interfaces. It is meant to be compiled with gopherjs.
package webaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/gopherjs/gopherjs/js"
)

var ErrUnsupported = errors.New("webaudio: AudioContext not available")

type Option func(*Context)

// WithMaxNodes caps the number of live nodes. Zero means no limit.
func WithMaxNodes(n int) Option {
	return func(c *Context) { c.maxNodes = n }
}

// Context wraps an AudioContext.
type Context struct {
	ctx  *js.Object
	dest *node

	mu       sync.Mutex
	live     int
	maxNodes int
}

var _ backend.Context = (*Context)(nil)

// New creates a fresh AudioContext.
func New(opts ...Option) (*Context, error) {
	ctor := js.Global.Get("AudioContext")
	if ctor == nil || ctor == js.Undefined {
		ctor = js.Global.Get("webkitAudioContext")
	}
	if ctor == nil || ctor == js.Undefined {
		return nil, ErrUnsupported
	}
	return Wrap(ctor.New(), opts...), nil
}

// Wrap directs an existing AudioContext.
func Wrap(ctx *js.Object, opts ...Option) *Context {
	c := &Context{ctx: ctx}
	for _, opt := range opts {
		opt(c)
	}
	dst := ctx.Get("destination")
	c.dest = &node{c: c, in: dst, out: dst, registered: false}
	return c
}

// Resume starts a context the browser created suspended.
func (c *Context) Resume() {
	if c.ctx.Get("state").String() == "suspended" {
		c.ctx.Call("resume")
	}
}

func (c *Context) SampleRate() float64  { return c.ctx.Get("sampleRate").Float() }
func (c *Context) CurrentTime() float64 { return c.ctx.Get("currentTime").Float() }
func (c *Context) Destination() backend.Node {
	return c.dest
}

// LiveNodes reports nodes created and not yet closed.
func (c *Context) LiveNodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Context) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxNodes > 0 && c.live >= c.maxNodes {
		return fmt.Errorf("%w: %d live nodes", backend.ErrNodeLimit, c.live)
	}
	c.live++
	return nil
}

func (c *Context) release() {
	c.mu.Lock()
	c.live--
	c.mu.Unlock()
}

func (c *Context) newNode(in, out *js.Object, internal ...*js.Object) (*node, error) {
	if err := c.reserve(); err != nil {
		return nil, err
	}
	return &node{c: c, in: in, out: out, internal: internal, registered: true}, nil
}

func (c *Context) NewOscillator() (backend.Oscillator, error) {
	obj := c.ctx.Call("createOscillator")
	n, err := c.newNode(obj, obj)
	if err != nil {
		return nil, err
	}
	return &Oscillator{
		node:   n,
		freq:   newParam(c, obj.Get("frequency"), 440),
		detune: newParam(c, obj.Get("detune"), 0),
	}, nil
}

func (c *Context) NewPeriodicWave(real, imag []float64) (backend.PeriodicWave, error) {
	if len(real) != len(imag) || len(real) < 2 {
		return nil, fmt.Errorf("%w: periodic wave needs matching coefficient slices of length >= 2", backend.ErrInvalidConfig)
	}
	w := c.ctx.Call("createPeriodicWave", toFloat32(real), toFloat32(imag))
	return &PeriodicWave{obj: w, harmonics: len(real) - 1}, nil
}

func (c *Context) NewGain() (backend.Gain, error) {
	obj := c.ctx.Call("createGain")
	n, err := c.newNode(obj, obj)
	if err != nil {
		return nil, err
	}
	return &Gain{node: n, gain: newParam(c, obj.Get("gain"), 1)}, nil
}

// NewChannelGain builds a splitter, one gain per channel and a merger.
func (c *Context) NewChannelGain() (backend.ChannelGain, error) {
	split := c.ctx.Call("createChannelSplitter", 2)
	merge := c.ctx.Call("createChannelMerger", 2)
	left := c.ctx.Call("createGain")
	right := c.ctx.Call("createGain")
	split.Call("connect", left, 0)
	split.Call("connect", right, 1)
	left.Call("connect", merge, 0, 0)
	right.Call("connect", merge, 0, 1)

	n, err := c.newNode(split, merge, left, right)
	if err != nil {
		return nil, err
	}
	return &ChannelGain{
		node:  n,
		left:  newParam(c, left.Get("gain"), 1),
		right: newParam(c, right.Get("gain"), 1),
	}, nil
}

func (c *Context) NewWaveShaper(curve []float64) (backend.Node, error) {
	if len(curve) < 2 {
		return nil, fmt.Errorf("%w: shaper curve needs >= 2 points", backend.ErrInvalidConfig)
	}
	obj := c.ctx.Call("createWaveShaper")
	obj.Set("curve", toFloat32(curve))
	return c.newNode(obj, obj)
}

func (c *Context) NewBiquadFilter(kind backend.FilterKind) (backend.BiquadFilter, error) {
	typ, err := filterType(kind)
	if err != nil {
		return nil, err
	}
	obj := c.ctx.Call("createBiquadFilter")
	obj.Set("type", typ)
	n, err := c.newNode(obj, obj)
	if err != nil {
		return nil, err
	}
	return &BiquadFilter{
		node: n,
		kind: kind,
		freq: newParam(c, obj.Get("frequency"), 350),
		q:    newParam(c, obj.Get("Q"), 1),
	}, nil
}

// NewCompressor follows the compressor with a makeup gain stage.
func (c *Context) NewCompressor(s backend.CompressorSettings) (backend.Node, error) {
	if err := validCompressor(s); err != nil {
		return nil, err
	}
	comp := c.ctx.Call("createDynamicsCompressor")
	comp.Get("threshold").Set("value", s.ThresholdDB)
	comp.Get("knee").Set("value", s.KneeDB)
	comp.Get("ratio").Set("value", s.Ratio)
	comp.Get("attack").Set("value", s.Attack)
	comp.Get("release").Set("value", s.Release)
	makeup := c.ctx.Call("createGain")
	makeup.Get("gain").Set("value", dbToGain(s.MakeupDB))
	comp.Call("connect", makeup)
	return c.newNode(comp, makeup)
}

func (c *Context) NewConvolver(left, right []float32) (backend.Node, error) {
	if len(left) == 0 || len(left) != len(right) {
		return nil, fmt.Errorf("%w: impulse response channels must be non-empty and equal length", backend.ErrInvalidConfig)
	}
	buf := c.ctx.Call("createBuffer", 2, len(left), c.SampleRate())
	buf.Call("copyToChannel", left, 0)
	buf.Call("copyToChannel", right, 1)
	obj := c.ctx.Call("createConvolver")
	obj.Set("normalize", false)
	obj.Set("buffer", buf)
	return c.newNode(obj, obj)
}
