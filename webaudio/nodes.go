package webaudio

import (
	"sync"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/gopherjs/gopherjs/js"
)

// node is a graph vertex. in receives connections and out feeds them;
// both are the same object for single-node wrappers.
type node struct {
	c          *Context
	in, out    *js.Object
	internal   []*js.Object
	registered bool

	mu     sync.Mutex
	closed bool
}

type jsNode interface {
	base() *node
}

func (n *node) base() *node { return n }

func (n *node) Connect(dst backend.Node) error {
	d, ok := dst.(jsNode)
	if !ok || d.base().c != n.c {
		return backend.ErrForeignNode
	}
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed || d.base().isClosed() {
		return backend.ErrClosed
	}
	n.out.Call("connect", d.base().in)
	return nil
}

func (n *node) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *node) Disconnect() error {
	if n.isClosed() {
		return backend.ErrClosed
	}
	n.out.Call("disconnect")
	return nil
}

func (n *node) Close() error {
	n.mu.Lock()
	if n.closed || !n.registered {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	n.out.Call("disconnect")
	if n.in != n.out {
		n.in.Call("disconnect")
	}
	for _, o := range n.internal {
		o.Call("disconnect")
	}
	n.c.release()
	return nil
}

type Gain struct {
	*node
	gain *param
}

func (g *Gain) Gain() backend.Param { return g.gain }

type ChannelGain struct {
	*node
	left, right *param
}

func (g *ChannelGain) Left() backend.Param  { return g.left }
func (g *ChannelGain) Right() backend.Param { return g.right }

type BiquadFilter struct {
	*node
	kind backend.FilterKind
	freq *param
	q    *param
}

func (f *BiquadFilter) Kind() backend.FilterKind  { return f.kind }
func (f *BiquadFilter) Frequency() backend.Param { return f.freq }
func (f *BiquadFilter) Q() backend.Param         { return f.q }

type PeriodicWave struct {
	obj       *js.Object
	harmonics int
}

func (w *PeriodicWave) Harmonics() int { return w.harmonics }

// Oscillator wraps an OscillatorNode. Ended callbacks run from the
// browser's onended event.
type Oscillator struct {
	*node
	freq   *param
	detune *param

	cbMu    sync.Mutex
	ended   []func()
	hooked  bool
	started bool
	stopped bool
}

func (o *Oscillator) Frequency() backend.Param { return o.freq }
func (o *Oscillator) Detune() backend.Param    { return o.detune }

func (o *Oscillator) SetWaveform(w backend.Waveform) error {
	typ, err := oscillatorType(w)
	if err != nil {
		return err
	}
	o.in.Set("type", typ)
	return nil
}

func (o *Oscillator) SetPeriodicWave(w backend.PeriodicWave) error {
	pw, ok := w.(*PeriodicWave)
	if !ok {
		return backend.ErrForeignNode
	}
	o.in.Call("setPeriodicWave", pw.obj)
	return nil
}

func (o *Oscillator) Start(t float64) error {
	o.cbMu.Lock()
	defer o.cbMu.Unlock()
	if o.started {
		return backend.ErrInvalidState
	}
	o.started = true
	o.in.Call("start", t)
	return nil
}

func (o *Oscillator) Stop(t float64) error {
	o.cbMu.Lock()
	defer o.cbMu.Unlock()
	if !o.started || o.stopped {
		return backend.ErrInvalidState
	}
	o.stopped = true
	o.in.Call("stop", t)
	return nil
}

func (o *Oscillator) OnEnded(fn func()) {
	o.cbMu.Lock()
	defer o.cbMu.Unlock()
	o.ended = append(o.ended, fn)
	if o.hooked {
		return
	}
	o.hooked = true
	o.in.Set("onended", func() {
		o.cbMu.Lock()
		fns := o.ended
		o.ended = nil
		o.cbMu.Unlock()
		for _, f := range fns {
			f()
		}
	})
}
