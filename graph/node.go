package graph

import (
	"fmt"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// frame is one stereo sample.
type frame struct {
	l, r float64
}

type renderer interface {
	render(in frame, n int64) frame
}

type graphNode interface {
	node() *base
}

// base carries the connection bookkeeping shared by every node. All
// fields are guarded by the owning context's mutex.
type base struct {
	ctx  *Context
	id   uint64
	kind string
	self renderer

	inputs  []*base
	outputs []*base
	params  []*param
	closed  bool

	stamp int64
	out   frame
	busy  bool
}

func (b *base) node() *base { return b }

func (b *base) setup(c *Context, kind string, self renderer) {
	c.nextID++
	b.ctx = c
	b.id = c.nextID
	b.kind = kind
	b.self = self
	b.stamp = -1
}

func (b *base) init(c *Context, kind string, self renderer) error {
	if err := c.register(b); err != nil {
		return err
	}
	b.setup(c, kind, self)
	return nil
}

func (b *base) String() string {
	return fmt.Sprintf("%s#%d", b.kind, b.id)
}

// ID is unique within the owning context.
func (b *base) ID() uint64 { return b.id }

// Kind names the node type.
func (b *base) Kind() string { return b.kind }

// pull returns the node output for frame n. A node reached again while it
// is being computed returns its previous output, so cycles act as a
// one-sample delay.
func (b *base) pull(n int64) frame {
	if b.stamp == n || b.busy {
		return b.out
	}
	b.busy = true
	var in frame
	for _, src := range b.inputs {
		f := src.pull(n)
		in.l += f.l
		in.r += f.r
	}
	b.out = b.self.render(in, n)
	b.stamp = n
	b.busy = false
	return b.out
}

func (b *base) Connect(dst backend.Node) error {
	gn, ok := dst.(graphNode)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignNode, dst)
	}
	d := gn.node()
	c := b.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.ctx != c {
		return fmt.Errorf("%w: %s", backend.ErrForeignNode, d)
	}
	if b.closed || d.closed {
		return fmt.Errorf("%w: connect %s -> %s", backend.ErrClosed, b, d)
	}
	for _, o := range b.outputs {
		if o == d {
			return nil
		}
	}
	b.outputs = append(b.outputs, d)
	d.inputs = append(d.inputs, b)
	return nil
}

func (b *base) Disconnect() error {
	c := b.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	b.disconnectOutputs()
	return nil
}

func (b *base) disconnectOutputs() {
	for _, d := range b.outputs {
		d.inputs = removeNode(d.inputs, b)
	}
	b.outputs = nil
}

func (b *base) Close() error {
	c := b.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.closed {
		return nil
	}
	b.disconnectOutputs()
	for _, s := range b.inputs {
		s.outputs = removeNode(s.outputs, b)
	}
	b.inputs = nil
	b.closed = true
	delete(c.nodes, b)
	return nil
}

func (b *base) newParam(def, lo, hi float64) *param {
	p := newParam(b, def, lo, hi)
	b.params = append(b.params, p)
	return p
}

func removeNode(list []*base, n *base) []*base {
	out := list[:0]
	for _, x := range list {
		if x != n {
			out = append(out, x)
		}
	}
	return out
}
