package graph

import (
	"fmt"

	"github.com/cwbudde/algo-layerpiano/automation"
	"github.com/cwbudde/algo-layerpiano/backend"
)

type param struct {
	owner  *base
	tl     *automation.Timeline
	lo, hi float64
}

var _ backend.Param = (*param)(nil)

func newParam(owner *base, def, lo, hi float64) *param {
	p := &param{owner: owner, tl: automation.New(def), lo: lo, hi: hi}
	p.tl.Now = owner.ctx.now
	return p
}

// at evaluates the parameter for frame n. Caller holds the context lock.
func (p *param) at(n int64) float64 {
	v := p.tl.ValueAt(float64(n) / p.owner.ctx.sampleRate)
	if v < p.lo {
		return p.lo
	}
	if v > p.hi {
		return p.hi
	}
	return v
}

func (p *param) Value() float64 {
	c := p.owner.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.at(c.frame)
}

// ValueAtTime evaluates the timeline at an arbitrary time.
func (p *param) ValueAtTime(t float64) float64 {
	c := p.owner.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.tl.ValueAt(t)
}

// Events returns the scheduled automation events.
func (p *param) Events() []automation.Event {
	c := p.owner.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.tl.Events()
}

func (p *param) do(op func() error) error {
	c := p.owner.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.owner.closed {
		return fmt.Errorf("%w: %s", backend.ErrClosed, p.owner)
	}
	return op()
}

func (p *param) SetValueAtTime(value, t float64) error {
	return p.do(func() error { return p.tl.SetValueAtTime(value, t) })
}

func (p *param) LinearRampToValueAtTime(value, t float64) error {
	return p.do(func() error { return p.tl.LinearRampToValueAtTime(value, t) })
}

func (p *param) ExponentialRampToValueAtTime(value, t float64) error {
	return p.do(func() error { return p.tl.ExponentialRampToValueAtTime(value, t) })
}

func (p *param) CancelScheduledValues(t float64) error {
	return p.do(func() error { return p.tl.CancelScheduledValues(t) })
}

func (p *param) CancelAndHoldAtTime(t float64) (float64, error) {
	var held float64
	err := p.do(func() error {
		var err error
		held, err = p.tl.CancelAndHoldAtTime(t)
		return err
	})
	return held, err
}

// Inspector is implemented by graph params for tests and tooling.
type Inspector interface {
	ValueAtTime(t float64) float64
	Events() []automation.Event
}
