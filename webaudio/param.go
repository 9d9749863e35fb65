package webaudio

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-layerpiano/automation"
	"github.com/gopherjs/gopherjs/js"
)

// param forwards automation to an AudioParam and mirrors it on a local
// timeline, which answers Value and the held value of a cancel.
type param struct {
	c   *Context
	obj *js.Object

	mu sync.Mutex
	tl *automation.Timeline
}

func newParam(c *Context, obj *js.Object, initial float64) *param {
	obj.Set("value", initial)
	tl := automation.New(initial)
	tl.Now = c.CurrentTime
	return &param{c: c, obj: obj, tl: tl}
}

func (p *param) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tl.ValueAt(p.c.CurrentTime())
}

func (p *param) SetValueAtTime(value, t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tl.SetValueAtTime(value, t); err != nil {
		return err
	}
	p.obj.Call("setValueAtTime", value, t)
	return nil
}

func (p *param) LinearRampToValueAtTime(value, t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tl.LinearRampToValueAtTime(value, t); err != nil {
		return err
	}
	p.obj.Call("linearRampToValueAtTime", value, t)
	return nil
}

func (p *param) ExponentialRampToValueAtTime(value, t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tl.ExponentialRampToValueAtTime(value, t); err != nil {
		return err
	}
	p.obj.Call("exponentialRampToValueAtTime", value, t)
	return nil
}

func (p *param) CancelScheduledValues(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tl.CancelScheduledValues(t); err != nil {
		return err
	}
	p.obj.Call("cancelScheduledValues", t)
	return nil
}

// CancelAndHoldAtTime falls back to cancel plus set on browsers without
// cancelAndHoldAtTime.
func (p *param) CancelAndHoldAtTime(t float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	held, err := p.tl.CancelAndHoldAtTime(t)
	if err != nil {
		return 0, err
	}
	if fn := p.obj.Get("cancelAndHoldAtTime"); fn != nil && fn != js.Undefined {
		p.obj.Call("cancelAndHoldAtTime", t)
		return held, nil
	}
	p.obj.Call("cancelScheduledValues", math.Max(0, t))
	p.obj.Call("setValueAtTime", held, t)
	return held, nil
}
