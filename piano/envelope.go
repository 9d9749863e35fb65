package piano

import (
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// envelope drives the master gain on a single automation timeline.
type envelope struct {
	gain backend.Gain
	cfg  EnvelopeConfig
}

func newEnvelope(ctx backend.Context, cfg EnvelopeConfig, t0 float64) (*envelope, error) {
	g, err := ctx.NewGain()
	if err != nil {
		return nil, err
	}
	e := &envelope{gain: g, cfg: cfg}
	if err := e.schedule(t0); err != nil {
		g.Close()
		return nil, err
	}
	return e, nil
}

// schedule lays out attack (linear 0->1) and decay (exponential 1->sustain).
// Sustain holds with no further events.
func (e *envelope) schedule(t0 float64) error {
	p := e.gain.Gain()
	if err := p.SetValueAtTime(0, t0); err != nil {
		return err
	}
	if err := p.LinearRampToValueAtTime(1, t0+e.cfg.Attack); err != nil {
		return err
	}
	return p.ExponentialRampToValueAtTime(math.Max(e.cfg.Sustain, minLevel), t0+e.cfg.Attack+e.cfg.Decay)
}

// release replaces the pending schedule with the two-phase release curve,
// starting from the value the gain actually holds at now. It returns the
// time the curve reaches its floor.
func (e *envelope) release(now float64) (held, stopAt float64, err error) {
	p := e.gain.Gain()
	held, err = p.CancelAndHoldAtTime(now)
	if err != nil {
		return 0, 0, err
	}

	damped := math.Min(held, e.cfg.Sustain*dampRatio)
	if err := p.LinearRampToValueAtTime(damped, now+e.cfg.Release*dampPortion); err != nil {
		return held, 0, err
	}

	stopAt = now + e.cfg.Release + dampMargin
	if damped <= 0 {
		// already silent, an exponential ramp would jump to its target
		return held, stopAt, p.SetValueAtTime(0, stopAt)
	}
	floor := math.Min(releaseFloor, damped)
	if err := p.ExponentialRampToValueAtTime(floor, stopAt); err != nil {
		return held, 0, err
	}
	return held, stopAt, nil
}
