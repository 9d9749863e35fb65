// Package automation evaluates parameter automation timelines with the
// set/linear/exponential event semantics of a render-clock audio graph.
package automation

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

type Kind int

const (
	SetValue Kind = iota
	LinearRamp
	ExponentialRamp
)

func (k Kind) String() string {
	switch k {
	case SetValue:
		return "set"
	case LinearRamp:
		return "linear"
	case ExponentialRamp:
		return "exponential"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one scheduled point. Ramps end at Time with Value and start at
// the previous event.
type Event struct {
	Kind  Kind
	Value float64
	Time  float64
}

// Timeline holds the events of one parameter in non-decreasing time order.
// It is not safe for concurrent use.
type Timeline struct {
	initial float64
	events  []Event
	// Now reports the render clock. A ramp added to an empty timeline
	// starts at Now with the initial value.
	Now func() float64
}

func New(initial float64) *Timeline {
	return &Timeline{initial: initial}
}

// Events returns a copy of the scheduled events.
func (tl *Timeline) Events() []Event {
	out := make([]Event, len(tl.events))
	copy(out, tl.events)
	return out
}

func (tl *Timeline) now() float64 {
	if tl.Now == nil {
		return 0
	}
	return tl.Now()
}

func (tl *Timeline) lastTime() float64 {
	if len(tl.events) == 0 {
		return math.Inf(-1)
	}
	return tl.events[len(tl.events)-1].Time
}

func (tl *Timeline) insert(e Event) error {
	if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) || e.Time < 0 {
		return fmt.Errorf("%w: time %g", backend.ErrInvalidValue, e.Time)
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Errorf("%w: value %g", backend.ErrInvalidValue, e.Value)
	}
	if e.Time < tl.lastTime() {
		return fmt.Errorf("%w: %s at %g after %g", backend.ErrOutOfOrder, e.Kind, e.Time, tl.lastTime())
	}
	if e.Kind != SetValue && len(tl.events) == 0 {
		start := math.Min(tl.now(), e.Time)
		tl.events = append(tl.events, Event{Kind: SetValue, Value: tl.initial, Time: start})
	}
	tl.events = append(tl.events, e)
	return nil
}

func (tl *Timeline) SetValueAtTime(value, t float64) error {
	return tl.insert(Event{Kind: SetValue, Value: value, Time: t})
}

func (tl *Timeline) LinearRampToValueAtTime(value, t float64) error {
	return tl.insert(Event{Kind: LinearRamp, Value: value, Time: t})
}

// ExponentialRampToValueAtTime rejects a zero target.
func (tl *Timeline) ExponentialRampToValueAtTime(value, t float64) error {
	if value == 0 {
		return fmt.Errorf("%w: exponential ramp to zero", backend.ErrInvalidValue)
	}
	return tl.insert(Event{Kind: ExponentialRamp, Value: value, Time: t})
}

// CancelScheduledValues removes every event at or after t.
func (tl *Timeline) CancelScheduledValues(t float64) error {
	if math.IsNaN(t) || t < 0 {
		return fmt.Errorf("%w: time %g", backend.ErrInvalidValue, t)
	}
	held := tl.ValueAt(math.Min(t, tl.now()))
	tl.events = tl.events[:tl.firstAtOrAfter(t)]
	if len(tl.events) == 0 {
		tl.initial = held
	}
	return nil
}

// CancelAndHoldAtTime drops events at or after t and pins the timeline to
// the value it had at t. A ramp spanning t is truncated so its curve up to
// t is unchanged.
func (tl *Timeline) CancelAndHoldAtTime(t float64) (float64, error) {
	if math.IsNaN(t) || t < 0 {
		return 0, fmt.Errorf("%w: time %g", backend.ErrInvalidValue, t)
	}
	held := tl.ValueAt(t)
	idx := tl.firstAtOrAfter(t)
	kind := SetValue
	if idx < len(tl.events) && idx > 0 && tl.events[idx].Time > t {
		kind = tl.events[idx].Kind
	}
	tl.events = append(tl.events[:idx], Event{Kind: kind, Value: held, Time: t})
	return held, nil
}

func (tl *Timeline) firstAtOrAfter(t float64) int {
	for i, e := range tl.events {
		if e.Time >= t {
			return i
		}
	}
	return len(tl.events)
}

// ValueAt evaluates the timeline at t.
func (tl *Timeline) ValueAt(t float64) float64 {
	prevTime, prevValue := 0.0, tl.initial
	for _, e := range tl.events {
		if e.Time > t {
			switch e.Kind {
			case LinearRamp:
				frac := (t - prevTime) / (e.Time - prevTime)
				return prevValue + (e.Value-prevValue)*frac
			case ExponentialRamp:
				if prevValue == 0 || (prevValue > 0) != (e.Value > 0) {
					return prevValue
				}
				frac := (t - prevTime) / (e.Time - prevTime)
				return prevValue * math.Pow(e.Value/prevValue, frac)
			}
			return prevValue
		}
		prevTime, prevValue = e.Time, e.Value
	}
	return prevValue
}

// Prune folds every event that ended at or before t into a single set
// event. Evaluation at or after t is unchanged.
func (tl *Timeline) Prune(t float64) {
	k := -1
	for i, e := range tl.events {
		if e.Time > t {
			break
		}
		k = i
	}
	if k <= 0 {
		return
	}
	last := tl.events[k]
	tl.events[0] = Event{Kind: SetValue, Value: last.Value, Time: last.Time}
	tl.events = append(tl.events[:1], tl.events[k+1:]...)
}

// Len reports the number of scheduled events.
func (tl *Timeline) Len() int { return len(tl.events) }
