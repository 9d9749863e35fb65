// Package backend describes the directed signal graph the synthesizer core
// drives. Implementations render against a monotonic clock and apply every
// parameter change from a time-stamped automation timeline.
package backend

import "errors"

var (
	ErrNodeLimit     = errors.New("backend: node limit reached")
	ErrOutOfOrder    = errors.New("backend: automation event earlier than a scheduled event")
	ErrInvalidValue  = errors.New("backend: invalid automation value")
	ErrClosed        = errors.New("backend: node closed")
	ErrForeignNode   = errors.New("backend: node belongs to another context")
	ErrInvalidState  = errors.New("backend: invalid node state")
	ErrInvalidConfig = errors.New("backend: invalid node configuration")
)

// Context creates nodes and exposes the render clock.
type Context interface {
	SampleRate() float64
	// CurrentTime is the render clock position in seconds.
	CurrentTime() float64
	Destination() Node

	NewOscillator() (Oscillator, error)
	NewPeriodicWave(real, imag []float64) (PeriodicWave, error)
	NewGain() (Gain, error)
	NewChannelGain() (ChannelGain, error)
	NewWaveShaper(curve []float64) (Node, error)
	NewBiquadFilter(kind FilterKind) (BiquadFilter, error)
	NewCompressor(settings CompressorSettings) (Node, error)
	NewConvolver(left, right []float32) (Node, error)
}

// Node is a vertex of the signal graph.
type Node interface {
	Connect(dst Node) error
	// Disconnect removes every outgoing connection.
	Disconnect() error
	// Close disconnects the node in both directions and releases it.
	// Closing twice is a no-op.
	Close() error
}

// Param is an automatable node parameter. Events on one Param must be
// issued in non-decreasing time order.
type Param interface {
	// Value is the automated value at the current render time.
	Value() float64
	SetValueAtTime(value, t float64) error
	LinearRampToValueAtTime(value, t float64) error
	ExponentialRampToValueAtTime(value, t float64) error
	CancelScheduledValues(t float64) error
	// CancelAndHoldAtTime drops every event at or after t and holds the
	// value the timeline had at t. The held value is returned.
	CancelAndHoldAtTime(t float64) (float64, error)
}

type Oscillator interface {
	Node
	SetWaveform(w Waveform) error
	SetPeriodicWave(w PeriodicWave) error
	Frequency() Param
	// Detune is expressed in cents.
	Detune() Param
	Start(t float64) error
	Stop(t float64) error
	// OnEnded registers fn to run once the render clock passes the stop
	// time. Callbacks never run while the renderer holds its lock.
	OnEnded(fn func())
}

// PeriodicWave is an opaque wavetable created by a Context.
type PeriodicWave interface {
	Harmonics() int
}

type Gain interface {
	Node
	Gain() Param
}

// ChannelGain scales the left and right channel independently.
type ChannelGain interface {
	Node
	Left() Param
	Right() Param
}

type BiquadFilter interface {
	Node
	Kind() FilterKind
	Frequency() Param
	Q() Param
}

// CompressorSettings configures a dynamics compressor node.
type CompressorSettings struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	Attack      float64
	Release     float64
	MakeupDB    float64
}
