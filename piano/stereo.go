package piano

import (
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

const (
	MaxStereoWidth = 2.5

	stereoCenterBlend = 0.15
	stereoFeedback    = 0.02
	stereoRampTime    = 0.1
)

// ClampWidth limits a width request to [0, MaxStereoWidth]. NaN maps to 0.
func ClampWidth(width float64) float64 {
	if math.IsNaN(width) || width < 0 {
		return 0
	}
	if width > MaxStereoWidth {
		return MaxStereoWidth
	}
	return width
}

// StereoGains returns the left and right channel gains for width.
func StereoGains(width float64) (left, right float64) {
	angle := ClampWidth(width) * math.Pi / 4
	left = math.Cos(angle) + stereoCenterBlend*math.Sin(angle)
	right = math.Sin(angle) + stereoCenterBlend*math.Cos(angle)
	return left, right
}

// StereoControl spreads a layer across the stereo field. A small feedback
// path from its output back to its input damps phase cancellation.
type StereoControl struct {
	ctx      backend.Context
	input    backend.Gain
	channels backend.ChannelGain
	feedback backend.Gain
	width    float64
}

// NewStereoControl builds the widening stage with its gains already at
// width. Nodes created before a failure are closed.
func NewStereoControl(ctx backend.Context, width float64) (*StereoControl, error) {
	s := &StereoControl{ctx: ctx, width: ClampWidth(width)}
	var err error
	if s.input, err = ctx.NewGain(); err != nil {
		return nil, err
	}
	if s.channels, err = ctx.NewChannelGain(); err != nil {
		s.Close()
		return nil, err
	}
	if s.feedback, err = ctx.NewGain(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.wire(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *StereoControl) wire() error {
	now := s.ctx.CurrentTime()
	l, r := StereoGains(s.width)
	steps := []func() error{
		func() error { return s.input.Connect(s.channels) },
		func() error { return s.channels.Connect(s.feedback) },
		func() error { return s.feedback.Connect(s.input) },
		func() error { return s.feedback.Gain().SetValueAtTime(stereoFeedback, now) },
		func() error { return s.channels.Left().SetValueAtTime(l, now) },
		func() error { return s.channels.Right().SetValueAtTime(r, now) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Input is the node layers connect into.
func (s *StereoControl) Input() backend.Node { return s.input }

func (s *StereoControl) Width() float64 { return s.width }

// SetWidth ramps both channel gains from their current values to the
// gains for width over 0.1 s.
func (s *StereoControl) SetWidth(width float64) error {
	s.width = ClampWidth(width)
	now := s.ctx.CurrentTime()
	l, r := StereoGains(s.width)
	if err := rampParam(s.channels.Left(), l, now, stereoRampTime); err != nil {
		return err
	}
	return rampParam(s.channels.Right(), r, now, stereoRampTime)
}

func (s *StereoControl) Connect(dst backend.Node) error {
	return s.channels.Connect(dst)
}

// Disconnect detaches the output while keeping the feedback path.
func (s *StereoControl) Disconnect() error {
	if err := s.channels.Disconnect(); err != nil {
		return err
	}
	return s.channels.Connect(s.feedback)
}

// Close releases every node of the stage.
func (s *StereoControl) Close() error {
	var first error
	for _, n := range s.nodes() {
		if err := n.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *StereoControl) nodes() []backend.Node {
	out := make([]backend.Node, 0, 3)
	if s.input != nil {
		out = append(out, s.input)
	}
	if s.channels != nil {
		out = append(out, s.channels)
	}
	if s.feedback != nil {
		out = append(out, s.feedback)
	}
	return out
}
