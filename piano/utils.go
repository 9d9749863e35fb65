package piano

import (
	"math"

	"github.com/cwbudde/algo-layerpiano/backend"
)

const (
	// minLevel floors exponential targets, which cannot reach zero.
	minLevel = 1e-4
	// releaseFloor is where the release ramp ends and oscillators stop.
	releaseFloor = 0.001
	// dampRatio and dampPortion shape the first release sub-phase: ramp to
	// 10% of sustain over 30% of the release time.
	dampRatio   = 0.1
	dampPortion = 0.3
	// dampMargin extends the release tail past the configured time.
	dampMargin = 0.05

	shaperCurveSize = 1024
	shaperDrive     = 2.0
	butterworthQ    = 0.7071067811865476
)

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// rampParam moves p from its value at now to target over d seconds. It
// ramps exponentially when both ends share a sign and are non-zero, and
// linearly otherwise.
func rampParam(p backend.Param, target, now, d float64) error {
	held, err := p.CancelAndHoldAtTime(now)
	if err != nil {
		return err
	}
	if held != 0 && target != 0 && (held > 0) == (target > 0) {
		return p.ExponentialRampToValueAtTime(target, now+d)
	}
	return p.LinearRampToValueAtTime(target, now+d)
}

// nodeSet tracks every node a voice owns so it can be released exactly
// once.
type nodeSet struct {
	nodes  []backend.Node
	closed bool
}

func (s *nodeSet) add(n backend.Node) {
	s.nodes = append(s.nodes, n)
}

// open reports nodes not yet released.
func (s *nodeSet) open() int {
	if s.closed {
		return 0
	}
	return len(s.nodes)
}

// closeAll closes nodes in creation order and returns the first error.
func (s *nodeSet) closeAll() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	for _, n := range s.nodes {
		if err := n.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
