package graph

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// Convolver convolves each channel with its own impulse response using
// streaming overlap-add. Output lags input by one partition.
type Convolver struct {
	base
	part int

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	inL, inR   []float32
	outL, outR []float32
	pos        int
}

func newConvolver(left, right []float32, partSize int) (*Convolver, error) {
	l, err := dspconv.NewStreamingOverlapAdd32(left, partSize)
	if err != nil {
		return nil, fmt.Errorf("%w: left impulse response: %v", backend.ErrInvalidConfig, err)
	}
	r, err := dspconv.NewStreamingOverlapAdd32(right, partSize)
	if err != nil {
		return nil, fmt.Errorf("%w: right impulse response: %v", backend.ErrInvalidConfig, err)
	}
	return &Convolver{
		part:     partSize,
		leftOLA:  l,
		rightOLA: r,
		inL:      make([]float32, partSize),
		inR:      make([]float32, partSize),
		outL:     make([]float32, partSize),
		outR:     make([]float32, partSize),
	}, nil
}

func (c *Convolver) render(in frame, _ int64) frame {
	c.inL[c.pos] = float32(in.l)
	c.inR[c.pos] = float32(in.r)
	out := frame{float64(c.outL[c.pos]), float64(c.outR[c.pos])}
	c.pos++
	if c.pos == c.part {
		c.pos = 0
		errL := c.leftOLA.ProcessBlockTo(c.outL, c.inL)
		errR := c.rightOLA.ProcessBlockTo(c.outR, c.inR)
		if errL != nil || errR != nil {
			clear(c.outL)
			clear(c.outR)
		}
	}
	return out
}
