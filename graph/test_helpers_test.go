package graph

import (
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
)

// dcSource returns a started zero-frequency square oscillator, which
// outputs a constant 1.
func dcSource(t *testing.T, c *Context) *Oscillator {
	t.Helper()
	o, err := c.NewOscillator()
	if err != nil {
		t.Fatalf("new oscillator: %v", err)
	}
	if err := o.SetWaveform(backend.Square); err != nil {
		t.Fatalf("set waveform: %v", err)
	}
	if err := o.Frequency().SetValueAtTime(0, 0); err != nil {
		t.Fatalf("set frequency: %v", err)
	}
	if err := o.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	return o.(*Oscillator)
}

func mustConnect(t *testing.T, src, dst backend.Node) {
	t.Helper()
	if err := src.Connect(dst); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

func left(out []float32, i int) float64 { return float64(out[2*i]) }
