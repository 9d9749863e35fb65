package piano

import (
	"io"
	"math"
	"testing"

	"github.com/pion/logging"

	"github.com/cwbudde/algo-layerpiano/graph"
)

func quietLogger() logging.LeveledLogger {
	f := &logging.DefaultLoggerFactory{
		Writer:          io.Discard,
		DefaultLogLevel: logging.LogLevelDisabled,
	}
	return f.NewLogger("test")
}

// newTestPiano builds an engine over a fresh native graph with jitter
// disabled. The engine is closed when the test ends.
func newTestPiano(t *testing.T, sampleRate int, params *Params, opts ...Option) (*Piano, *graph.Context) {
	t.Helper()
	return newTestPianoOn(t, graph.NewContext(sampleRate), params, opts...)
}

func newTestPianoOn(t *testing.T, ctx *graph.Context, params *Params, opts ...Option) (*Piano, *graph.Context) {
	t.Helper()
	base := []Option{WithRand(nil), WithLogger(quietLogger())}
	p, err := NewPiano(ctx, params, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewPiano: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, ctx
}

func mustPress(t *testing.T, p *Piano, note int) *Voice {
	t.Helper()
	if err := p.PressKey(note); err != nil {
		t.Fatalf("PressKey(%d): %v", note, err)
	}
	v, ok := p.Voice(note)
	if !ok {
		t.Fatalf("note %d not registered after press", note)
	}
	return v
}

func mustRelease(t *testing.T, p *Piano, note int) {
	t.Helper()
	if err := p.ReleaseKey(note); err != nil {
		t.Fatalf("ReleaseKey(%d): %v", note, err)
	}
}

// renderSeconds advances ctx by at least d seconds and returns the output.
func renderSeconds(ctx *graph.Context, d float64) []float32 {
	n := int(math.Ceil(d * ctx.SampleRate()))
	return ctx.Process(n)
}

// renderPast advances ctx until its clock is past t plus one render
// quantum, so ended events at t have fired.
func renderPast(ctx *graph.Context, t float64) {
	target := t + float64(2*graph.RenderQuantum)/ctx.SampleRate()
	if d := target - ctx.CurrentTime(); d > 0 {
		renderSeconds(ctx, d)
	}
}

func inspect(t *testing.T, p any) graph.Inspector {
	t.Helper()
	in, ok := p.(graph.Inspector)
	if !ok {
		t.Fatalf("%T is not inspectable", p)
	}
	return in
}

func graphOscillator(t *testing.T, v *Voice, i int) *graph.Oscillator {
	t.Helper()
	o, ok := v.Oscillators()[i].(*graph.Oscillator)
	if !ok {
		t.Fatalf("oscillator %d is %T", i, v.Oscillators()[i])
	}
	return o
}

func leftChannel(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[2*i]
	}
	return out
}

func measureFundamentalFreq(samples []float32, sampleRate float64) float64 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float64(len(samples)-startIdx) / sampleRate
	return float64(crossings) / (2.0 * duration)
}

func stereoRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}
	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(interleaved)))
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
