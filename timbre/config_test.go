package timbre

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
)

func validLayer() LayerConfig {
	return LayerConfig{Waveform: backend.Sine, Ratio: 1, Gain: 0.5, DecayTarget: 0.01, DecayTime: 1}
}

func TestValidateRejectsMalformedTimbres(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no layers", func(c *Config) { c.Layers = nil }},
		{"empty name", func(c *Config) { c.Name = "" }},
		{"zero decay", func(c *Config) { c.Layers[0].DecayTime = 0 }},
		{"negative decay", func(c *Config) { c.Layers[0].DecayTime = -1 }},
		{"zero ratio", func(c *Config) { c.Layers[0].Ratio = 0 }},
		{"gain above one", func(c *Config) { c.Layers[0].Gain = 1.5 }},
		{"negative delay", func(c *Config) { c.Layers[0].TriggerDelay = -0.1 }},
		{"custom without harmonics", func(c *Config) { c.Layers[0].Waveform = backend.Custom }},
		{"custom with NaN", func(c *Config) {
			c.Layers[0].Waveform = backend.Custom
			c.Layers[0].Harmonics = []float64{math.NaN()}
		}},
		{"filter without cutoff", func(c *Config) { c.Layers[0].Filter = &FilterSpec{Kind: backend.Highpass} }},
		{"ratio jitter too wide", func(c *Config) { c.Layers[0].Jitter.Ratio = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{Name: "x", Layers: []LayerConfig{validLayer()}}
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidTimbre) {
				t.Fatalf("expected ErrInvalidTimbre, got %v", err)
			}
		})
	}
}

func TestBuiltinTimbresValidate(t *testing.T) {
	for _, c := range Builtin() {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s: %v", c.Name, err)
		}
	}
}

func TestDefaultTimbreShape(t *testing.T) {
	c := Builtin()[0]
	if c.Name != DefaultName {
		t.Fatalf("first builtin = %q", c.Name)
	}
	if len(c.Layers) != 3 {
		t.Fatalf("layers = %d", len(c.Layers))
	}
	for i, want := range []float64{1, 2, 4} {
		if c.Layers[i].Ratio != want || c.Layers[i].Gain != 0.5 {
			t.Fatalf("layer %d = %+v", i, c.Layers[i])
		}
	}
}

func TestPeriodicCoefficientsPrefixDC(t *testing.T) {
	l := LayerConfig{Waveform: backend.Custom, Harmonics: []float64{0.3, 1}}
	re, im := l.PeriodicCoefficients()
	if len(re) != 3 || re[0] != 1 || re[1] != 0.3 || re[2] != 1 {
		t.Fatalf("real = %v", re)
	}
	if len(im) != 3 || im[1] != 0 {
		t.Fatalf("imag = %v", im)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := Config{Name: "x", Layers: []LayerConfig{{
		Waveform: backend.Custom, Harmonics: []float64{1}, Ratio: 1, DecayTime: 1,
		Filter: &FilterSpec{Kind: backend.Lowpass, Cutoff: 100},
	}}}
	d := c.Clone()
	d.Layers[0].Harmonics[0] = 5
	d.Layers[0].Filter.Cutoff = 5
	if c.Layers[0].Harmonics[0] != 1 || c.Layers[0].Filter.Cutoff != 100 {
		t.Fatalf("clone shares memory")
	}
}

func TestStringModesRatios(t *testing.T) {
	c := StringModes(6)
	if len(c.Layers) != 6 {
		t.Fatalf("layers = %d", len(c.Layers))
	}
	if c.Layers[0].Ratio != 1 {
		t.Fatalf("first ratio = %f", c.Layers[0].Ratio)
	}
	for k := 1; k < len(c.Layers); k++ {
		r := c.Layers[k].Ratio
		if r <= c.Layers[k-1].Ratio {
			t.Fatalf("ratios not increasing at %d", k)
		}
		if r > float64(k+1)+1e-9 || r < float64(k+1)*0.9 {
			t.Fatalf("ratio %d = %f, want slightly below %d", k, r, k+1)
		}
	}
}

func TestJitterDisabledWithNilRand(t *testing.T) {
	l := validLayer()
	l.Jitter = Jitter{Ratio: 0.001, DecayTime: 0.05, DetuneCents: 1}
	got := l.Jittered(nil)
	if got.Ratio != l.Ratio || got.DecayTime != l.DecayTime || got.DetuneCents != 0 {
		t.Fatalf("jitter applied without a source: %+v", got)
	}
}

func TestJitterStaysInRangeAndIsDeterministic(t *testing.T) {
	l := validLayer()
	l.Ratio = 2
	l.Jitter = Jitter{Ratio: 0.001, DecayTime: 0.05, DetuneCents: 1}

	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		x := l.Jittered(a)
		y := l.Jittered(b)
		if x.Ratio != y.Ratio || x.DecayTime != y.DecayTime || x.DetuneCents != y.DetuneCents {
			t.Fatalf("same seed produced different layers")
		}
		if math.Abs(x.Ratio-2) > 2*0.001 {
			t.Fatalf("ratio %f outside jitter range", x.Ratio)
		}
		if math.Abs(x.DecayTime-1) > 0.05 {
			t.Fatalf("decay %f outside jitter range", x.DecayTime)
		}
		if math.Abs(x.DetuneCents) > 1 {
			t.Fatalf("detune %f outside jitter range", x.DetuneCents)
		}
	}
	if l.Ratio != 2 {
		t.Fatalf("source layer mutated")
	}
}
