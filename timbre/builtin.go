package timbre

import (
	"math"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"

	"github.com/cwbudde/algo-layerpiano/backend"
)

const (
	Simple     = "Simple"
	Grand      = "Grand"
	Upright    = "Upright"
	Metallic   = "Metallic"
	Bright     = "Bright"
	StringMode = "String Modes"
)

// DefaultName is the timbre used when a request cannot be resolved.
const DefaultName = Simple

func layer(w backend.Waveform, ratio, gain, target, decay float64) LayerConfig {
	return LayerConfig{Waveform: w, Ratio: ratio, Gain: gain, DecayTarget: target, DecayTime: decay}
}

// Builtin returns the built-in timbres, default first.
func Builtin() []Config {
	metallic := []LayerConfig{
		layer(backend.Triangle, 1, 1.0, 0.002, 0.5),
		layer(backend.Sawtooth, 2, 0.6, 0.003, 0.8),
		layer(backend.Square, 3, 0.4, 0.005, 1.2),
		layer(backend.Sine, 4.5, 0.3, 0.008, 1.5),
		layer(backend.Sine, 6.7, 0.2, 0.01, 2.0),
		layer(backend.Square, 8.9, 0.15, 0.005, 0.3),
		{
			Waveform: backend.Custom, Harmonics: []float64{0.2, 1, -0.8, 0.5, -0.3},
			Ratio: 12, Gain: 0.1, DecayTarget: 0.002, DecayTime: 0.2,
		},
	}
	for i := range metallic {
		metallic[i].Jitter = Jitter{Ratio: 0.001, DecayTime: 0.05}
	}

	return []Config{
		{Name: Simple, Layers: []LayerConfig{
			layer(backend.Triangle, 1, 0.5, 0.001, 3),
			layer(backend.Triangle, 2, 0.5, 0.001, 3),
			layer(backend.Triangle, 4, 0.5, 0.001, 3),
		}},
		{Name: Grand, Layers: []LayerConfig{
			layer(backend.Triangle, 1, 0.6, 0.001, 1.5),
			layer(backend.Square, 3, 0.4, 0.001, 1.5),
			layer(backend.Triangle, 5, 0.3, 0.001, 1.5),
			layer(backend.Sine, 7, 0.2, 0.001, 1.5),
		}},
		{Name: Upright, Layers: []LayerConfig{
			layer(backend.Triangle, 1, 0.6, 0.001, 3),
			layer(backend.Sawtooth, 3, 0.4, 0.001, 3),
			layer(backend.Triangle, 5, 0.3, 0.001, 3),
			layer(backend.Sine, 7, 0.2, 0.001, 3),
		}},
		{Name: Metallic, Layers: metallic},
		{Name: Bright, Layers: []LayerConfig{
			{
				Waveform: backend.Triangle, Ratio: 1, Gain: 0.8, DecayTarget: 0.002, DecayTime: 0.5,
				Jitter: Jitter{DetuneCents: 1},
			},
			{
				Waveform: backend.Square, Ratio: 3, Gain: 0.4, DecayTarget: 0.005, DecayTime: 1.2,
				Filter: &FilterSpec{Kind: backend.Highpass, Cutoff: 2000},
			},
			{
				Waveform: backend.Custom, Harmonics: []float64{0.3, 1, -0.5, 0.2},
				Ratio: 8.9, Gain: 0.15, DecayTarget: 0.001, DecayTime: 0.3,
			},
		}},
		StringModes(6),
	}
}

// StringModes builds a sine-layer timbre whose partial ratios follow the
// eigenspectrum of a coarsely discretized fixed string. The grid
// dispersion pulls upper partials slightly flat of the harmonic series.
func StringModes(partials int) Config {
	if partials < 1 {
		partials = 1
	}
	n := 4 * partials
	h := 1.0 / float64(n+1)
	eig := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)

	layers := make([]LayerConfig, 0, partials)
	for k := 0; k < partials && k < len(eig); k++ {
		ratio := math.Sqrt(eig[k] / eig[0])
		gain := 0.6 / float64(k+1)
		decay := 2.5 / (1 + 0.5*float64(k))
		layers = append(layers, layer(backend.Sine, ratio, gain, 0.001, decay))
	}
	return Config{Name: StringMode, Layers: layers}
}
