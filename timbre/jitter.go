package timbre

// Rand is the random source used for jitter. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Jittered returns a copy of l with its jitter ranges sampled from r. A nil
// r disables jitter.
func (l LayerConfig) Jittered(r Rand) LayerConfig {
	out := l.clone()
	if r == nil || l.Jitter.IsZero() {
		return out
	}
	if l.Jitter.Ratio > 0 {
		out.Ratio *= 1 + spread(r, l.Jitter.Ratio)
	}
	if l.Jitter.DecayTime > 0 {
		out.DecayTime *= 1 + spread(r, l.Jitter.DecayTime)
	}
	if l.Jitter.DetuneCents > 0 {
		out.DetuneCents += spread(r, l.Jitter.DetuneCents)
	}
	return out
}

// Jittered samples every layer of c.
func (c Config) Jittered(r Rand) Config {
	out := Config{Name: c.Name, Layers: make([]LayerConfig, len(c.Layers))}
	for i, l := range c.Layers {
		out.Layers[i] = l.Jittered(r)
	}
	return out
}

// spread draws uniformly from [-width, width).
func spread(r Rand, width float64) float64 {
	return (r.Float64()*2 - 1) * width
}
