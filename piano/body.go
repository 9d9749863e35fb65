package piano

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/irsynth"
)

// bodyIR is a stereo impulse response for the body resonance.
type bodyIR struct {
	left, right []float32
}

var (
	irCacheMu sync.Mutex
	irCache   = map[irsynth.Config]bodyIR{}
)

// synthBodyIR returns the synthetic body response for the sample rate,
// generating it on first use.
func synthBodyIR(sampleRate int, cfg BodyConfig) (bodyIR, error) {
	ic := bodyCacheKey(sampleRate, cfg)
	irCacheMu.Lock()
	defer irCacheMu.Unlock()
	if ir, ok := irCache[ic]; ok {
		return ir, nil
	}
	l, r, err := irsynth.GenerateStereo(ic)
	if err != nil {
		return bodyIR{}, err
	}
	ir := bodyIR{left: l, right: r}
	irCache[ic] = ir
	return ir, nil
}

func bodyCacheKey(sampleRate int, cfg BodyConfig) irsynth.Config {
	ic := irsynth.DefaultConfig()
	ic.SampleRate = sampleRate
	ic.DurationS = cfg.Duration
	ic.Seed = cfg.Seed
	return ic
}

// outputBus is the shared stage between every voice and the destination:
// voices -> in (output gain) -> dry -> destination, and optionally
// in -> convolver -> wet -> destination.
type outputBus struct {
	in    backend.Gain
	dry   backend.Gain
	wet   backend.Gain
	conv  backend.Node
	nodes nodeSet
}

func newOutputBus(ctx backend.Context, gain float64, body BodyConfig, ir *bodyIR) (*outputBus, error) {
	b := &outputBus{}
	if err := b.build(ctx, gain, body, ir); err != nil {
		b.nodes.closeAll()
		return nil, err
	}
	return b, nil
}

func (b *outputBus) build(ctx backend.Context, gain float64, body BodyConfig, ir *bodyIR) error {
	now := ctx.CurrentTime()
	var err error
	if b.in, err = ctx.NewGain(); err != nil {
		return err
	}
	b.nodes.add(b.in)
	if err := b.in.Gain().SetValueAtTime(gain, now); err != nil {
		return err
	}
	if b.dry, err = ctx.NewGain(); err != nil {
		return err
	}
	b.nodes.add(b.dry)
	if err := b.in.Connect(b.dry); err != nil {
		return err
	}
	if err := b.dry.Connect(ctx.Destination()); err != nil {
		return err
	}
	if !body.Enabled {
		return nil
	}

	if err := b.dry.Gain().SetValueAtTime(body.Dry, now); err != nil {
		return err
	}
	if ir == nil {
		gen, err := synthBodyIR(int(ctx.SampleRate()), body)
		if err != nil {
			return fmt.Errorf("body ir: %w", err)
		}
		ir = &gen
	}
	if b.conv, err = ctx.NewConvolver(ir.left, ir.right); err != nil {
		return err
	}
	b.nodes.add(b.conv)
	if b.wet, err = ctx.NewGain(); err != nil {
		return err
	}
	b.nodes.add(b.wet)
	if err := b.wet.Gain().SetValueAtTime(body.Wet, now); err != nil {
		return err
	}
	if err := b.in.Connect(b.conv); err != nil {
		return err
	}
	if err := b.conv.Connect(b.wet); err != nil {
		return err
	}
	return b.wet.Connect(ctx.Destination())
}

func (b *outputBus) setGain(gain, now float64) error {
	return rampParam(b.in.Gain(), gain, now, stereoRampTime)
}

func (b *outputBus) close() error {
	return b.nodes.closeAll()
}
