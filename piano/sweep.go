package piano

import "github.com/cwbudde/algo-layerpiano/backend"

// newFilterSweep creates the shared voice low-pass. The sweep toward the
// end frequency spans attack+decay+release and is scheduled once here.
func newFilterSweep(ctx backend.Context, cfg FilterSweepConfig, env EnvelopeConfig, t0 float64) (backend.BiquadFilter, error) {
	f, err := ctx.NewBiquadFilter(backend.Lowpass)
	if err != nil {
		return nil, err
	}
	if err := scheduleSweep(f, cfg, env, t0); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func scheduleSweep(f backend.BiquadFilter, cfg FilterSweepConfig, env EnvelopeConfig, t0 float64) error {
	if err := f.Q().SetValueAtTime(cfg.Q, t0); err != nil {
		return err
	}
	if err := f.Frequency().SetValueAtTime(cfg.BaseFreq, t0); err != nil {
		return err
	}
	return f.Frequency().ExponentialRampToValueAtTime(cfg.EndFreq, t0+env.SweepDuration())
}
