package preset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-layerpiano/timbre"
)

// ToFile converts p into its JSON form with every field set. A relative
// body IR path is expressed against dir.
func ToFile(p *Preset, dir string) *File {
	params := p.Params
	f := &File{
		Timbre:      params.Timbre,
		OutputGain:  ptr(params.OutputGain),
		StereoWidth: ptr(params.Stereo.Width),
		Envelope: &EnvelopeSetting{
			Attack:  ptr(params.Envelope.Attack),
			Decay:   ptr(params.Envelope.Decay),
			Sustain: ptr(params.Envelope.Sustain),
			Release: ptr(params.Envelope.Release),
		},
		FilterSweep: &FilterSetting{
			BaseFreq:         ptr(params.FilterSweep.BaseFreq),
			EndFreq:          ptr(params.FilterSweep.EndFreq),
			Q:                ptr(params.FilterSweep.Q),
			VelocityTracking: ptr(params.FilterSweep.VelocityTracking),
		},
		Compressor: &CompressorSetting{
			ThresholdDB: ptr(params.Compressor.ThresholdDB),
			KneeDB:      ptr(params.Compressor.KneeDB),
			Ratio:       ptr(params.Compressor.Ratio),
			Attack:      ptr(params.Compressor.Attack),
			Release:     ptr(params.Compressor.Release),
			MakeupDB:    ptr(params.Compressor.MakeupDB),
		},
		Body: &BodySetting{
			Enabled:  ptr(params.Body.Enabled),
			Wet:      ptr(params.Body.Wet),
			Dry:      ptr(params.Body.Dry),
			Duration: ptr(params.Body.Duration),
			Seed:     ptr(params.Body.Seed),
		},
		BodyIRWavPath: relativePath(dir, p.BodyIRPath),
	}
	for _, c := range p.Timbres {
		f.Timbres = append(f.Timbres, timbreSetting(c))
	}
	return f
}

// SaveJSON writes p as an indented preset file, creating parent
// directories as needed.
func SaveJSON(path string, p *Preset) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(ToFile(p, dir), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func timbreSetting(c timbre.Config) TimbreSetting {
	ts := TimbreSetting{Name: c.Name, Layers: make([]LayerSetting, len(c.Layers))}
	for i, l := range c.Layers {
		ls := LayerSetting{
			Waveform:     l.Waveform.String(),
			Harmonics:    append([]float64(nil), l.Harmonics...),
			Ratio:        l.Ratio,
			Gain:         l.Gain,
			DecayTarget:  l.DecayTarget,
			DecayTime:    l.DecayTime,
			TriggerDelay: l.TriggerDelay,
			DetuneCents:  l.DetuneCents,
		}
		if l.Filter != nil {
			ls.Filter = &LayerFilter{Kind: l.Filter.Kind.String(), Cutoff: l.Filter.Cutoff, Q: l.Filter.Q}
		}
		if !l.Jitter.IsZero() {
			ls.Jitter = &JitterSetting{Ratio: l.Jitter.Ratio, DecayTime: l.Jitter.DecayTime, DetuneCents: l.Jitter.DetuneCents}
		}
		ts.Layers[i] = ls
	}
	return ts
}

func relativePath(dir, path string) string {
	if path == "" {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return absPath
	}
	if rel, err := filepath.Rel(absDir, absPath); err == nil {
		return rel
	}
	return absPath
}

func ptr[T any](v T) *T { return &v }
