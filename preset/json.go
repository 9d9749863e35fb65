package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

// File is the JSON schema for piano presets. Absent fields keep their
// defaults.
type File struct {
	Timbre        string             `json:"timbre"`
	OutputGain    *float64           `json:"output_gain"`
	StereoWidth   *float64           `json:"stereo_width"`
	Envelope      *EnvelopeSetting   `json:"envelope"`
	FilterSweep   *FilterSetting     `json:"filter_sweep"`
	Compressor    *CompressorSetting `json:"compressor"`
	Body          *BodySetting       `json:"body"`
	BodyIRWavPath string             `json:"body_ir_wav_path"`
	Timbres       []TimbreSetting    `json:"timbres"`
}

type EnvelopeSetting struct {
	Attack  *float64 `json:"attack"`
	Decay   *float64 `json:"decay"`
	Sustain *float64 `json:"sustain"`
	Release *float64 `json:"release"`
}

type FilterSetting struct {
	BaseFreq         *float64 `json:"base_freq"`
	EndFreq          *float64 `json:"end_freq"`
	Q                *float64 `json:"q"`
	VelocityTracking *float64 `json:"velocity_tracking"`
}

type CompressorSetting struct {
	ThresholdDB *float64 `json:"threshold_db"`
	KneeDB      *float64 `json:"knee_db"`
	Ratio       *float64 `json:"ratio"`
	Attack      *float64 `json:"attack"`
	Release     *float64 `json:"release"`
	MakeupDB    *float64 `json:"makeup_db"`
}

type BodySetting struct {
	Enabled  *bool    `json:"enabled"`
	Wet      *float64 `json:"wet"`
	Dry      *float64 `json:"dry"`
	Duration *float64 `json:"duration"`
	Seed     *int64   `json:"seed"`
}

// TimbreSetting defines a custom timbre. Layers are complete; there is
// no partial override of built-in timbres.
type TimbreSetting struct {
	Name   string         `json:"name"`
	Layers []LayerSetting `json:"layers"`
}

type LayerSetting struct {
	Waveform     string         `json:"waveform"`
	Harmonics    []float64      `json:"harmonics"`
	Ratio        float64        `json:"ratio"`
	Gain         float64        `json:"gain"`
	DecayTarget  float64        `json:"decay_target"`
	DecayTime    float64        `json:"decay_time"`
	TriggerDelay float64        `json:"trigger_delay"`
	DetuneCents  float64        `json:"detune_cents"`
	Filter       *LayerFilter   `json:"filter"`
	Jitter       *JitterSetting `json:"jitter"`
}

type LayerFilter struct {
	Kind   string  `json:"kind"`
	Cutoff float64 `json:"cutoff"`
	Q      float64 `json:"q"`
}

type JitterSetting struct {
	Ratio       float64 `json:"ratio"`
	DecayTime   float64 `json:"decay_time"`
	DetuneCents float64 `json:"detune_cents"`
}

// Preset is a loaded and validated preset.
type Preset struct {
	Params  *piano.Params
	Timbres []timbre.Config
	// BodyIRPath is an optional recorded body response, resolved against
	// the preset's directory.
	BodyIRPath string
}

// New returns a preset holding the defaults.
func New() *Preset {
	return &Preset{Params: piano.NewDefaultParams()}
}

// LoadJSON loads a preset JSON file and applies it on top of defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", piano.ErrConfiguration, path, err)
	}

	p := New()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	if p.BodyIRPath != "" && !filepath.IsAbs(p.BodyIRPath) {
		p.BodyIRPath = filepath.Clean(filepath.Join(filepath.Dir(path), p.BodyIRPath))
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto dst and validates the
// result. dst is left unchanged on error.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil || dst.Params == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	params := *dst.Params
	if f.Timbre != "" {
		params.Timbre = strings.TrimSpace(f.Timbre)
	}
	setFloat(&params.OutputGain, f.OutputGain)
	setFloat(&params.Stereo.Width, f.StereoWidth)
	if e := f.Envelope; e != nil {
		setFloat(&params.Envelope.Attack, e.Attack)
		setFloat(&params.Envelope.Decay, e.Decay)
		setFloat(&params.Envelope.Sustain, e.Sustain)
		setFloat(&params.Envelope.Release, e.Release)
	}
	if s := f.FilterSweep; s != nil {
		setFloat(&params.FilterSweep.BaseFreq, s.BaseFreq)
		setFloat(&params.FilterSweep.EndFreq, s.EndFreq)
		setFloat(&params.FilterSweep.Q, s.Q)
		setFloat(&params.FilterSweep.VelocityTracking, s.VelocityTracking)
	}
	if c := f.Compressor; c != nil {
		setFloat(&params.Compressor.ThresholdDB, c.ThresholdDB)
		setFloat(&params.Compressor.KneeDB, c.KneeDB)
		setFloat(&params.Compressor.Ratio, c.Ratio)
		setFloat(&params.Compressor.Attack, c.Attack)
		setFloat(&params.Compressor.Release, c.Release)
		setFloat(&params.Compressor.MakeupDB, c.MakeupDB)
	}
	if b := f.Body; b != nil {
		if b.Enabled != nil {
			params.Body.Enabled = *b.Enabled
		}
		setFloat(&params.Body.Wet, b.Wet)
		setFloat(&params.Body.Dry, b.Dry)
		setFloat(&params.Body.Duration, b.Duration)
		if b.Seed != nil {
			params.Body.Seed = *b.Seed
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}

	timbres := append([]timbre.Config(nil), dst.Timbres...)
	for i, ts := range f.Timbres {
		c, err := ts.config()
		if err != nil {
			return fmt.Errorf("%w: timbres[%d]: %w", piano.ErrConfiguration, i, err)
		}
		timbres = append(timbres, c)
	}

	p := &Preset{Params: &params, Timbres: timbres, BodyIRPath: dst.BodyIRPath}
	if f.BodyIRWavPath != "" {
		p.BodyIRPath = strings.TrimSpace(f.BodyIRWavPath)
	}
	store, err := p.Store()
	if err != nil {
		return err
	}
	if _, ok := store.Lookup(params.Timbre); params.Timbre != "" && !ok {
		return fmt.Errorf("%w: unknown timbre %q", piano.ErrConfiguration, params.Timbre)
	}

	*dst.Params = params
	dst.Timbres = timbres
	dst.BodyIRPath = p.BodyIRPath
	return nil
}

// Store returns the built-in timbres extended by the preset's own.
func (p *Preset) Store() (*timbre.Store, error) {
	s := timbre.NewBuiltinStore()
	for _, c := range p.Timbres {
		if err := s.Add(c); err != nil {
			return nil, fmt.Errorf("%w: %w", piano.ErrConfiguration, err)
		}
	}
	return s, nil
}

func (ts TimbreSetting) config() (timbre.Config, error) {
	c := timbre.Config{Name: strings.TrimSpace(ts.Name), Layers: make([]timbre.LayerConfig, len(ts.Layers))}
	for i, ls := range ts.Layers {
		w, err := backend.ParseWaveform(ls.Waveform)
		if err != nil {
			return timbre.Config{}, fmt.Errorf("layer %d: %w", i, err)
		}
		l := timbre.LayerConfig{
			Waveform:     w,
			Harmonics:    append([]float64(nil), ls.Harmonics...),
			Ratio:        ls.Ratio,
			Gain:         ls.Gain,
			DecayTarget:  ls.DecayTarget,
			DecayTime:    ls.DecayTime,
			TriggerDelay: ls.TriggerDelay,
			DetuneCents:  ls.DetuneCents,
		}
		if ls.Filter != nil {
			kind, err := backend.ParseFilterKind(ls.Filter.Kind)
			if err != nil {
				return timbre.Config{}, fmt.Errorf("layer %d: %w", i, err)
			}
			l.Filter = &timbre.FilterSpec{Kind: kind, Cutoff: ls.Filter.Cutoff, Q: ls.Filter.Q}
		}
		if ls.Jitter != nil {
			l.Jitter = timbre.Jitter{Ratio: ls.Jitter.Ratio, DecayTime: ls.Jitter.DecayTime, DetuneCents: ls.Jitter.DetuneCents}
		}
		c.Layers[i] = l
	}
	return c, c.Validate()
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
