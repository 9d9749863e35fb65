package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesSettings(t *testing.T) {
	path := writePreset(t, `{
  "timbre": "Soft",
  "output_gain": 0.9,
  "stereo_width": 0.8,
  "envelope": {"attack": 0.02, "release": 1.2},
  "filter_sweep": {"base_freq": 5000, "q": 0.9},
  "compressor": {"ratio": 4},
  "body": {"enabled": true, "wet": 0.2, "seed": 7},
  "body_ir_wav_path": "ir.wav",
  "timbres": [{
    "name": "Soft",
    "layers": [
      {"waveform": "sine", "ratio": 1, "gain": 0.7, "decay_target": 0.01, "decay_time": 2},
      {"waveform": "custom", "harmonics": [0.5, 0.25], "ratio": 2, "gain": 0.2, "decay_target": 0.001, "decay_time": 1,
       "filter": {"kind": "highpass", "cutoff": 1500},
       "jitter": {"detune_cents": 2}}
    ]
  }]
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	def := piano.NewDefaultParams()
	if p.Params.OutputGain != 0.9 || p.Params.Stereo.Width != 0.8 {
		t.Fatalf("output/width mismatch: %+v", p.Params)
	}
	if p.Params.Envelope.Attack != 0.02 || p.Params.Envelope.Release != 1.2 || p.Params.Envelope.Decay != def.Envelope.Decay {
		t.Fatalf("envelope mismatch: %+v", p.Params.Envelope)
	}
	if p.Params.FilterSweep.BaseFreq != 5000 || p.Params.FilterSweep.EndFreq != def.FilterSweep.EndFreq {
		t.Fatalf("filter mismatch: %+v", p.Params.FilterSweep)
	}
	if p.Params.Compressor.Ratio != 4 || p.Params.Compressor.ThresholdDB != def.Compressor.ThresholdDB {
		t.Fatalf("compressor mismatch: %+v", p.Params.Compressor)
	}
	if !p.Params.Body.Enabled || p.Params.Body.Wet != 0.2 || p.Params.Body.Seed != 7 {
		t.Fatalf("body mismatch: %+v", p.Params.Body)
	}
	if want := filepath.Join(filepath.Dir(path), "ir.wav"); p.BodyIRPath != want {
		t.Fatalf("ir path = %q, want %q", p.BodyIRPath, want)
	}
	if p.Params.Timbre != "Soft" || len(p.Timbres) != 1 {
		t.Fatalf("timbre mismatch: %q %d", p.Params.Timbre, len(p.Timbres))
	}
	l := p.Timbres[0].Layers[1]
	if l.Waveform != backend.Custom || l.Filter == nil || l.Filter.Kind != backend.Highpass || l.Jitter.DetuneCents != 2 {
		t.Fatalf("layer mismatch: %+v", l)
	}

	store, err := p.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, ok := store.Lookup("Soft"); !ok {
		t.Fatalf("custom timbre missing from store")
	}
	if _, ok := store.Lookup(timbre.Grand); !ok {
		t.Fatalf("built-in timbre missing from store")
	}
}

func TestLoadJSONRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative attack", `{"envelope": {"attack": -1}}`},
		{"zero base freq", `{"filter_sweep": {"base_freq": 0}}`},
		{"ratio", `{"compressor": {"ratio": 50}}`},
		{"output gain", `{"output_gain": 9}`},
		{"unknown timbre", `{"timbre": "Nope"}`},
		{"empty layers", `{"timbres": [{"name": "x", "layers": []}]}`},
		{"zero decay", `{"timbres": [{"name": "x", "layers": [{"waveform": "sine", "ratio": 1, "gain": 1, "decay_target": 0.1, "decay_time": 0}]}]}`},
		{"bad waveform", `{"timbres": [{"name": "x", "layers": [{"waveform": "noise", "ratio": 1, "gain": 1, "decay_target": 0.1, "decay_time": 1}]}]}`},
		{"custom without harmonics", `{"timbres": [{"name": "x", "layers": [{"waveform": "custom", "ratio": 1, "gain": 1, "decay_target": 0.1, "decay_time": 1}]}]}`},
		{"malformed json", `{"envelope": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON(writePreset(t, tt.content))
			if !errors.Is(err, piano.ErrConfiguration) {
				t.Fatalf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestApplyFileKeepsPresetOnError(t *testing.T) {
	p := New()
	good := 0.5
	if err := ApplyFile(p, &File{OutputGain: &good}); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	bad := -2.0
	if err := ApplyFile(p, &File{OutputGain: &bad, StereoWidth: &good}); err == nil {
		t.Fatalf("expected error")
	}
	if p.Params.OutputGain != 0.5 || p.Params.Stereo.Width != piano.NewDefaultParams().Stereo.Width {
		t.Fatalf("params changed on rejected apply: %+v", p.Params)
	}
	if err := ApplyFile(p, nil); err != nil {
		t.Fatalf("nil file: %v", err)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want ErrNotExist", err)
	}
}
