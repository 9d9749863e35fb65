package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-layerpiano/analysis"
	"github.com/cwbudde/algo-layerpiano/preset"
	"github.com/google/uuid"
)

type runReport struct {
	RunID           string             `json:"run_id"`
	ReferencePath   string             `json:"reference_path"`
	PresetPath      string             `json:"preset_path,omitempty"`
	OutputPreset    string             `json:"output_preset"`
	SampleRate      int                `json:"sample_rate"`
	Note            int                `json:"note"`
	ReleaseAfterSec float64            `json:"release_after_seconds"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

// outputs writes the fitted preset and its report.
type outputs struct {
	runID         string
	referencePath string
	presetPath    string
	outputPreset  string
	reportPath    string
	sampleRate    int
	note          int
	releaseAfter  float64
	variant       string
	defs          []knobDef
	base          *preset.Preset
}

func newOutputs() *outputs {
	return &outputs{runID: uuid.NewString()}
}

func (o *outputs) write(res *optimizationResult) error {
	fitted := &preset.Preset{
		Params:     cloneParams(res.bestParams),
		Timbres:    o.base.Timbres,
		BodyIRPath: o.base.BodyIRPath,
	}
	if err := preset.SaveJSON(o.outputPreset, fitted); err != nil {
		return err
	}

	knobs := make(map[string]float64, len(o.defs))
	for i, d := range o.defs {
		knobs[d.Name] = res.best.Vals[i]
	}
	rep := runReport{
		RunID:           o.runID,
		ReferencePath:   o.referencePath,
		PresetPath:      o.presetPath,
		OutputPreset:    o.outputPreset,
		SampleRate:      o.sampleRate,
		Note:            o.note,
		ReleaseAfterSec: o.releaseAfter,
		DurationSec:     res.elapsed,
		Evaluations:     res.evals,
		MayflyVariant:   o.variant,
		BestScore:       res.bestMetrics.Score,
		BestSimilarity:  res.bestMetrics.Similarity,
		BestMetrics:     res.bestMetrics,
		BestKnobs:       knobs,
		TopCandidates:   res.top,
	}
	return writeJSON(o.report(), rep)
}

func (o *outputs) report() string {
	if o.reportPath != "" {
		return o.reportPath
	}
	return o.outputPreset + ".report.json"
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
