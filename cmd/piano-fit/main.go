package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/preset"
	"github.com/pion/logging"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base preset JSON path (optional)")
	outputPreset := flag.String("output-preset", "out/fitted.json", "Path to write best fitted preset JSON")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	outputWAV := flag.String("output-wav", "", "Optional path to render the best candidate to")
	optimize := flag.String("optimize", "envelope,filter", "Comma-separated knob groups to optimize: envelope, filter, mix")
	noteFlag := flag.String("note", "C4", "Note to fit (number or name)")
	releaseAfter := flag.Float64("release-after", 1.0, "Seconds before the key is released in each evaluation render")
	sampleRate := flag.Int("sample-rate", 32000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from a previous report's best_knobs when available")
	workers := flag.String("workers", "1", "Parallel workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid --optimize: %v", err)
	}
	note, err := pitch.Parse(*noteFlag)
	if err != nil {
		die("invalid --note: %v", err)
	}
	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *releaseAfter < 0.05 {
		*releaseAfter = 0.05
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	parsedWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	base := preset.New()
	if *presetPath != "" {
		if base, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}

	refRaw, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	reference, err := fitcommon.ResampleIfNeeded(refRaw, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	engineOpts, err := fitEngineOptions(base, *sampleRate)
	if err != nil {
		die("failed to prepare engine: %v", err)
	}

	defs, initCand := initCandidate(base.Params, groups)
	out := newOutputs()
	out.referencePath = *referencePath
	out.presetPath = *presetPath
	out.outputPreset = *outputPreset
	out.reportPath = *reportPath
	out.sampleRate = *sampleRate
	out.note = note
	out.releaseAfter = *releaseAfter
	out.variant = strings.ToLower(*mayflyVariant)
	out.defs = defs
	out.base = base

	if *resume {
		if resumed, ok, err := loadCandidateFromReport(out.report(), defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", out.report(), err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", out.report())
		}
	}

	cfg := &optimizationConfig{
		reference:        reference,
		base:             base,
		engineOpts:       engineOpts,
		defs:             defs,
		initial:          initCand,
		note:             note,
		releaseAfter:     *releaseAfter,
		sampleRate:       *sampleRate,
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		mayflyVariant:    *mayflyVariant,
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
		checkpoint:       out.write,
	}

	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}
	if err := out.write(result); err != nil {
		die("failed to write outputs: %v", err)
	}

	if *outputWAV != "" {
		pre := &preset.Preset{Params: result.bestParams, Timbres: base.Timbres}
		samples, err := fitcommon.Render(fitcommon.RenderConfig{
			SampleRate: *sampleRate,
			Preset:     pre,
			Duration:   float64(len(reference)) / float64(*sampleRate),
			Options:    engineOpts,
		}, fitcommon.SingleNote(note, *releaseAfter))
		if err != nil {
			die("failed to render best candidate: %v", err)
		}
		if err := fitcommon.WriteStereoInterleavedWAV(*outputWAV, samples, *sampleRate); err != nil {
			die("failed to write %s: %v", *outputWAV, err)
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		result.evals, result.elapsed, result.bestMetrics.Score, result.bestMetrics.Similarity*100.0, out.variant)
}

// fitEngineOptions loads the preset's body IR once and silences engine
// warnings for the evaluation renders.
func fitEngineOptions(base *preset.Preset, sampleRate int) ([]piano.Option, error) {
	opts, err := fitcommon.EngineOptions(base, sampleRate)
	if err != nil {
		return nil, err
	}
	f := logging.NewDefaultLoggerFactory()
	f.DefaultLogLevel = logging.LogLevelError
	return append(opts, piano.WithRand(nil), piano.WithLogger(f.NewLogger("fit"))), nil
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}

	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
