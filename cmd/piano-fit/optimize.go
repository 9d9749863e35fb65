package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-layerpiano/analysis"
	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/preset"
	"github.com/cwbudde/mayfly"
)

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

type optimizationConfig struct {
	reference    []float64
	base         *preset.Preset
	engineOpts   []piano.Option
	defs         []knobDef
	initial      candidate
	note         int
	releaseAfter float64
	sampleRate   int
	seed         int64
	timeBudget   float64
	maxEvals     int
	reportEvery  int

	mayflyVariant    string
	mayflyPop        int
	mayflyRoundEvals int
	workers          int
	topK             int

	// checkpoint runs after every improvement. It may be nil.
	checkpoint func(*optimizationResult) error
}

type optimizationEval struct {
	metrics analysis.Metrics
	params  *piano.Params
}

type optimizationResult struct {
	best        candidate
	bestMetrics analysis.Metrics
	bestParams  *piano.Params
	top         []topCandidate
	evals       int
	elapsed     float64
}

type optimizationState struct {
	mu       sync.Mutex
	best     candidate
	bestEval optimizationEval
	top      []topCandidate
}

// evaluateCandidate renders the fitted note and scores it against the
// reference.
func evaluateCandidate(cfg *optimizationConfig, c candidate) (optimizationEval, error) {
	params, err := applyCandidate(cfg.base.Params, cfg.defs, c)
	if err != nil {
		return optimizationEval{}, err
	}
	pre := &preset.Preset{Params: params, Timbres: cfg.base.Timbres}
	duration := float64(len(cfg.reference)) / float64(cfg.sampleRate)
	out, err := fitcommon.Render(fitcommon.RenderConfig{
		SampleRate: cfg.sampleRate,
		Preset:     pre,
		Duration:   duration,
		Options:    cfg.engineOpts,
	}, fitcommon.SingleNote(cfg.note, cfg.releaseAfter))
	if err != nil {
		return optimizationEval{}, err
	}
	m := analysis.Compare(cfg.reference, fitcommon.StereoToMono64(out), cfg.sampleRate)
	if math.IsNaN(m.Score) || math.IsInf(m.Score, 0) {
		return optimizationEval{}, fmt.Errorf("non-finite score")
	}
	return optimizationEval{metrics: m, params: params}, nil
}

func runOptimization(cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))
	variant := strings.ToLower(cfg.mayflyVariant)
	if _, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), 1); err != nil {
		return nil, err
	}

	best := cloneCandidate(cfg.initial)
	initialEval, err := evaluateCandidate(cfg, best)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", initialEval.metrics.Score, initialEval.metrics.Similarity*100.0)

	state := &optimizationState{
		best:     best,
		bestEval: initialEval,
		top:      updateTopCandidates(nil, cfg.topK, 1, initialEval.metrics, cfg.defs, best),
	}

	var evals int64 = 1
	var rounds int64
	var improves int64
	var outputMu sync.Mutex

	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				round := int(atomic.AddInt64(&rounds, 1))
				budget := min(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mayflyConfig, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), iters)
				if err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d setup failed: %v\n", round, err)
					return
				}
				mayflyConfig.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
				mayflyConfig.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					res, err := evaluateCandidate(cfg, cand)
					if err != nil {
						return currentBestScore(state) + 0.8
					}

					var snapshot *optimizationResult
					state.mu.Lock()
					state.top = updateTopCandidates(state.top, cfg.topK, int(evalNum), res.metrics, cfg.defs, cand)
					if res.metrics.Score < state.bestEval.metrics.Score {
						state.best = cloneCandidate(cand)
						state.bestEval = res
						snapshot = state.result(int(atomic.LoadInt64(&evals)), time.Since(start))
					}
					bestScore := state.bestEval.metrics.Score
					state.mu.Unlock()

					if snapshot != nil {
						n := atomic.AddInt64(&improves, 1)
						fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", n, evalNum, snapshot.bestMetrics.Score, snapshot.bestMetrics.Similarity*100.0)
						if cfg.checkpoint != nil {
							outputMu.Lock()
							if err := cfg.checkpoint(snapshot); err != nil {
								fmt.Fprintf(os.Stderr, "checkpoint write failed: %v\n", err)
							}
							outputMu.Unlock()
						}
					}
					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n", evalNum, cfg.maxEvals, time.Since(start).Seconds(), bestScore)
					}
					return res.metrics.Score
				}

				if _, err := runMayfly(mayflyConfig); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.result(int(atomic.LoadInt64(&evals)), time.Since(start)), nil
}

// result snapshots the state. The caller holds s.mu.
func (s *optimizationState) result(evals int, elapsed time.Duration) *optimizationResult {
	return &optimizationResult{
		best:        cloneCandidate(s.best),
		bestMetrics: s.bestEval.metrics,
		bestParams:  cloneParams(s.bestEval.params),
		top:         cloneTopCandidates(s.top),
		evals:       evals,
		elapsed:     elapsed.Seconds(),
	}
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	score := state.bestEval.metrics.Score
	state.mu.Unlock()
	return score
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	entry := topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      make(map[string]float64, len(defs)),
	}
	for i, d := range defs {
		entry.Knobs[d.Name] = cand.Vals[i]
	}
	top = append(top, entry)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func cloneTopCandidates(top []topCandidate) []topCandidate {
	out := make([]topCandidate, len(top))
	for i, c := range top {
		out[i] = c
		out[i].Knobs = make(map[string]float64, len(c.Knobs))
		for k, v := range c.Knobs {
			out[i].Knobs[k] = v
		}
	}
	return out
}
