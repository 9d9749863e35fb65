package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-layerpiano/analysis"
	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/preset"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the candidate from a preset")
	presetPath := flag.String("preset", "", "Preset JSON path for the rendered candidate (optional)")
	noteFlag := flag.String("note", "C4", "Note for the rendered candidate (number or name)")
	releaseAfter := flag.Float64("release-after", 1.0, "Hold time before release for the rendered candidate")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	bandsFlag := flag.Bool("bands", false, "Also print per-band level differences over time windows")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	refRaw, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err := fitcommon.ResampleIfNeeded(refRaw, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		candRaw, candSR, err := fitcommon.ReadWAVMono(*candidatePath)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
		if cand, err = fitcommon.ResampleIfNeeded(candRaw, candSR, *sampleRate); err != nil {
			die("failed to resample candidate: %v", err)
		}
	} else {
		note, err := pitch.Parse(*noteFlag)
		if err != nil {
			die("invalid --note: %v", err)
		}
		pre := preset.New()
		if *presetPath != "" {
			if pre, err = preset.LoadJSON(*presetPath); err != nil {
				die("failed to load preset: %v", err)
			}
		}
		stereo, err := fitcommon.Render(fitcommon.RenderConfig{
			SampleRate: *sampleRate,
			Preset:     pre,
			Duration:   float64(len(ref)) / float64(*sampleRate),
			Options:    []piano.Option{piano.WithRand(nil)},
		}, fitcommon.SingleNote(note, *releaseAfter))
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = fitcommon.StereoToMono64(stereo)
		if *writeCandidate != "" {
			if err := fitcommon.WriteStereoInterleavedWAV(*writeCandidate, stereo, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	metrics := analysis.Compare(ref, cand, *sampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference frames: %d\n", metrics.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", metrics.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", metrics.AlignedFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", metrics.LagSamples, 1000.0*float64(metrics.LagSamples)/float64(metrics.SampleRate))
	fmt.Printf("Envelope RMSE:    %.1f dB\n", metrics.EnvelopeRMSEDB)
	fmt.Printf("Spectral RMSE:    %.1f dB\n", metrics.SpectralRMSEDB)
	fmt.Printf("Centroid diff:    %.0f Hz\n", metrics.CentroidDiffHz)
	fmt.Printf("Decay slopes:     ref=%.1f dB/s  cand=%.1f dB/s\n", metrics.RefDecayDBPerS, metrics.CandDecayDBPerS)
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", metrics.Score)
	fmt.Printf("Similarity:       %.2f%%\n", metrics.Similarity*100.0)

	if *bandsFlag {
		fmt.Println()
		if err := printBands(ref, cand, *sampleRate); err != nil {
			die("band analysis failed: %v", err)
		}
	}
}

type band struct {
	name       string
	loHz, hiHz float64
}

type window struct {
	name           string
	startMs, endMs float64
}

var (
	bands = []band{
		{"bass (20-300Hz)", 20, 300},
		{"low-mid (300-1kHz)", 300, 1000},
		{"mid (1-3kHz)", 1000, 3000},
		{"hi-mid (3-6kHz)", 3000, 6000},
		{"high (6-12kHz)", 6000, 12000},
	}
	windows = []window{
		{"attack (0-100ms)", 0, 100},
		{"body (100-500ms)", 100, 500},
		{"decay (0.5-2s)", 500, 2000},
		{"late (2-4s)", 2000, 4000},
	}
)

// printBands averages magnitude spectra per time window and reports the
// band level difference of the candidate against the reference.
func printBands(ref, cand []float64, sampleRate int) error {
	const size, hop = 4096, 2048
	a, err := analysis.NewAnalyzer(size)
	if err != nil {
		return err
	}
	n := min(len(ref), len(cand))
	for _, w := range windows {
		start := int(w.startMs / 1000 * float64(sampleRate))
		end := min(n, int(w.endMs/1000*float64(sampleRate)))
		if start >= end {
			continue
		}
		refAvg := averageSpectrum(a, ref, start, end, hop, sampleRate)
		candAvg := averageSpectrum(a, cand, start, end, hop, sampleRate)

		fmt.Printf("--- %s ---\n", w.name)
		for _, b := range bands {
			refDB := bandDB(refAvg, b)
			candDB := bandDB(candAvg, b)
			fmt.Printf("  %-20s ref=%6.1fdB  cand=%6.1fdB  diff=%+5.1fdB\n", b.name, refDB, candDB, candDB-refDB)
		}
	}
	return nil
}

func averageSpectrum(a *analysis.Analyzer, x []float64, start, end, hop, sampleRate int) analysis.Spectrum {
	var avg analysis.Spectrum
	frames := 0
	for pos := start; pos == start || pos+a.Size() <= end; pos += hop {
		s := a.Frame(x, pos, sampleRate)
		if avg.Mag == nil {
			avg = s
		} else {
			for k, v := range s.Mag {
				avg.Mag[k] += v
			}
		}
		frames++
	}
	for k := range avg.Mag {
		avg.Mag[k] /= float64(frames)
	}
	return avg
}

func bandDB(s analysis.Spectrum, b band) float64 {
	lo := max(1, int(b.loHz/s.BinHz()))
	hi := min(len(s.Mag)-1, int(b.hiHz/s.BinHz()))
	if lo > hi {
		return math.Inf(-1)
	}
	var pow float64
	for k := lo; k <= hi; k++ {
		pow += s.Mag[k] * s.Mag[k]
	}
	return 10 * math.Log10(math.Max(pow/float64(hi-lo+1), 1e-24))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
