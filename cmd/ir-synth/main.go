package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/irsynth"
)

func main() {
	cfg := irsynth.DefaultConfig()

	output := flag.String("output", "body_ir.wav", "Output WAV path")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.DurationS, "duration", cfg.DurationS, "IR length in seconds")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.Amplitude, "amplitude", cfg.Amplitude, "Noise amplitude")
	flag.Float64Var(&cfg.LeftDecay, "left-decay", cfg.LeftDecay, "Left envelope decay rate (1/s)")
	flag.Float64Var(&cfg.RightDecay, "right-decay", cfg.RightDecay, "Right envelope decay rate (1/s)")
	flag.IntVar(&cfg.Modes, "modes", cfg.Modes, "Number of damped panel modes")
	flag.Float64Var(&cfg.ModeLevel, "mode-level", cfg.ModeLevel, "Panel mode level")
	flag.Float64Var(&cfg.LowModeHz, "low-mode", cfg.LowModeHz, "Lowest panel mode frequency (Hz)")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target (0 = off)")
	flag.Parse()

	left, right, err := irsynth.GenerateStereo(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ir-synth error: %v\n", err)
		os.Exit(1)
	}

	if err := fitcommon.WriteStereoWAVLR(*output, left, right, cfg.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	peak, rms := stats(left, right)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.DurationS, len(left))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func stats(left []float32, right []float32) (peak float64, rms float64) {
	if len(left) == 0 || len(right) == 0 {
		return 0, 0
	}
	peak = math.Max(fitcommon.Peak(left), fitcommon.Peak(right))
	var sum float64
	for i := range left {
		lv := float64(left[i])
		rv := float64(right[i])
		sum += lv*lv + rv*rv
	}
	return peak, math.Sqrt(sum / float64(2*len(left)))
}
