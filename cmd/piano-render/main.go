package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/preset"
)

// tailPad is rendered after the last release has finished.
const tailPad = 0.25

func main() {
	note := flag.String("note", "69", "Note number or name (69 = A4 = 440 Hz)")
	hold := flag.Float64("hold", 1.0, "Seconds the note is held before release")
	duration := flag.Float64("duration", 0, "Render length in seconds (0 = until the release tail ends)")
	scorePath := flag.String("score", "", "Lua score script (overrides -note/-hold)")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	timbreName := flag.String("timbre", "", "Timbre override")
	width := flag.Float64("width", -1, "Stereo width override (0-2)")
	body := flag.Bool("body", false, "Enable the body resonance convolver")
	irPath := flag.String("ir", "", "Body IR WAV path override (implies -body)")
	seed := flag.Int64("seed", 0, "Jitter seed (0 disables per-note jitter)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	pre := preset.New()
	if *presetPath != "" {
		var err error
		if pre, err = preset.LoadJSON(*presetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *timbreName != "" {
		pre.Params.Timbre = *timbreName
	}
	if *width >= 0 {
		pre.Params.Stereo.Width = *width
	}
	if *irPath != "" {
		pre.BodyIRPath = *irPath
		*body = true
	}
	if *body {
		pre.Params.Body.Enabled = true
	}

	var events []fitcommon.NoteEvent
	length := *duration
	if *scorePath != "" {
		src, err := os.ReadFile(*scorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading score: %v\n", err)
			os.Exit(1)
		}
		s, err := loadScore(string(src), *scorePath, *sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		events = s.events
		if length <= 0 {
			length = s.duration
		}
		if length <= 0 {
			length = s.end() + releaseSpan(pre.Params)
		}
	} else {
		n, err := pitch.Parse(*note)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		events = fitcommon.SingleNote(n, *hold)
		if length <= 0 {
			length = *hold + releaseSpan(pre.Params)
		}
	}

	var opts []piano.Option
	if *seed == 0 {
		opts = append(opts, piano.WithRand(nil))
	} else {
		opts = append(opts, piano.WithRand(rand.New(rand.NewSource(*seed))))
	}

	fmt.Printf("Rendering %d events, %.2f s at %d Hz (timbre: %s)...\n",
		len(events), length, *sampleRate, timbreLabel(pre.Params.Timbre))

	samples, err := fitcommon.Render(fitcommon.RenderConfig{
		SampleRate: *sampleRate,
		Preset:     pre,
		Duration:   length,
		Options:    opts,
	}, events)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	if err := fitcommon.WriteStereoInterleavedWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d frames, peak %.3f)\n", *output, len(samples)/2, fitcommon.Peak(samples))
}

// releaseSpan covers the release stage, the stop margin and a short pad.
func releaseSpan(p *piano.Params) float64 {
	span := p.Envelope.Release + 0.05 + tailPad
	if p.Body.Enabled {
		span += p.Body.Duration
	}
	return span
}

func timbreLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
