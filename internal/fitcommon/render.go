package fitcommon

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-layerpiano/graph"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/preset"
)

// NoteEvent is a key press or release at an absolute time in seconds.
type NoteEvent struct {
	Time  float64
	Note  int
	Press bool
}

// RenderConfig configures an offline render.
type RenderConfig struct {
	SampleRate int
	// Preset defaults to preset.New().
	Preset   *preset.Preset
	Duration float64
	Options  []piano.Option
}

// EngineOptions builds the engine options a preset implies: its timbre
// store and, when set, its recorded body response.
func EngineOptions(pre *preset.Preset, sampleRate int) ([]piano.Option, error) {
	store, err := pre.Store()
	if err != nil {
		return nil, err
	}
	opts := []piano.Option{piano.WithTimbres(store)}
	if pre.BodyIRPath != "" {
		left, right, err := LoadBodyIR(pre.BodyIRPath, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("body ir %s: %w", pre.BodyIRPath, err)
		}
		opts = append(opts, piano.WithBodyIR(left, right))
	}
	return opts, nil
}

// Render plays events through a fresh engine and returns interleaved
// stereo frames. Events are applied at their exact frame.
func Render(cfg RenderConfig, events []NoteEvent) ([]float32, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	pre := cfg.Preset
	if pre == nil {
		pre = preset.New()
	}
	opts, err := EngineOptions(pre, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	opts = append(opts, cfg.Options...)

	ctx := graph.NewContext(cfg.SampleRate)
	p, err := piano.NewPiano(ctx, pre.Params, opts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	sorted := append([]NoteEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	sr := float64(cfg.SampleRate)
	total := int(math.Round(cfg.Duration * sr))
	if total < 1 {
		total = 1
	}
	out := make([]float32, total*2)
	frame := 0
	for _, ev := range sorted {
		at := int(math.Round(ev.Time * sr))
		if at >= total {
			break
		}
		if at > frame {
			ctx.Render(out[2*frame : 2*at])
			frame = at
		}
		if ev.Press {
			err = p.PressKey(ev.Note)
		} else {
			err = p.ReleaseKey(ev.Note)
		}
		if err != nil {
			return nil, fmt.Errorf("note %d at %.3fs: %w", ev.Note, ev.Time, err)
		}
	}
	if frame < total {
		ctx.Render(out[2*frame:])
	}
	return out, nil
}

// SingleNote is the press/release pair for one held note.
func SingleNote(note int, hold float64) []NoteEvent {
	return []NoteEvent{
		{Time: 0, Note: note, Press: true},
		{Time: hold, Note: note},
	}
}
