//go:build js

// Command piano-web exposes the piano to a page as window.layerPiano.
// Build it with gopherjs.
package main

import (
	"encoding/json"

	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/preset"
	"github.com/cwbudde/algo-layerpiano/webaudio"
	"github.com/gopherjs/gopherjs/js"
	"github.com/pion/logging"
)

type app struct {
	ctx *webaudio.Context
	p   *piano.Piano
	log logging.LeveledLogger
}

func main() {
	a := &app{log: logging.NewDefaultLoggerFactory().NewLogger("web")}
	js.Global.Set("layerPiano", js.M{
		"init":           a.init,
		"press":          a.press,
		"release":        a.release,
		"setTimbre":      a.setTimbre,
		"timbres":        a.timbres,
		"setStereoWidth": a.setStereoWidth,
		"onEvent":        a.onEvent,
		"liveNodes":      a.liveNodes,
	})
}

// init creates the audio context and engine. presetJSON may be empty.
// The return value is an error message or the empty string.
func (a *app) init(presetJSON string) string {
	if a.p != nil {
		return ""
	}
	pre := preset.New()
	if presetJSON != "" {
		var f preset.File
		if err := json.Unmarshal([]byte(presetJSON), &f); err != nil {
			return err.Error()
		}
		if err := preset.ApplyFile(pre, &f); err != nil {
			return err.Error()
		}
	}
	store, err := pre.Store()
	if err != nil {
		return err.Error()
	}
	ctx, err := webaudio.New()
	if err != nil {
		return err.Error()
	}
	p, err := piano.NewPiano(ctx, pre.Params,
		piano.WithTimbres(store),
		piano.WithLogger(a.log))
	if err != nil {
		return err.Error()
	}
	a.ctx, a.p = ctx, p
	return ""
}

// press accepts a note number or name. Browsers create contexts
// suspended until a gesture, so every press resumes.
func (a *app) press(note *js.Object) string {
	if a.p == nil {
		return "not initialised"
	}
	n, err := jsNote(note)
	if err != nil {
		return err.Error()
	}
	a.ctx.Resume()
	if err := a.p.PressKey(n); err != nil {
		return err.Error()
	}
	return ""
}

func (a *app) release(note *js.Object) string {
	if a.p == nil {
		return "not initialised"
	}
	n, err := jsNote(note)
	if err != nil {
		return err.Error()
	}
	if err := a.p.ReleaseKey(n); err != nil {
		return err.Error()
	}
	return ""
}

func (a *app) setTimbre(name string) bool {
	return a.p != nil && a.p.SetTimbre(name)
}

func (a *app) timbres() []string {
	if a.p == nil {
		return nil
	}
	return a.p.Timbres()
}

func (a *app) setStereoWidth(w float64) string {
	if a.p == nil {
		return "not initialised"
	}
	if err := a.p.SetStereoWidth(w); err != nil {
		return err.Error()
	}
	return ""
}

// onEvent registers fn(kind, note, time) and returns the unsubscribe
// function.
func (a *app) onEvent(fn *js.Object) func() {
	if a.p == nil {
		return func() {}
	}
	return a.p.Subscribe(func(ev piano.Event) {
		fn.Invoke(ev.Kind.String(), ev.Note, ev.Time)
	})
}

func (a *app) liveNodes() int {
	if a.ctx == nil {
		return 0
	}
	return a.ctx.LiveNodes()
}

// jsNote reads a number or a note name; numbers stringify to digits.
func jsNote(v *js.Object) (int, error) {
	return pitch.Parse(v.String())
}
