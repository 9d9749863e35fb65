package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/pitch"
	lua "github.com/yuin/gopher-lua"
)

// score is the event list a Lua script produced.
//
// Scripts call press(note, t), release(note, t), play(note, t, dur) and
// optionally length(seconds). Notes are numbers or names like "C#4".
type score struct {
	events   []fitcommon.NoteEvent
	duration float64
}

func (s *score) end() float64 {
	var last float64
	for _, ev := range s.events {
		last = math.Max(last, ev.Time)
	}
	return last
}

func loadScore(src, name string, sampleRate int) (*score, error) {
	L := lua.NewState()
	defer L.Close()

	s := &score{}
	L.SetGlobal("sample_rate", lua.LNumber(sampleRate))
	L.SetGlobal("press", L.NewFunction(func(L *lua.LState) int {
		s.add(L, true)
		return 0
	}))
	L.SetGlobal("release", L.NewFunction(func(L *lua.LState) int {
		s.add(L, false)
		return 0
	}))
	L.SetGlobal("play", L.NewFunction(func(L *lua.LState) int {
		note := checkNote(L, 1)
		at := checkTime(L, 2)
		dur := checkTime(L, 3)
		s.events = append(s.events,
			fitcommon.NoteEvent{Time: at, Note: note, Press: true},
			fitcommon.NoteEvent{Time: at + dur, Note: note},
		)
		return 0
	}))
	L.SetGlobal("length", L.NewFunction(func(L *lua.LState) int {
		s.duration = checkTime(L, 1)
		return 0
	}))

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("score %s: %w", name, err)
	}
	return s, nil
}

func (s *score) add(L *lua.LState, press bool) {
	note := checkNote(L, 1)
	at := checkTime(L, 2)
	s.events = append(s.events, fitcommon.NoteEvent{Time: at, Note: note, Press: press})
}

func checkNote(L *lua.LState, n int) int {
	switch v := L.CheckAny(n).(type) {
	case lua.LNumber:
		note := int(v)
		if float64(note) != float64(v) || note < pitch.MinNote || note > pitch.MaxNote {
			L.ArgError(n, fmt.Sprintf("note %v out of range", v))
		}
		return note
	case lua.LString:
		note, err := pitch.ParseName(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return note
	}
	L.TypeError(n, lua.LTNumber)
	return 0
}

func checkTime(L *lua.LState, n int) float64 {
	t := float64(L.CheckNumber(n))
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		L.ArgError(n, "time must be a finite value >= 0")
	}
	return t
}
