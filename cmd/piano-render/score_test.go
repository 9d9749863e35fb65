package main

import (
	"os"
	"strings"
	"testing"
)

func TestLoadScoreEvents(t *testing.T) {
	src := `
press(60, 0)
release("C4", 0.5)
play("A4", 1, 0.25)
`
	s, err := loadScore(src, "inline", 48000)
	if err != nil {
		t.Fatalf("loadScore: %v", err)
	}
	if len(s.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(s.events))
	}
	want := []struct {
		time  float64
		note  int
		press bool
	}{
		{0, 60, true},
		{0.5, 60, false},
		{1, 69, true},
		{1.25, 69, false},
	}
	for i, w := range want {
		ev := s.events[i]
		if ev.Time != w.time || ev.Note != w.note || ev.Press != w.press {
			t.Fatalf("event %d = %+v, want %+v", i, ev, w)
		}
	}
	if s.end() != 1.25 {
		t.Fatalf("end=%g", s.end())
	}
	if s.duration != 0 {
		t.Fatalf("duration should be unset, got %g", s.duration)
	}
}

func TestLoadScoreSampleRateAndLength(t *testing.T) {
	s, err := loadScore(`length(sample_rate / 16000)`, "inline", 32000)
	if err != nil {
		t.Fatalf("loadScore: %v", err)
	}
	if s.duration != 2 {
		t.Fatalf("duration=%g", s.duration)
	}
}

func TestLoadScoreErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":        `press(60, `,
		"negative time": `press(60, -1)`,
		"bad name":      `press("H4", 0)`,
		"fraction":      `press(60.5, 0)`,
		"out of range":  `release(128, 0)`,
		"wrong type":    `press({}, 0)`,
		"runtime":       `error("boom")`,
	}
	for name, src := range cases {
		if _, err := loadScore(src, name, 48000); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestBundledScoresLoad(t *testing.T) {
	entries, err := os.ReadDir("scores")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		src, err := os.ReadFile("scores/" + e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		s, err := loadScore(string(src), e.Name(), 48000)
		if err != nil {
			t.Fatalf("%s: %v", e.Name(), err)
		}
		if len(s.events) == 0 || s.duration <= s.end() {
			t.Fatalf("%s: %d events, length %g, end %g", e.Name(), len(s.events), s.duration, s.end())
		}
	}
}
