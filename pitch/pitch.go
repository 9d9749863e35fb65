// Package pitch converts note numbers to frequencies and names.
package pitch

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinNote = 0
	MaxNote = 127
	A4Note  = 69
)

var ErrNoteRange = errors.New("note out of range")

// Tuning maps notes to frequencies in twelve-tone equal temperament.
type Tuning struct {
	A4 float64
}

// Standard is concert pitch, A4 = 440 Hz.
var Standard = Tuning{A4: 440}

// FrequencyOf returns the frequency of note in Hz.
func (t Tuning) FrequencyOf(note int) (float64, error) {
	if note < MinNote || note > MaxNote {
		return 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrNoteRange, note, MinNote, MaxNote)
	}
	a4 := t.A4
	if a4 <= 0 {
		a4 = Standard.A4
	}
	return a4 * math.Pow(2, float64(note-A4Note)/12), nil
}

// FrequencyOf uses the standard tuning.
func FrequencyOf(note int) (float64, error) {
	return Standard.FrequencyOf(note)
}

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	pitchClass = map[string]int{
		"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "F": 5,
		"F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
	}
	nameRe = regexp.MustCompile(`^([A-Ga-g][#bB]?)(-?\d+)$`)
)

// Name returns the sharp spelling of note, with C4 = 60.
func Name(note int) string {
	if note < MinNote || note > MaxNote {
		return fmt.Sprintf("note(%d)", note)
	}
	return sharpNames[note%12] + strconv.Itoa(note/12-1)
}

// ParseName accepts names like "C#4", "Db3" or "a0".
func ParseName(s string) (int, error) {
	m := nameRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	class := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	pc, ok := pitchClass[class]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	octave, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	note := (octave+1)*12 + pc
	if note < MinNote || note > MaxNote {
		return 0, fmt.Errorf("%w: %q", ErrNoteRange, s)
	}
	return note, nil
}

// Parse accepts a note number or a note name.
func Parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < MinNote || n > MaxNote {
			return 0, fmt.Errorf("%w: %d", ErrNoteRange, n)
		}
		return n, nil
	}
	return ParseName(s)
}
