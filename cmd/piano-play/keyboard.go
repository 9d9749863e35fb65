package main

import (
	"sync"
	"time"

	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/pion/logging"
	"gitlab.com/gomidi/midi/v2"
)

// keyRow maps computer keys to semitones above the base note, laid out
// like a piano keyboard on the home and top rows.
var keyRow = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12, 'o': 13,
	'l': 14, 'p': 15, ';': 16,
}

const (
	keyQuit   = 'q'
	keyCtrlC  = 0x03
	widthStep = 0.25
)

// controller turns key presses and MIDI messages into engine calls.
// Terminals report no key-up events, so each typed key holds its note for
// a fixed time.
type controller struct {
	mu    sync.Mutex
	p     *piano.Piano
	log   logging.LeveledLogger
	hold  time.Duration
	base  int
	gen   map[int]uint64
	after func(time.Duration, func())
}

func newController(p *piano.Piano, log logging.LeveledLogger, hold time.Duration) *controller {
	return &controller{
		p:    p,
		log:  log,
		hold: hold,
		base: 60,
		gen:  make(map[int]uint64),
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

func (c *controller) noteFor(key byte) (int, bool) {
	off, ok := keyRow[key]
	if !ok {
		return 0, false
	}
	n := c.base + off
	return n, n >= pitch.MinNote && n <= pitch.MaxNote
}

// handleKey reacts to one typed byte. It reports false when the user
// asked to quit.
func (c *controller) handleKey(b byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case b == keyQuit || b == keyCtrlC:
		return false
	case b == 'z':
		c.base = max(c.base-12, 0)
		c.log.Infof("base note %s", pitch.Name(c.base))
	case b == 'x':
		c.base = min(c.base+12, 108)
		c.log.Infof("base note %s", pitch.Name(c.base))
	case b == '[' || b == ']':
		w := c.p.StereoWidth() - widthStep
		if b == ']' {
			w = c.p.StereoWidth() + widthStep
		}
		if err := c.p.SetStereoWidth(w); err != nil {
			c.log.Warnf("stereo width: %v", err)
		}
		c.log.Infof("stereo width %.2f", c.p.StereoWidth())
	case b >= '1' && b <= '9':
		names := c.p.Timbres()
		if i := int(b - '1'); i < len(names) {
			c.p.SetTimbre(names[i])
			c.log.Infof("timbre %s", names[i])
		}
	default:
		if n, ok := c.noteFor(b); ok {
			c.strikeLocked(n)
		}
	}
	return true
}

func (c *controller) strikeLocked(note int) {
	if c.p.IsSounding(note) {
		if err := c.p.ReleaseKey(note); err != nil {
			c.log.Warnf("release %s: %v", pitch.Name(note), err)
		}
	}
	if err := c.p.PressKey(note); err != nil {
		c.log.Warnf("press %s: %v", pitch.Name(note), err)
		return
	}
	c.gen[note]++
	g := c.gen[note]
	c.after(c.hold, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen[note] != g {
			return
		}
		if err := c.p.ReleaseKey(note); err != nil {
			c.log.Warnf("release %s: %v", pitch.Name(note), err)
		}
	})
}

// handleMIDI maps note on/off messages onto key presses and releases.
func (c *controller) handleMIDI(msg midi.Message) {
	var ch, key, vel uint8
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		c.gen[int(key)]++
		if err := c.p.PressKey(int(key)); err != nil {
			c.log.Warnf("midi press %d: %v", key, err)
		}
	case msg.GetNoteEnd(&ch, &key):
		c.gen[int(key)]++
		if err := c.p.ReleaseKey(int(key)); err != nil {
			c.log.Warnf("midi release %d: %v", key, err)
		}
	default:
		c.log.Debugf("unhandled midi message %s", msg.String())
	}
}
