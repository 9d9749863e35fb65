package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/algo-layerpiano/graph"
	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/preset"
	"github.com/ebitengine/oto/v3"
	"github.com/pion/logging"
	"golang.org/x/term"
)

const usage = "keys a-; play, z/x octave, [ ] stereo width, 1-9 timbre, q quit"

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	timbreName := flag.String("timbre", "", "Initial timbre")
	hold := flag.Duration("hold", 600*time.Millisecond, "How long a typed key holds its note")
	latency := flag.Duration("latency", 30*time.Millisecond, "Output buffer size")
	midiPath := flag.String("midi", "", "Raw MIDI device to read note messages from (e.g. /dev/snd/midiC1D0)")
	noKeys := flag.Bool("no-keyboard", false, "Do not read the computer keyboard")
	flag.Parse()

	logFactory := logging.NewDefaultLoggerFactory()
	log := logFactory.NewLogger("play")

	pre := preset.New()
	if *presetPath != "" {
		var err error
		if pre, err = preset.LoadJSON(*presetPath); err != nil {
			die("Error loading preset %q: %v", *presetPath, err)
		}
	}
	if *timbreName != "" {
		pre.Params.Timbre = *timbreName
	}
	opts, err := fitcommon.EngineOptions(pre, *sampleRate)
	if err != nil {
		die("Error preparing engine: %v", err)
	}
	opts = append(opts, piano.WithLogger(logFactory.NewLogger("piano")))

	ctx := graph.NewContext(*sampleRate)
	p, err := piano.NewPiano(ctx, pre.Params, opts...)
	if err != nil {
		die("Error creating engine: %v", err)
	}
	defer p.Close()
	unsubscribe := p.Subscribe(func(ev piano.Event) {
		log.Debugf("%s %s at %.3fs", ev.Kind, pitch.Name(ev.Note), ev.Time)
	})
	defer unsubscribe()

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   *latency,
	})
	if err != nil {
		die("Error opening audio output: %v", err)
	}
	<-ready
	player := otoCtx.NewPlayer(&renderReader{ctx: ctx})
	defer player.Close()
	player.Play()

	c := newController(p, log, *hold)

	if *midiPath != "" {
		dev, err := os.Open(*midiPath)
		if err != nil {
			die("Error opening MIDI device: %v", err)
		}
		defer dev.Close()
		go func() {
			s := newMIDIStream(dev)
			for {
				msg, err := s.Next()
				if err != nil {
					if !errors.Is(err, io.EOF) {
						log.Errorf("midi: %v", err)
					}
					return
				}
				c.handleMIDI(msg)
			}
		}()
		log.Infof("reading MIDI from %s", *midiPath)
	}

	if *noKeys {
		fmt.Println("Playing; press Ctrl-C to stop.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		return
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		die("stdin is not a terminal; use -no-keyboard with -midi")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		die("Error entering raw mode: %v", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	fmt.Print(usage + "\r\n")
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		if !c.handleKey(buf[0]) {
			return
		}
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
