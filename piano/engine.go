package piano

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/dsp"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

// Option configures a Piano.
type Option func(*options)

type options struct {
	log          logging.LeveledLogger
	tuning       pitch.Tuning
	rand         timbre.Rand
	randSet      bool
	timbres      *timbre.Store
	notifyBuffer int
	bodyIR       *bodyIR
}

// WithLogger sets the engine logger.
func WithLogger(l logging.LeveledLogger) Option {
	return func(o *options) { o.log = l }
}

// WithTuning sets the reference pitch used to resolve note frequencies.
func WithTuning(t pitch.Tuning) Option {
	return func(o *options) { o.tuning = t }
}

// WithRand sets the source for per-voice timbre jitter. A nil source
// disables jitter.
func WithRand(r timbre.Rand) Option {
	return func(o *options) {
		o.rand = r
		o.randSet = true
	}
}

// WithTimbres replaces the built-in timbre table.
func WithTimbres(s *timbre.Store) Option {
	return func(o *options) { o.timbres = s }
}

// WithNotifyBuffer sets how many notifications may queue before new ones
// are dropped.
func WithNotifyBuffer(n int) Option {
	return func(o *options) { o.notifyBuffer = n }
}

// WithBodyIR uses a recorded body response instead of the synthetic one.
// A nil right channel reuses left.
func WithBodyIR(left, right []float32) Option {
	return func(o *options) {
		if right == nil {
			right = left
		}
		o.bodyIR = &bodyIR{left: left, right: right}
	}
}

// Piano is the polyphony registry. It maps each sounding note to exactly
// one voice and owns the output bus all voices feed.
type Piano struct {
	mu      sync.Mutex
	ctx     backend.Context
	params  Params
	timbres *timbre.Store
	tuning  pitch.Tuning
	rand    timbre.Rand
	log     logging.LeveledLogger
	curve   []float64
	bus     *outputBus
	voices  map[int]*Voice
	closed  bool

	// tails holds released voices until their cleanup runs. It has its own
	// lock because cleanup is driven by the render clock.
	tailMu sync.Mutex
	tails  map[*Voice]struct{}

	notify *notifier
}

// NewPiano creates an engine rendering into ctx. A nil params uses
// NewDefaultParams.
func NewPiano(ctx backend.Context, params *Params, opts ...Option) (*Piano, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	o := options{tuning: pitch.Standard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		f := logging.NewDefaultLoggerFactory()
		o.log = f.NewLogger("piano")
	}
	if !o.randSet {
		o.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.timbres == nil {
		o.timbres = timbre.NewBuiltinStore()
	}
	if params.Timbre != "" && !o.timbres.SetActive(params.Timbre) {
		return nil, fmt.Errorf("%w: unknown timbre %q", ErrConfiguration, params.Timbre)
	}

	bus, err := newOutputBus(ctx, params.OutputGain, params.Body, o.bodyIR)
	if err != nil {
		return nil, fmt.Errorf("output bus: %w", err)
	}

	p := &Piano{
		ctx:     ctx,
		params:  *params,
		timbres: o.timbres,
		tuning:  o.tuning,
		rand:    o.rand,
		log:     o.log,
		curve:   dsp.TanhCurve(shaperCurveSize, shaperDrive),
		bus:     bus,
		voices:  make(map[int]*Voice),
		tails:   make(map[*Voice]struct{}),
		notify:  newNotifier(o.notifyBuffer, o.log),
	}
	return p, nil
}

// PressKey starts a voice for note unless one is already sounding.
//
// When the backend refuses to create more nodes the press is dropped, the
// note stays unregistered and the returned error wraps both
// ErrResourceExhausted and backend.ErrNodeLimit.
func (p *Piano) PressKey(note int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.voices[note]; ok {
		return nil
	}
	freq, err := p.tuning.FrequencyOf(note)
	if err != nil {
		return fmt.Errorf("press: %w", err)
	}
	tc := p.timbres.Active().Jittered(p.rand)

	v, err := newVoice(voiceSpec{
		ctx:        p.ctx,
		note:       note,
		freq:       freq,
		timbre:     tc,
		envelope:   p.params.Envelope,
		sweep:      p.params.FilterSweep,
		width:      p.params.Stereo.Width,
		compressor: p.params.Compressor,
		curve:      p.curve,
		out:        p.bus.in,
		log:        p.log,
		onCleaned:  p.voiceCleaned,
	})
	if err != nil {
		if errors.Is(err, backend.ErrNodeLimit) {
			p.log.Warnf("press %s dropped: %v", pitch.Name(note), err)
			return fmt.Errorf("%w: press %s: %w", ErrResourceExhausted, pitch.Name(note), err)
		}
		return fmt.Errorf("press %s: %w", pitch.Name(note), err)
	}
	p.voices[note] = v
	p.log.Debugf("press %s (%.2f Hz, %s) voice %s", pitch.Name(note), freq, tc.Name, v.ID())
	p.notify.emit(Event{Kind: Attack, Note: note, Time: v.StartTime()})
	return nil
}

// ReleaseKey starts the release of note's voice and removes it from the
// registry at once. The tail keeps sounding until the render clock reaches
// its stop time.
func (p *Piano) ReleaseKey(note int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	v, ok := p.voices[note]
	if !ok {
		return nil
	}
	delete(p.voices, note)

	p.tailMu.Lock()
	p.tails[v] = struct{}{}
	p.tailMu.Unlock()

	now := p.ctx.CurrentTime()
	if err := v.release(now); err != nil {
		return err
	}
	p.notify.emit(Event{Kind: Release, Note: note, Time: now})
	return nil
}

func (p *Piano) voiceCleaned(v *Voice) {
	p.tailMu.Lock()
	delete(p.tails, v)
	p.tailMu.Unlock()
}

// SetTimbre selects the timbre for subsequent presses. Unknown names keep
// the current selection and report false.
func (p *Piano) SetTimbre(name string) bool {
	if !p.timbres.SetActive(name) {
		p.log.Debugf("unknown timbre %q, keeping %q", name, p.timbres.ActiveName())
		return false
	}
	return true
}

// Timbre returns the active timbre name.
func (p *Piano) Timbre() string {
	return p.timbres.ActiveName()
}

// Timbres lists the selectable timbre names.
func (p *Piano) Timbres() []string {
	return p.timbres.Names()
}

// AddTimbre validates c and makes it selectable, replacing any timbre with
// the same name.
func (p *Piano) AddTimbre(c timbre.Config) error {
	if err := p.timbres.Add(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// SetStereoWidth clamps width to [0, MaxStereoWidth] and ramps every
// sounding voice to it. Voices pressed later start at the new width.
func (p *Piano) SetStereoWidth(width float64) error {
	cfg := StereoConfig{Width: width}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.Stereo.Width = ClampWidth(width)
	var errs []error
	for _, v := range p.voices {
		if err := v.setWidth(p.params.Stereo.Width); err != nil {
			errs = append(errs, fmt.Errorf("voice %s: %w", pitch.Name(v.Note()), err))
		}
	}
	return errors.Join(errs...)
}

// StereoWidth returns the effective width.
func (p *Piano) StereoWidth() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.Stereo.Width
}

// SetEnvelope replaces the master envelope for subsequent presses. An
// invalid config is rejected and the previous one stays active.
func (p *Piano) SetEnvelope(cfg EnvelopeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.Envelope = cfg
	return nil
}

// SetFilterSweep replaces the filter sweep for subsequent presses.
func (p *Piano) SetFilterSweep(cfg FilterSweepConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.FilterSweep = cfg
	return nil
}

// SetCompressor replaces the per-voice compressor for subsequent presses.
func (p *Piano) SetCompressor(cfg CompressorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.Compressor = cfg
	return nil
}

// SetOutputGain ramps the output bus to gain.
func (p *Piano) SetOutputGain(gain float64) error {
	if !isFinite(gain) || gain < 0 || gain > 4 {
		return fmt.Errorf("%w: output gain must be in [0,4], got %g", ErrConfiguration, gain)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := p.bus.setGain(gain, p.ctx.CurrentTime()); err != nil {
		return err
	}
	p.params.OutputGain = gain
	return nil
}

// Params returns a copy of the current configuration.
func (p *Piano) Params() Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.params
	out.Timbre = p.timbres.ActiveName()
	return out
}

// Subscribe registers fn for attack and release notifications. fn runs on
// the notifier goroutine. The returned function unsubscribes.
func (p *Piano) Subscribe(fn func(Event)) func() {
	return p.notify.subscribe(fn)
}

// IsSounding reports whether note has a registered voice.
func (p *Piano) IsSounding(note int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.voices[note]
	return ok
}

// ActiveNotes returns the registered notes in ascending order.
func (p *Piano) ActiveNotes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	notes := make([]int, 0, len(p.voices))
	for n := range p.voices {
		notes = append(notes, n)
	}
	sort.Ints(notes)
	return notes
}

// Voice returns the registered voice for note.
func (p *Piano) Voice(note int) (*Voice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.voices[note]
	return v, ok
}

// Tails reports released voices whose nodes are not yet cleaned up.
func (p *Piano) Tails() int {
	p.tailMu.Lock()
	defer p.tailMu.Unlock()
	return len(p.tails)
}

// Close silences every voice, releases all nodes and stops notifications.
// Further presses and releases return ErrClosed.
func (p *Piano) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	voices := make([]*Voice, 0, len(p.voices))
	for _, v := range p.voices {
		voices = append(voices, v)
	}
	p.voices = map[int]*Voice{}
	p.mu.Unlock()

	p.tailMu.Lock()
	for v := range p.tails {
		voices = append(voices, v)
	}
	p.tailMu.Unlock()

	for _, v := range voices {
		v.abort()
	}
	err := p.bus.close()
	p.notify.close()
	return err
}
