package piano

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/cwbudde/algo-layerpiano/backend"
	"github.com/cwbudde/algo-layerpiano/pitch"
	"github.com/cwbudde/algo-layerpiano/timbre"
)

// VoiceState is the lifecycle position of a voice.
type VoiceState int32

const (
	Idle VoiceState = iota
	Sounding
	Releasing
	Cleaned
)

func (s VoiceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sounding:
		return "sounding"
	case Releasing:
		return "releasing"
	case Cleaned:
		return "cleaned"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Voice is one note from press to silence. It owns every node it creates
// and releases them exactly once.
type Voice struct {
	id     uuid.UUID
	note   int
	freq   float64
	timbre string
	start  float64
	log    logging.LeveledLogger

	layers     []*layer
	filter     backend.BiquadFilter
	envelope   *envelope
	compressor backend.Node

	mu     sync.Mutex
	owned  nodeSet
	stopAt float64

	state     atomic.Int32
	remaining atomic.Int32
	onCleaned func(*Voice)
}

type voiceSpec struct {
	ctx        backend.Context
	note       int
	freq       float64
	timbre     timbre.Config
	envelope   EnvelopeConfig
	sweep      FilterSweepConfig
	width      float64
	compressor CompressorConfig
	curve      []float64
	out        backend.Node
	log        logging.LeveledLogger
	onCleaned  func(*Voice)
}

// newVoice assembles and starts a voice. On failure every node created so
// far is closed and the voice is never observable.
func newVoice(spec voiceSpec) (*Voice, error) {
	ctx := spec.ctx
	t0 := ctx.CurrentTime()
	v := &Voice{
		id:        uuid.New(),
		note:      spec.note,
		freq:      spec.freq,
		timbre:    spec.timbre.Name,
		start:     t0,
		log:       spec.log,
		onCleaned: spec.onCleaned,
	}
	if err := v.build(spec, t0); err != nil {
		v.owned.closeAll()
		v.state.Store(int32(Cleaned))
		return nil, err
	}
	v.state.Store(int32(Sounding))
	return v, nil
}

func (v *Voice) build(spec voiceSpec, t0 float64) error {
	ctx := spec.ctx
	for i, cfg := range spec.timbre.Layers {
		l, err := buildLayer(ctx, spec.freq, cfg, spec.width, spec.curve, t0, &v.owned)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		v.layers = append(v.layers, l)
	}

	var err error
	if v.filter, err = newFilterSweep(ctx, spec.sweep, spec.envelope, t0); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	v.owned.add(v.filter)
	if v.envelope, err = newEnvelope(ctx, spec.envelope, t0); err != nil {
		return fmt.Errorf("envelope: %w", err)
	}
	v.owned.add(v.envelope.gain)
	if v.compressor, err = ctx.NewCompressor(spec.compressor.settings()); err != nil {
		return fmt.Errorf("compressor: %w", err)
	}
	v.owned.add(v.compressor)

	for _, l := range v.layers {
		if err := l.output().Connect(v.filter); err != nil {
			return err
		}
	}
	if err := v.filter.Connect(v.envelope.gain); err != nil {
		return err
	}
	if err := v.envelope.gain.Connect(v.compressor); err != nil {
		return err
	}
	if err := v.compressor.Connect(spec.out); err != nil {
		return err
	}

	for i, l := range v.layers {
		if err := l.osc.Start(t0); err != nil {
			return fmt.Errorf("start layer %d: %w", i, err)
		}
	}
	return nil
}

func (v *Voice) ID() uuid.UUID      { return v.id }
func (v *Voice) Note() int          { return v.note }
func (v *Voice) Frequency() float64 { return v.freq }
func (v *Voice) Timbre() string     { return v.timbre }
func (v *Voice) StartTime() float64 { return v.start }

func (v *Voice) State() VoiceState {
	return VoiceState(v.state.Load())
}

// StopTime is the time the release curve reaches its floor. It is zero
// until the voice is released.
func (v *Voice) StopTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopAt
}

// OpenNodes reports nodes owned by the voice that are not yet released.
func (v *Voice) OpenNodes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owned.open()
}

// Oscillators returns the layer oscillators in timbre order.
func (v *Voice) Oscillators() []backend.Oscillator {
	out := make([]backend.Oscillator, len(v.layers))
	for i, l := range v.layers {
		out[i] = l.osc
	}
	return out
}

// MasterGain exposes the envelope parameter.
func (v *Voice) MasterGain() backend.Param {
	return v.envelope.gain.Gain()
}

// Filter exposes the swept low-pass.
func (v *Voice) Filter() backend.BiquadFilter {
	return v.filter
}

func (v *Voice) setWidth(width float64) error {
	var errs []error
	for _, l := range v.layers {
		if err := l.stereo.SetWidth(width); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// release starts the release curve at now and stops every oscillator when
// it reaches its floor. Cleanup follows the oscillators' ended events.
func (v *Voice) release(now float64) error {
	if !v.state.CompareAndSwap(int32(Sounding), int32(Releasing)) {
		return nil
	}
	held, stopAt, err := v.envelope.release(now)
	if err != nil {
		v.abort()
		return fmt.Errorf("release %s: %w", pitch.Name(v.note), err)
	}
	v.mu.Lock()
	v.stopAt = stopAt
	v.mu.Unlock()

	v.remaining.Store(int32(len(v.layers)))
	for i, l := range v.layers {
		if err := l.osc.Stop(stopAt); err != nil {
			v.log.Warnf("voice %s: stop layer %d: %v", v.id, i, err)
			v.layerEnded()
			continue
		}
		l.osc.OnEnded(v.layerEnded)
	}
	v.log.Debugf("voice %s: release %s from %.4f, silent at %.4f", v.id, pitch.Name(v.note), held, stopAt)
	return nil
}

func (v *Voice) layerEnded() {
	if v.remaining.Add(-1) == 0 {
		v.cleanup()
	}
}

// cleanup releases every owned node once the tail has ended.
func (v *Voice) cleanup() {
	if !v.state.CompareAndSwap(int32(Releasing), int32(Cleaned)) {
		return
	}
	v.closeNodes()
	v.log.Debugf("voice %s: cleaned up %s", v.id, pitch.Name(v.note))
	if v.onCleaned != nil {
		v.onCleaned(v)
	}
}

// abort releases the voice immediately from any state.
func (v *Voice) abort() {
	prev := VoiceState(v.state.Swap(int32(Cleaned)))
	if prev == Cleaned {
		return
	}
	v.closeNodes()
	if v.onCleaned != nil {
		v.onCleaned(v)
	}
}

func (v *Voice) closeNodes() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.owned.closeAll(); err != nil {
		v.log.Warnf("voice %s: close nodes: %v", v.id, err)
	}
}
