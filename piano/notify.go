package piano

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/logging"
)

// EventKind distinguishes press and release notifications.
type EventKind int

const (
	Attack EventKind = iota
	Release
)

func (k EventKind) String() string {
	switch k {
	case Attack:
		return "attack"
	case Release:
		return "release"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is delivered to subscribers after a press or release took effect.
type Event struct {
	Kind EventKind
	Note int
	// Time is the render clock time of the press or release.
	Time float64
}

const defaultNotifyBuffer = 64

// notifier delivers events on its own goroutine so subscribers never run
// on the caller's path. Events are dropped when the buffer is full.
type notifier struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    logging.LeveledLogger

	mu     sync.RWMutex
	subs   map[uint64]func(Event)
	nextID uint64
	closed bool
}

func newNotifier(buffer int, log logging.LeveledLogger) *notifier {
	if buffer <= 0 {
		buffer = defaultNotifyBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &notifier{
		ch:     make(chan Event, buffer),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		subs:   make(map[uint64]func(Event)),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case ev := <-n.ch:
			n.deliver(ev)
		case <-n.ctx.Done():
			// deliver what is already queued
			for {
				select {
				case ev := <-n.ch:
					n.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) deliver(ev Event) {
	n.mu.RLock()
	subs := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// subscribe registers fn and returns a function that removes it.
func (n *notifier) subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// emit never blocks.
func (n *notifier) emit(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.ch <- ev:
	default:
		n.log.Warnf("notification buffer full, dropped %s for note %d", ev.Kind, ev.Note)
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()
	n.cancel()
	n.wg.Wait()
}
