// Package coalesce implements the per-motor command mailbox that keeps
// realtime DMX input from overflowing the single-flight serial bus:
// capacity exactly one, latest-wins overwrite, one dispatch worker per
// motor.
package coalesce

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/command"
)

// IntentKind tags the variant carried by an Intent.
type IntentKind int

const (
	Stop IntentKind = iota
	RotateRight
	RotateLeft
	MoveTo
)

// Intent is one motion command destined for a single motor. Seq is a
// monotonically increasing sequence number used only for observability
// (it plays no role in correctness).
type Intent struct {
	Kind  IntentKind
	Speed int32 // RotateRight / RotateLeft
	Pos   int32 // MoveTo
	Seq   uint64
}

// Mailbox is a single-slot, latest-wins queue for one motor's intents: an
// atomically-swapped slot plus a wake signal, rather than a general
// buffered channel, so "depth <= 1" is structural instead of a convention.
type Mailbox struct {
	addr uint8
	api  *command.API
	log  *logrus.Logger

	mu      sync.Mutex
	pending *Intent
	wake    chan struct{}

	seq uint64

	done chan struct{}
}

// NewMailbox creates a mailbox for addr and immediately starts its worker
// goroutine, which runs until ctx is cancelled.
func NewMailbox(ctx context.Context, addr uint8, api *command.API, log *logrus.Logger) *Mailbox {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Mailbox{
		addr: addr,
		api:  api,
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go m.run(ctx)
	return m
}

// Offer replaces any undelivered intent with this one and wakes the
// worker. It never blocks: the mailbox holds at most one pending intent,
// and a newer Offer always overwrites an older undelivered one. Once the
// worker has exited, Offer does nothing.
func (m *Mailbox) Offer(in Intent) {
	select {
	case <-m.done:
		return
	default:
	}

	m.mu.Lock()
	in.Seq = atomic.AddUint64(&m.seq, 1)
	m.pending = &in
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// take removes and returns the pending intent, if any.
func (m *Mailbox) take() (Intent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Intent{}, false
	}
	in := *m.pending
	m.pending = nil
	return in, true
}

// run is the dispatch loop: wait for a wake signal, drain the newest
// intent, dispatch it through the command API, and loop. Arrivals during
// dispatch simply overwrite the stored intent; they don't queue.
func (m *Mailbox) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			// Drop any undelivered intent and exit; no new offers are
			// accepted once the caller observes Done() closed.
			m.mu.Lock()
			m.pending = nil
			m.mu.Unlock()
			return
		case <-m.wake:
			for {
				in, ok := m.take()
				if !ok {
					break
				}
				m.dispatch(in)
			}
		}
	}
}

func (m *Mailbox) dispatch(in Intent) {
	var err error
	switch in.Kind {
	case Stop:
		_, err = m.api.Stop(m.addr)
	case RotateRight:
		_, err = m.api.RotateRight(m.addr, in.Speed)
	case RotateLeft:
		_, err = m.api.RotateLeft(m.addr, in.Speed)
	case MoveTo:
		_, err = m.api.MoveTo(m.addr, command.MoveAbsolute, 0, in.Pos)
	}
	if err != nil {
		// One motor's failures must not affect any other motor's worker.
		m.log.WithError(err).WithFields(logrus.Fields{"addr": m.addr, "seq": in.Seq}).Warn("coalesce: dispatch failed")
	}
}

// Done returns a channel closed once the worker has drained and exited.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}
