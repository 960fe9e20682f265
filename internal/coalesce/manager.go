package coalesce

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/command"
)

// Manager owns one Mailbox per discovered motor address.
type Manager struct {
	api *command.API
	log *logrus.Logger

	mu        sync.RWMutex
	mailboxes map[uint8]*Mailbox
	cancels   map[uint8]context.CancelFunc
}

// NewManager creates an empty manager bound to api.
func NewManager(api *command.API, log *logrus.Logger) *Manager {
	return &Manager{
		api:       api,
		log:       log,
		mailboxes: make(map[uint8]*Mailbox),
		cancels:   make(map[uint8]context.CancelFunc),
	}
}

// Ensure creates (if absent) and returns the mailbox for addr, spawning its
// worker bound to a child of ctx that Reset can cancel independently of
// ctx's own lifetime.
func (mgr *Manager) Ensure(ctx context.Context, addr uint8) *Mailbox {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mb, ok := mgr.mailboxes[addr]; ok {
		return mb
	}
	mbCtx, cancel := context.WithCancel(ctx)
	mb := NewMailbox(mbCtx, addr, mgr.api, mgr.log)
	mgr.mailboxes[addr] = mb
	mgr.cancels[addr] = cancel
	return mb
}

// Offer routes an intent to addr's mailbox if one exists; it is a no-op
// for unknown addresses (e.g. a DMX slot with no discovered motor).
func (mgr *Manager) Offer(addr uint8, in Intent) bool {
	mgr.mu.RLock()
	mb, ok := mgr.mailboxes[addr]
	mgr.mu.RUnlock()
	if !ok {
		return false
	}
	mb.Offer(in)
	return true
}

// Reset replaces the whole set of mailboxes, cancelling every superseded
// worker so it stops blocking on its wake channel, then spawning a fresh
// worker for every address in addrs (used after a rescan rebuilds the
// registry).
func (mgr *Manager) Reset(ctx context.Context, addrs []uint8) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for _, cancel := range mgr.cancels {
		cancel()
	}
	mgr.mailboxes = make(map[uint8]*Mailbox, len(addrs))
	mgr.cancels = make(map[uint8]context.CancelFunc, len(addrs))
	for _, a := range addrs {
		mbCtx, cancel := context.WithCancel(ctx)
		mgr.mailboxes[a] = NewMailbox(mbCtx, a, mgr.api, mgr.log)
		mgr.cancels[a] = cancel
	}
}

// Addresses returns the set of motors currently owning a mailbox.
func (mgr *Manager) Addresses() []uint8 {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	out := make([]uint8, 0, len(mgr.mailboxes))
	for a := range mgr.mailboxes {
		out = append(out, a)
	}
	return out
}
