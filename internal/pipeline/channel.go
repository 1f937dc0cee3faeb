// Package pipeline implements the operator runtime: it wires a sequence of
// operator.Operator instances into a running pipeline, connecting adjacent
// operators with bounded channels and supervising the whole thing under a
// single async.Scope (spec.md §4.6 "Operator runtime"). The goroutine +
// context + channel shape is adapted from the teacher's own
// internal/pipeline.Pipeline (capture/process loop pair); the structured
// shutdown guarantee comes from internal/async instead of a bare
// context.CancelFunc + sync.WaitGroup.
package pipeline

import (
	"context"
	"sync"

	"github.com/firestige/arrowflow/pkg/operator"
)

// Channel is the bounded (capacity one) connection between two adjacent
// operators (spec.md §3 "Channel", §6 "Channel API"). Capacity one means a
// producer that is one item ahead of its consumer blocks on the next Send,
// which is the mechanism by which backpressure travels upstream through an
// arbitrarily long operator chain.
type Channel struct {
	ch     chan operator.Item
	once   sync.Once
	closed chan struct{}
}

// NewChannel creates a channel with the spec-mandated capacity of one.
func NewChannel() *Channel {
	return &Channel{
		ch:     make(chan operator.Item, 1),
		closed: make(chan struct{}),
	}
}

// Send blocks until the channel has room, the consumer side closes its
// intent to stop reading (not directly observable here, so callers rely on
// ctx instead), or ctx is cancelled.
func (c *Channel) Send(ctx context.Context, item operator.Item) error {
	select {
	case c.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks for the next item. ok is false once Close has been called
// and every already-sent item has been drained: this is how end-of-stream
// propagates one operator at a time down the chain.
func (c *Channel) Receive(ctx context.Context) (operator.Item, bool, error) {
	select {
	case item, ok := <-c.ch:
		return item, ok, nil
	case <-ctx.Done():
		return operator.Item{}, false, ctx.Err()
	}
}

// Close marks the channel as finished. It is idempotent: a source operator
// that returns after an error and a runtime-level cleanup defer may both
// call Close without double-close panicking.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.ch)
		close(c.closed)
	})
}

var (
	_ operator.Sender   = (*Channel)(nil)
	_ operator.Receiver = (*Channel)(nil)
)
