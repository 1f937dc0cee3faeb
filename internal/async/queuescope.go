package async

import (
	"context"
	"sync/atomic"
)

// QueueScope turns a set of producer tasks spawned under one Scope into a
// lazy, FIFO-by-enqueue sequence of results (spec.md §4.5, Property P4). It
// mirrors tenzir's QueueScope<T>, built there on a CancellableAsyncScope plus
// a capacity-one BoundedQueue.
//
// The queue's capacity is one, so a producer naturally backpressures on a
// slow consumer; remaining only decrements once Next hands a result out.
type QueueScope[T any] struct {
	scope     *Scope
	results   chan Result[T]
	remaining atomic.Int64
}

// NewQueueScope creates an inactive QueueScope. Call Activate to bind it to a
// running Scope before calling Spawn.
func NewQueueScope[T any]() *QueueScope[T] {
	return &QueueScope[T]{results: make(chan Result[T], 1)}
}

// Activate runs body under a freshly entered Scope, with that scope stored
// for the duration of body so Spawn can be called from within it (or from
// any goroutine that holds a reference to q, for the duration of Activate).
// When body returns, the inner scope joins all remaining producers before
// Activate itself returns, per Scoped's guarantee.
func Activate[T, U any](ctx context.Context, q *QueueScope[T], body func(s *Scope) (U, error)) (Result[U], error) {
	result, err := Scoped(ctx, func(s *Scope) (U, error) {
		q.scope = s
		defer func() { q.scope = nil }()
		return body(s)
	})
	return result, err
}

// Spawn runs fn as a producer task under the active scope and enqueues its
// reified result. Must be called while the QueueScope is active (i.e. from
// within, or for the duration of, an Activate call).
func (q *QueueScope[T]) Spawn(fn func(ctx context.Context) (T, error)) {
	if q.scope == nil {
		panic("async: QueueScope.Spawn called outside Activate")
	}
	q.remaining.Add(1)
	s := q.scope
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var r Result[T]
		if s.ctx.Err() != nil {
			r = Cancelled[T]()
		} else {
			v, err := fn(s.ctx)
			switch {
			case err != nil && s.ctx.Err() != nil:
				r = Cancelled[T]()
			case err != nil:
				r = Error[T](err)
			default:
				r = Value(v)
			}
		}
		select {
		case q.results <- r:
		case <-s.ctx.Done():
			// Enqueue is itself a suspension point; observe cancellation
			// there too rather than leaking the goroutine.
			select {
			case q.results <- Cancelled[T]():
			default:
			}
		}
	}()
}

// errGeneratorDone is an internal-only tombstone: it lets the producer
// goroutine wake a blocked Next() call when the generator is exhausted
// without that wakeup being mistaken for either a value or a genuine error.
// It must never escape QueueScope's package boundary.
var errGeneratorDone = &generatorDoneMarker{}

type generatorDoneMarker struct{}

func (*generatorDoneMarker) Error() string { return "async: generator exhausted" }

// SpawnGenerator runs a generator function repeatedly under the active
// scope, enqueuing each item it produces, until the generator returns
// ok=false (end of stream). This realizes QueueScope::spawn(generator); per
// spec.md §9's open question (the source's own TODOs mark this path as not
// fully specified), the generator is advanced eagerly rather than
// only-on-demand, since the capacity-one downstream channel already
// produces the same backpressure the "lazy" variant would, and end-of-stream
// is realized as a tombstone result that Next unwraps transparently instead
// of surfacing as cancellation to the consumer, which the source's own
// next() would incorrectly do today.
func (q *QueueScope[T]) SpawnGenerator(next func(ctx context.Context) (T, bool, error)) {
	if q.scope == nil {
		panic("async: QueueScope.SpawnGenerator called outside Activate")
	}
	q.remaining.Add(1)
	s := q.scope
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			if s.ctx.Err() != nil {
				enqueue(s, q.results, Cancelled[T]())
				return
			}
			v, ok, err := next(s.ctx)
			if err != nil {
				enqueue(s, q.results, Error[T](err))
				return
			}
			if !ok {
				enqueue(s, q.results, Error[T](errGeneratorDone))
				return
			}
			q.remaining.Add(1)
			enqueue(s, q.results, Value(v))
		}
	}()
}

func enqueue[T any](s *Scope, ch chan<- Result[T], r Result[T]) {
	select {
	case ch <- r:
	case <-s.ctx.Done():
	}
}

// Cancel forwards cancellation to the underlying scope.
func (q *QueueScope[T]) Cancel() {
	if q.scope != nil {
		q.scope.Cancel()
	}
}

// Next returns the next available result, or ok=false once remaining has
// reached zero and no further producer will enqueue anything. On an Error
// result, Next surfaces the error to the caller directly (the Go rendering
// of "surfaces the error in the caller's failure channel").
func (q *QueueScope[T]) Next(ctx context.Context) (value T, ok bool, err error) {
	for {
		if q.remaining.Load() == 0 {
			var zero T
			return zero, false, nil
		}
		select {
		case r := <-q.results:
			q.remaining.Add(-1)
			v, e := r.Unwrap()
			if e == errGeneratorDone {
				// A generator producer signalling its own exhaustion; not
				// a value, not an error the caller should see. Loop and
				// re-check remaining, which the producer has already
				// accounted for correctly.
				continue
			}
			if e != nil {
				var zero T
				return zero, false, e
			}
			return v, true, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}
