package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/firestige/arrowflow/internal/async"
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Pipeline is a type-checked, linear chain of operators, each connected to
// its neighbors by a capacity-one Channel, run under a single async.Scope
// (spec.md §4.6). It is the structured-concurrency-native replacement for
// the teacher's Pipeline: same responsibility (own the goroutines, own the
// shutdown), different primitive underneath (async.Scope instead of a bare
// context.CancelFunc + sync.WaitGroup pair).
type Pipeline struct {
	operators []operator.Operator
	channels  []*Channel
	diag      *diag.Sink
}

// New type-checks operators as an assembled chain (adjacent output/input
// kinds must match, exactly like the teacher's assembly step validates
// plugin compatibility before constructing a Pipeline) and allocates the
// inter-operator channels.
func New(ops []operator.Operator, sink *diag.Sink) (*Pipeline, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("pipeline: at least one operator required")
	}
	for i := 0; i+1 < len(ops); i++ {
		out, in := ops[i].OutputKind(), ops[i+1].InputKind()
		if out != in {
			return nil, fmt.Errorf("pipeline: operator %q produces %s but %q expects %s",
				ops[i].Name(), out, ops[i+1].Name(), in)
		}
	}
	channels := make([]*Channel, len(ops)-1)
	for i := range channels {
		channels[i] = NewChannel()
	}
	return &Pipeline{operators: ops, channels: channels, diag: sink}, nil
}

func (p *Pipeline) ioFor(i int) operator.IO {
	io := operator.IO{Diag: p.diag}
	if i > 0 {
		io.In = p.channels[i-1]
	}
	if i < len(p.channels) {
		io.Out = p.channels[i]
	}
	return io
}

// Run starts every operator as a child of a single scope and blocks until
// all of them have finished, exited by cancellation, or one has failed. An
// operator that returns an error cancels the scope, which in turn cancels
// every sibling operator's ctx (spec.md §4.3 "fail-fast group cancellation",
// mirroring scenario S4); the first error returned before the scope was
// cancelled is what Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	result, err := async.Scoped(ctx, func(s *async.Scope) (struct{}, error) {
		// failErr keeps the first real failure: the failing operator cancels
		// the scope itself, so async.Spawn reports its task as Cancelled.
		var failErr atomic.Pointer[error]
		handles := make([]*async.Handle[struct{}], len(p.operators))
		for i, op := range p.operators {
			i, op := i, op
			io := p.ioFor(i)
			handles[i] = async.SpawnVoid(s, func(ctx context.Context) error {
				runErr := op.Run(ctx, io)
				if io.Out != nil {
					io.Out.Close()
				}
				if runErr != nil {
					if ctx.Err() == nil {
						failErr.CompareAndSwap(nil, &runErr)
					}
					// Unblock any sibling operator parked on a channel
					// send/receive or directly on ctx.Done() the moment a
					// real failure is known, instead of waiting for the
					// sequential join loop below to reach it (spec.md
					// §4.6: "a failing peer triggers scope.cancel()").
					s.Cancel()
				}
				return runErr
			})
		}

		var firstErr error
		for _, h := range handles {
			r := h.Join(s.Context())
			if r.IsError() && firstErr == nil {
				firstErr = r.Error()
			}
		}
		if p := failErr.Load(); p != nil && firstErr == nil {
			firstErr = *p
		}
		return struct{}{}, firstErr
	})
	if err != nil {
		return err
	}
	_, unwrapErr := result.Unwrap()
	return unwrapErr
}
