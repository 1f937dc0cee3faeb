package operator

import (
	"context"
	"fmt"
)

// SourceFunc adapts a plain generator function into a void-input Operator,
// matching the "source: produces a lazy sequence of outputs" shape from
// spec.md §4.6 without every source plugin hand-rolling the Run loop's
// send/cancellation boilerplate.
type SourceFunc struct {
	OpName string
	Out    Kind
	Next   func(ctx context.Context) (Item, bool, error)
}

func (f SourceFunc) Name() string     { return f.OpName }
func (f SourceFunc) InputKind() Kind  { return KindVoid }
func (f SourceFunc) OutputKind() Kind { return f.Out }

func (f SourceFunc) Run(ctx context.Context, io IO) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		item, ok, err := f.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := io.Out.Send(ctx, item); err != nil {
			return err
		}
	}
}

// SinkFunc adapts a plain per-item consumer function into a void-output
// Operator (spec.md §4.6 "sink: consumes a lazy input sequence, produces
// nothing").
type SinkFunc struct {
	OpName string
	In     Kind
	Handle func(ctx context.Context, item Item) error
}

func (f SinkFunc) Name() string     { return f.OpName }
func (f SinkFunc) InputKind() Kind  { return f.In }
func (f SinkFunc) OutputKind() Kind { return KindVoid }

func (f SinkFunc) Run(ctx context.Context, io IO) error {
	for {
		item, ok, err := io.In.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := f.Handle(ctx, item); err != nil {
			return err
		}
	}
}

// TransformFunc adapts a plain per-item mapping function (which may drop or
// expand an item into zero or more outputs via emit) into a Transformer
// Operator.
type TransformFunc struct {
	OpName  string
	In, Out Kind
	Handle  func(ctx context.Context, item Item, emit func(Item) error) error
}

func (f TransformFunc) Name() string     { return f.OpName }
func (f TransformFunc) InputKind() Kind  { return f.In }
func (f TransformFunc) OutputKind() Kind { return f.Out }

func (f TransformFunc) Run(ctx context.Context, io IO) error {
	emit := func(item Item) error { return io.Out.Send(ctx, item) }
	for {
		item, ok, err := io.In.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := f.Handle(ctx, item, emit); err != nil {
			return err
		}
	}
}

// NamedRegistry looks up plain mid-pipeline operators (transforms and
// sinks with no URI scheme of their own, e.g. plugins/sink/console) by the
// name a config-file pipeline list gives them, separate from
// internal/dispatch.Registry's scheme/format/compression concept, which is
// specifically about `load`/`save` endpoint resolution (spec.md §6).
type NamedRegistry struct {
	factories map[string]Factory
}

func NewNamedRegistry() *NamedRegistry {
	return &NamedRegistry{factories: make(map[string]Factory)}
}

// Register adds f under f.Name(), panicking on a duplicate name the same
// way internal/dispatch.Registry.RegisterScheme does.
func (r *NamedRegistry) Register(f Factory) {
	if f == nil {
		panic("operator: factory cannot be nil")
	}
	name := f.Name()
	if name == "" {
		panic("operator: factory name cannot be empty")
	}
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("operator: %q already registered", name))
	}
	r.factories[name] = f
}

// Make builds a named operator from an invocation.
func (r *NamedRegistry) Make(inv Invocation) (Operator, error) {
	f, ok := r.factories[inv.Name]
	if !ok {
		return nil, fmt.Errorf("operator: no factory registered for %q", inv.Name)
	}
	return f.Make(inv)
}
