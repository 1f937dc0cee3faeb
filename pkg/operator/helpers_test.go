package operator

import (
	"context"
	"testing"
)

type nopOperator struct{ name string }

func (n nopOperator) Name() string     { return n.name }
func (n nopOperator) InputKind() Kind  { return KindVoid }
func (n nopOperator) OutputKind() Kind { return KindVoid }
func (n nopOperator) Run(ctx context.Context, io IO) error { return nil }

type nopFactory struct{ name string }

func (f nopFactory) Name() string { return f.name }
func (f nopFactory) Make(inv Invocation) (Operator, error) {
	return nopOperator{name: f.name}, nil
}

func TestNamedRegistryMakeUnknown(t *testing.T) {
	r := NewNamedRegistry()
	if _, err := r.Make(Invocation{Name: "missing"}); err == nil {
		t.Fatal("expected an error for an unregistered name")
	}
}

func TestNamedRegistryRegisterAndMake(t *testing.T) {
	r := NewNamedRegistry()
	r.Register(nopFactory{name: "console"})
	op, err := r.Make(Invocation{Name: "console"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Name() != "console" {
		t.Fatalf("expected console operator, got %q", op.Name())
	}
}

func TestNamedRegistryPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r := NewNamedRegistry()
	r.Register(nopFactory{name: "console"})
	r.Register(nopFactory{name: "console"})
}

func TestSourceFuncStopsOnFalseOk(t *testing.T) {
	calls := 0
	src := SourceFunc{
		OpName: "counter",
		Out:    KindEvents,
		Next: func(ctx context.Context) (Item, bool, error) {
			calls++
			if calls > 2 {
				return Item{}, false, nil
			}
			return EventsItem([]int{calls}), true, nil
		},
	}
	ch := &recordingChannel{}
	if err := src.Run(context.Background(), IO{Out: ch}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.sent) != 2 {
		t.Fatalf("expected 2 sent items, got %d", len(ch.sent))
	}
}

type recordingChannel struct {
	sent []Item
}

func (c *recordingChannel) Send(ctx context.Context, item Item) error {
	c.sent = append(c.sent, item)
	return nil
}

func (c *recordingChannel) Receive(ctx context.Context) (Item, bool, error) {
	return Item{}, false, nil
}

func (c *recordingChannel) Close() {}
