package async

import (
	"context"
	"testing"
	"time"
)

// TestQueueScopeFIFOByEnqueueOrder verifies Property P4 / scenario S6: the
// consumer sees items in the order producers actually enqueue them, which is
// determined by when each producer finishes, not by spawn call order. Here
// the producer that sleeps for less time enqueues first even though it was
// spawned second.
func TestQueueScopeFIFOByEnqueueOrder(t *testing.T) {
	q := NewQueueScope[string]()

	_, err := Activate(context.Background(), q, func(s *Scope) (struct{}, error) {
		q.Spawn(func(ctx context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "slow", nil
		})
		q.Spawn(func(ctx context.Context) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "fast", nil
		})

		first, ok, err := q.Next(s.Context())
		if err != nil || !ok {
			t.Fatalf("unexpected first Next: %v %v", ok, err)
		}
		if first != "fast" {
			t.Fatalf("expected the faster producer to enqueue first, got %q", first)
		}
		second, ok, err := q.Next(s.Context())
		if err != nil || !ok {
			t.Fatalf("unexpected second Next: %v %v", ok, err)
		}
		if second != "slow" {
			t.Fatalf("expected second item to be slow, got %q", second)
		}
		_, ok, err = q.Next(s.Context())
		if err != nil || ok {
			t.Fatalf("expected queue to be drained, got ok=%v err=%v", ok, err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected scope error: %v", err)
	}
}

func TestQueueScopeGenerator(t *testing.T) {
	q := NewQueueScope[int]()
	items := []int{1, 2, 3}

	_, err := Activate(context.Background(), q, func(s *Scope) (struct{}, error) {
		idx := 0
		q.SpawnGenerator(func(ctx context.Context) (int, bool, error) {
			if idx >= len(items) {
				return 0, false, nil
			}
			v := items[idx]
			idx++
			return v, true, nil
		})

		var got []int
		for {
			v, ok, err := q.Next(s.Context())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				break
			}
			got = append(got, v)
		}
		if len(got) != len(items) {
			t.Fatalf("expected %d items, got %d (%v)", len(items), len(got), got)
		}
		for i, v := range got {
			if v != items[i] {
				t.Fatalf("item %d: expected %d, got %d", i, items[i], v)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected scope error: %v", err)
	}
}

func TestQueueScopeCancel(t *testing.T) {
	q := NewQueueScope[int]()
	_, err := Activate(context.Background(), q, func(s *Scope) (struct{}, error) {
		q.Spawn(func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		q.Cancel()
		_, _, _ = q.Next(s.Context())
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected scope error: %v", err)
	}
}
