package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestScopedJoinsAllChildren verifies Property P1: once Scoped returns, no
// task spawned through the yielded scope is still running.
func TestScopedJoinsAllChildren(t *testing.T) {
	var running atomic.Int32
	var everRan atomic.Int32

	_, err := Scoped(context.Background(), func(s *Scope) (struct{}, error) {
		for i := 0; i < 5; i++ {
			Spawn(s, func(ctx context.Context) (struct{}, error) {
				running.Add(1)
				everRan.Add(1)
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if everRan.Load() != 5 {
		t.Fatalf("expected all 5 tasks to run, got %d", everRan.Load())
	}
	if running.Load() != 0 {
		t.Fatalf("expected no tasks running after Scoped returned, got %d", running.Load())
	}
}

// TestScopedCancelOnBodyError verifies Property P2 and scenario S4: when the
// body fails, all spawned children observe cancellation and Scoped surfaces
// the original error.
func TestScopedCancelOnBodyError(t *testing.T) {
	sentinel := errors.New("boom")
	var cancelledCount atomic.Int32

	_, err := Scoped(context.Background(), func(s *Scope) (struct{}, error) {
		for i := 0; i < 3; i++ {
			Spawn(s, func(ctx context.Context) (struct{}, error) {
				<-ctx.Done()
				cancelledCount.Add(1)
				return struct{}{}, ctx.Err()
			})
		}
		time.Sleep(10 * time.Millisecond)
		return struct{}{}, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected scope error to be sentinel, got %v", err)
	}
	if cancelledCount.Load() != 3 {
		t.Fatalf("expected 3 children to observe cancellation, got %d", cancelledCount.Load())
	}
}

// TestHandleJoinTwicePanics verifies Property P3: a second Join is a
// programming error.
func TestHandleJoinTwicePanics(t *testing.T) {
	_, _ = Scoped(context.Background(), func(s *Scope) (struct{}, error) {
		h := Spawn(s, func(ctx context.Context) (int, error) { return 1, nil })
		r := h.Join(s.Context())
		if v, err := r.Unwrap(); err != nil || v != 1 {
			t.Fatalf("unexpected join result: %v %v", v, err)
		}
		defer func() {
			if recover() == nil {
				t.Fatal("expected second Join to panic")
			}
		}()
		h.Join(s.Context())
		return struct{}{}, nil
	})
}

func TestNotifySignalIdempotent(t *testing.T) {
	n := NewNotify()
	n.Signal()
	n.Signal() // must not panic or deadlock
	if err := n.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error waiting on signalled notify: %v", err)
	}
}

func TestNotifyWaitCancelDoesNotConsumePermit(t *testing.T) {
	n := NewNotify()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Wait(ctx); err == nil {
		t.Fatal("expected cancelled wait to return an error")
	}
	n.Signal()
	if err := n.Wait(context.Background()); err != nil {
		t.Fatalf("permit should still be available: %v", err)
	}
}
