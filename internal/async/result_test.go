package async

import (
	"errors"
	"testing"
)

func TestResultPartition(t *testing.T) {
	v := Value(42)
	if !v.IsValue() || v.IsError() || v.IsCancelled() {
		t.Fatalf("value result misclassified: %+v", v)
	}

	sentinel := errors.New("broken")
	e := Error[int](sentinel)
	if e.IsValue() || !e.IsError() || e.IsCancelled() {
		t.Fatalf("error result misclassified: %+v", e)
	}
	if !errors.Is(e.Error(), sentinel) {
		t.Fatalf("expected Error() to be the sentinel")
	}

	c := Cancelled[int]()
	if c.IsValue() || c.IsError() {
		t.Fatalf("cancelled must never also report as error (spec.md partition rule)")
	}
	if !c.IsCancelled() {
		t.Fatal("expected cancelled result to report IsCancelled")
	}
}

func TestResultErrorPanicsOnCancelled(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Error() on a cancelled result to panic")
		}
	}()
	Cancelled[int]().Error()
}

func TestResultUnwrap(t *testing.T) {
	if v, err := Value(7).Unwrap(); err != nil || v != 7 {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}
	if _, err := Cancelled[int]().Unwrap(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	sentinel := errors.New("boom")
	if _, err := Error[int](sentinel).Unwrap(); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
}

func TestMap(t *testing.T) {
	r := Map(Value(3), func(v int) string { return "x" })
	if v, _ := r.Unwrap(); v != "x" {
		t.Fatalf("unexpected mapped value: %q", v)
	}
	mc := Map(Cancelled[int](), func(v int) string { return "x" })
	if !mc.IsCancelled() {
		t.Fatal("expected cancellation to propagate through Map")
	}
}
