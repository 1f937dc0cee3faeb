package gzip

import (
	"context"
	"testing"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/pkg/operator"
)

func TestEncodeThenDecodeRoundTrip(t *testing.T) {
	factory := New()

	encOp, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Save}})
	if err != nil {
		t.Fatalf("Make(encode): %v", err)
	}

	in := pipeline.NewChannel()
	ctx := context.Background()
	go func() {
		in.Send(ctx, operator.BytesItem([]byte("hello ")))
		in.Send(ctx, operator.BytesItem([]byte("world")))
		in.Close()
	}()

	compressed := pipeline.NewChannel()
	done := make(chan error, 1)
	go func() {
		err := encOp.Run(ctx, operator.IO{In: in, Out: compressed})
		compressed.Close()
		done <- err
	}()

	var gz []byte
	for {
		item, ok, err := compressed.Receive(ctx)
		if err != nil {
			t.Fatalf("receive compressed: %v", err)
		}
		if !ok {
			break
		}
		gz = append(gz, item.Bytes...)
	}
	if err := <-done; err != nil {
		t.Fatalf("encode Run: %v", err)
	}
	if len(gz) == 0 {
		t.Fatal("expected non-empty compressed output")
	}

	decOp, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Load}})
	if err != nil {
		t.Fatalf("Make(decode): %v", err)
	}

	decIn := pipeline.NewChannel()
	go func() {
		decIn.Send(ctx, operator.BytesItem(gz))
		decIn.Close()
	}()
	out := pipeline.NewChannel()
	done2 := make(chan error, 1)
	go func() {
		err := decOp.Run(ctx, operator.IO{In: decIn, Out: out})
		out.Close()
		done2 <- err
	}()

	var read []byte
	for {
		item, ok, err := out.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if !ok {
			break
		}
		read = append(read, item.Bytes...)
	}
	if err := <-done2; err != nil {
		t.Fatalf("decode Run: %v", err)
	}
	if string(read) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", read)
	}
}
