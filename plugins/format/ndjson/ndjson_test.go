package ndjson

import (
	"context"
	"testing"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/pkg/operator"
)

func TestWriterThenReaderRoundTrip(t *testing.T) {
	factory := New()
	ctx := context.Background()

	writeOp, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Save}})
	if err != nil {
		t.Fatalf("Make(writer): %v", err)
	}

	records := []map[string]any{
		{"id": float64(1), "name": "alpha"},
		{"id": float64(2), "name": "beta"},
	}

	in := pipeline.NewChannel()
	go func() {
		in.Send(ctx, operator.EventsItem(records))
		in.Close()
	}()
	bytesCh := pipeline.NewChannel()
	done := make(chan error, 1)
	go func() {
		err := writeOp.Run(ctx, operator.IO{In: in, Out: bytesCh})
		bytesCh.Close()
		done <- err
	}()

	var raw []byte
	for {
		item, ok, err := bytesCh.Receive(ctx)
		if err != nil {
			t.Fatalf("receive bytes: %v", err)
		}
		if !ok {
			break
		}
		raw = append(raw, item.Bytes...)
	}
	if err := <-done; err != nil {
		t.Fatalf("writer Run: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty ndjson output")
	}

	readOp, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Load}})
	if err != nil {
		t.Fatalf("Make(reader): %v", err)
	}

	readIn := pipeline.NewChannel()
	go func() {
		readIn.Send(ctx, operator.BytesItem(raw))
		readIn.Close()
	}()
	out := pipeline.NewChannel()
	done2 := make(chan error, 1)
	go func() {
		err := readOp.Run(ctx, operator.IO{In: readIn, Out: out})
		out.Close()
		done2 <- err
	}()

	var got []map[string]any
	for {
		item, ok, err := out.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if !ok {
			break
		}
		recs, ok := item.Events.([]map[string]any)
		if !ok {
			t.Fatalf("expected []map[string]any, got %T", item.Events)
		}
		got = append(got, recs...)
	}
	if err := <-done2; err != nil {
		t.Fatalf("reader Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["name"] != "alpha" || got[1]["name"] != "beta" {
		t.Fatalf("unexpected decoded records: %+v", got)
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	factory := New()
	ctx := context.Background()

	readOp, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Load}})
	if err != nil {
		t.Fatalf("Make(reader): %v", err)
	}

	in := pipeline.NewChannel()
	go func() {
		in.Send(ctx, operator.BytesItem([]byte("{\"a\":1}\nnot json\n{\"a\":2}\n")))
		in.Close()
	}()
	out := pipeline.NewChannel()
	done := make(chan error, 1)
	go func() {
		err := readOp.Run(ctx, operator.IO{In: in, Out: out})
		out.Close()
		done <- err
	}()

	var got []map[string]any
	for {
		item, ok, err := out.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if !ok {
			break
		}
		recs := item.Events.([]map[string]any)
		got = append(got, recs...)
	}
	if err := <-done; err != nil {
		t.Fatalf("reader Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid records after skipping malformed line, got %d", len(got))
	}
}
