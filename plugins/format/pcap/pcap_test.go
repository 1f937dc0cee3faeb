package pcap

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

	in := pipeline.NewChannel()
	go func() {
		in.Send(ctx, operator.EventsItem([]map[string]any{
			{"length": 10},
			{"length": 20},
		}))
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
		t.Fatal("expected a non-empty pcap file header plus records")
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
		got = append(got, item.Events.([]map[string]any)...)
	}
	if err := <-done2; err != nil {
		t.Fatalf("reader Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summarized records, got %d", len(got))
	}
	for _, rec := range got {
		if _, ok := rec["timestamp"]; !ok {
			t.Fatalf("expected a timestamp field in %+v", rec)
		}
	}
}

func TestMakeDefaultsToReader(t *testing.T) {
	factory := New()
	op, err := factory.Make(operator.Invocation{})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if op.InputKind() != operator.KindBytes || op.OutputKind() != operator.KindEvents {
		t.Fatalf("expected a bytes->events reader by default, got %v->%v", op.InputKind(), op.OutputKind())
	}
}
