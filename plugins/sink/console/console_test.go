package console

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/pkg/operator"
)

func TestMakeRejectsUnknownFormat(t *testing.T) {
	factory := New()
	if _, err := factory.Make(operator.Invocation{Options: map[string]any{"format": "xml"}}); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := &sinkOp{format: FormatJSON, w: bufio.NewWriter(&buf)}

	in := pipeline.NewChannel()
	ctx := context.Background()
	go func() {
		in.Send(ctx, operator.EventsItem([]map[string]any{{"id": float64(1)}}))
		in.Close()
	}()
	if err := s.Run(ctx, operator.IO{In: in}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), `"id":1`) {
		t.Fatalf("expected json output to contain the record, got %q", buf.String())
	}
}

func TestSinkWritesTextLines(t *testing.T) {
	var buf bytes.Buffer
	s := &sinkOp{format: FormatText, w: bufio.NewWriter(&buf)}

	in := pipeline.NewChannel()
	ctx := context.Background()
	go func() {
		in.Send(ctx, operator.EventsItem([]map[string]any{{"id": float64(1)}}))
		in.Close()
	}()
	if err := s.Run(ctx, operator.IO{In: in}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "#1 ") {
		t.Fatalf("expected text output to start with a counter prefix, got %q", buf.String())
	}
}

func TestSinkRejectsWrongEventsType(t *testing.T) {
	var buf bytes.Buffer
	s := &sinkOp{format: FormatText, w: bufio.NewWriter(&buf)}

	in := pipeline.NewChannel()
	ctx := context.Background()
	go func() {
		in.Send(ctx, operator.Item{Events: "not a slice of records"})
		in.Close()
	}()
	if err := s.Run(ctx, operator.IO{In: in}); err == nil {
		t.Fatal("expected an error for a non-[]map[string]any events payload")
	}
}
