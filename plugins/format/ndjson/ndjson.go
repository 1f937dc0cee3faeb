// Package ndjson implements the newline-delimited-JSON format factory used
// in spec.md's own worked scenarios (S1's "events.ndjson.zst", S6's
// "https://host/path/file.ndjson"). The record-batch library itself is an
// out-of-scope external collaborator (spec.md §1); this format factory
// represents an event batch the simplest way a Go program that does not
// depend on that library can — a []map[string]any decoded one JSON object
// per line — which is exactly the shape the teacher's reporters
// (plugins/reporter/*) already serialize packets as via encoding/json.
package ndjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Name is the extension (and operator name) this factory claims.
const Name = "ndjson"

// batchSize bounds how many decoded records are grouped into one emitted
// events Item, mirroring the columnar library's "batch" granularity without
// actually depending on it.
const batchSize = 256

type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) Name() string        { return Name }
func (f *Factory) Extensions() []string { return []string{Name} }

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	dir, _ := inv.Options["direction"].(dispatch.Direction)
	if dir == dispatch.Save {
		return &writer{}, nil
	}
	return &reader{}, nil
}

// reader turns a byte stream of newline-delimited JSON objects into batches
// of decoded records.
type reader struct{}

func (r *reader) Name() string            { return Name }
func (r *reader) InputKind() operator.Kind  { return operator.KindBytes }
func (r *reader) OutputKind() operator.Kind { return operator.KindEvents }

func (r *reader) Run(ctx context.Context, io_ operator.IO) error {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		for {
			item, ok, err := io_.In.Receive(ctx)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if !ok {
				return
			}
			if _, err := pw.Write(item.Bytes); err != nil {
				return
			}
		}
	}()
	defer pr.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var batch []map[string]any
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out := batch
		batch = nil
		return io_.Out.Send(ctx, operator.EventsItem(out))
	}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			if io_.Diag != nil {
				io_.Diag.Emit(diag.Warningf("ndjson: skipping malformed record: %v", err).Build())
			}
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ndjson: %w", err)
	}
	return flush()
}

// writer serializes batches of records as newline-delimited JSON.
type writer struct{}

func (w *writer) Name() string            { return Name }
func (w *writer) InputKind() operator.Kind  { return operator.KindEvents }
func (w *writer) OutputKind() operator.Kind { return operator.KindBytes }

func (w *writer) Run(ctx context.Context, io_ operator.IO) error {
	for {
		item, ok, err := io_.In.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		records, ok := item.Events.([]map[string]any)
		if !ok {
			return fmt.Errorf("ndjson: expected []map[string]any events, got %T", item.Events)
		}
		var buf []byte
		for _, rec := range records {
			enc, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("ndjson: %w", err)
			}
			buf = append(buf, enc...)
			buf = append(buf, '\n')
		}
		if len(buf) > 0 {
			if err := io_.Out.Send(ctx, operator.BytesItem(buf)); err != nil {
				return err
			}
		}
	}
}

var _ operator.FormatFactory = (*Factory)(nil)
