// Package console implements a debug events sink that prints each record to
// stdout, generalized from plugins/reporter/console.ConsoleReporter's
// text/json dual-format idea to the spec's events/bytes operator model.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/firestige/arrowflow/pkg/operator"
)

// Name identifies this operator in a pipeline description.
const Name = "console"

// Format selects how records are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) Name() string { return Name }

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	format := FormatText
	if v, ok := inv.Options["format"].(string); ok {
		switch Format(v) {
		case FormatJSON:
			format = FormatJSON
		case FormatText, "":
			format = FormatText
		default:
			return nil, fmt.Errorf("console: unknown format %q", v)
		}
	}
	return &sinkOp{format: format, w: bufio.NewWriter(os.Stdout)}, nil
}

type sinkOp struct {
	format Format
	w      *bufio.Writer
	count  uint64
}

func (s *sinkOp) Name() string            { return Name }
func (s *sinkOp) InputKind() operator.Kind  { return operator.KindEvents }
func (s *sinkOp) OutputKind() operator.Kind { return operator.KindVoid }

func (s *sinkOp) Run(ctx context.Context, io operator.IO) error {
	defer s.w.Flush()
	for {
		item, ok, err := io.In.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		records, ok := item.Events.([]map[string]any)
		if !ok {
			return fmt.Errorf("console: expected []map[string]any events, got %T", item.Events)
		}
		for _, rec := range records {
			s.count++
			if err := s.write(rec); err != nil {
				return fmt.Errorf("console: %w", err)
			}
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
}

func (s *sinkOp) write(rec map[string]any) error {
	switch s.format {
	case FormatJSON:
		enc, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = s.w.Write(append(enc, '\n'))
		return err
	default:
		_, err := fmt.Fprintf(s.w, "#%d %v\n", s.count, rec)
		return err
	}
}

var _ operator.Factory = (*Factory)(nil)
