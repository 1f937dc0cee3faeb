// Package sipflow implements a format factory that decodes newline-framed
// raw SIP messages into summarized call-leg events, and best-effort
// re-encodes them back to wire text. Grounded on
// plugins/reporter/skywalkingtracing/message.go's use of
// github.com/ghettovoice/gosip's packet parser, generalized from that
// package's skywalking-segment-building pipeline to the plain
// events/bytes operator model.
package sipflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ghettovoice/gosip/sip"
	"github.com/ghettovoice/gosip/sip/parser"

	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

const Name = "sipflow"

const batchSize = 64

// sipMessageDelim separates individual SIP messages in the byte stream;
// the wire format otherwise has no record boundary of its own once a
// transport framing layer (UDP datagram, TCP length prefix) is stripped,
// so this factory expects consecutive messages to be separated by a line
// holding only "---".
const sipMessageDelim = "\n---\n"

type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) Name() string         { return Name }
func (f *Factory) Extensions() []string { return []string{"sip"} }

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	dir, _ := inv.Options["direction"].(dispatch.Direction)
	if dir == dispatch.Save {
		return &writer{}, nil
	}
	return &reader{parser: parser.NewPacketParser(newLoggerAdapter())}, nil
}

type reader struct {
	parser *parser.PacketParser
}

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
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	scanner.Split(splitOnDelim(sipMessageDelim))

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
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		msg, err := r.parser.ParseMessage(raw)
		if err != nil {
			if io_.Diag != nil {
				io_.Diag.Emit(diag.Warningf("sipflow: failed to parse SIP message: %v", err).Build())
			}
			continue
		}
		batch = append(batch, summarize(msg))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("sipflow: %w", err)
	}
	return flush()
}

func summarize(msg sip.Message) map[string]any {
	rec := map[string]any{
		"call_id": callID(msg),
		"from":    headerValue(msg, "From"),
		"to":      headerValue(msg, "To"),
	}
	if req, ok := msg.(sip.Request); ok {
		rec["type"] = "request"
		rec["method"] = string(req.Method())
	}
	if resp, ok := msg.(sip.Response); ok {
		rec["type"] = "response"
		rec["status_code"] = int(resp.StatusCode())
	}
	headers := make(map[string]string)
	for _, h := range msg.Headers() {
		headers[h.Name()] = h.Value()
	}
	rec["headers"] = headers
	return rec
}

func callID(msg sip.Message) string {
	id, _ := msg.CallID()
	if id == nil {
		return ""
	}
	return id.Value()
}

func headerValue(msg sip.Message, name string) string {
	for _, h := range msg.Headers() {
		if strings.EqualFold(h.Name(), name) {
			return h.Value()
		}
	}
	return ""
}

// writer re-renders summarized records to SIP-ish text; it cannot recover
// a message this package never parsed into a full sip.Message, so it
// emits a minimal synthetic line per record instead of a byte-accurate
// round trip.
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
			return fmt.Errorf("sipflow: expected []map[string]any events, got %T", item.Events)
		}
		var sb strings.Builder
		for _, rec := range records {
			fmt.Fprintf(&sb, "%v %v%s", rec["type"], rec["call_id"], sipMessageDelim)
		}
		if err := io_.Out.Send(ctx, operator.BytesItem([]byte(sb.String()))); err != nil {
			return err
		}
	}
}

func splitOnDelim(delim string) func([]byte, bool) (int, []byte, error) {
	db := []byte(delim)
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := indexOf(data, db); i >= 0 {
			return i + len(db), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

func indexOf(data, sep []byte) int {
	return strings.Index(string(data), string(sep))
}

var _ operator.FormatFactory = (*Factory)(nil)
