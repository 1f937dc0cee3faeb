// Package pcap implements the pcap format factory: bytes <-> summarized
// packet-event batches. Grounded on internal/source/file.FileSource's
// pcap.OpenOffline read loop, ported from the cgo-backed
// github.com/google/gopacket/pcap package to its pure-Go sibling
// github.com/google/gopacket/pcapgo so this format factory has no libpcap
// runtime dependency, and github.com/google/gopacket/layers for the
// summarized event fields the teacher's own decoders
// (internal/core/decoder/*.go) already extract.
package pcap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Name is the extension (and operator name) this factory claims.
const Name = "pcap"

const batchSize = 128

type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) Name() string         { return Name }
func (f *Factory) Extensions() []string { return []string{Name, "pcapng"} }

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	dir, _ := inv.Options["direction"].(dispatch.Direction)
	if dir == dispatch.Save {
		return &writer{}, nil
	}
	return &reader{}, nil
}

// reader decodes each packet record into a summarized event: timestamp,
// length, and (when the link type and payload allow) network/transport
// addresses and protocol, the same fields the teacher's decoders surface.
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

	src, err := pcapgo.NewReader(pr)
	if err != nil {
		return fmt.Errorf("pcap: %w", err)
	}
	linkType := src.LinkType()

	var batch []map[string]any
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out := batch
		batch = nil
		return io_.Out.Send(ctx, operator.EventsItem(out))
	}
	for {
		data, ci, err := src.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("pcap: reading packet: %w", err)
		}
		batch = append(batch, summarize(data, ci, linkType))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func summarize(data []byte, ci gopacket.CaptureInfo, linkType layers.LinkType) map[string]any {
	rec := map[string]any{
		"timestamp": ci.Timestamp.UTC().Format(time.RFC3339Nano),
		"length":    ci.Length,
		"captured":  ci.CaptureLength,
	}
	pkt := gopacket.NewPacket(data, linkType, gopacket.NoCopy)
	if nl := pkt.NetworkLayer(); nl != nil {
		flow := nl.NetworkFlow()
		src, dst := flow.Endpoints()
		rec["src_ip"] = src.String()
		rec["dst_ip"] = dst.String()
	}
	if tl := pkt.TransportLayer(); tl != nil {
		flow := tl.TransportFlow()
		src, dst := flow.Endpoints()
		rec["src_port"] = src.String()
		rec["dst_port"] = dst.String()
		rec["protocol"] = tl.LayerType().String()
	}
	return rec
}

// writer is a minimal summary-to-pcap encoder: since the reader discards
// the original bytes once decoded into a summary, it writes a synthetic
// empty-payload frame per event carrying the event's "length" (an int).
// The frame's timestamp is the time of writing; the event's "timestamp"
// field is not read.
type writer struct{}

func (w *writer) Name() string            { return Name }
func (w *writer) InputKind() operator.Kind  { return operator.KindEvents }
func (w *writer) OutputKind() operator.Kind { return operator.KindBytes }

func (w *writer) Run(ctx context.Context, io_ operator.IO) error {
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		dst := pcapgo.NewWriter(pw)
		if err := dst.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
			errCh <- fmt.Errorf("pcap: writing header: %w", err)
			return
		}
		for {
			item, ok, err := io_.In.Receive(ctx)
			if err != nil {
				errCh <- err
				return
			}
			if !ok {
				errCh <- nil
				return
			}
			records, ok := item.Events.([]map[string]any)
			if !ok {
				errCh <- fmt.Errorf("pcap: expected []map[string]any events, got %T", item.Events)
				return
			}
			for _, rec := range records {
				length, _ := rec["length"].(int)
				ci := gopacket.CaptureInfo{Timestamp: time.Now(), Length: length, CaptureLength: 0}
				if err := dst.WritePacket(ci, nil); err != nil {
					errCh <- fmt.Errorf("pcap: writing packet: %w", err)
					return
				}
			}
		}
	}()
	buf := make([]byte, 32*1024)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if sendErr := io_.Out.Send(ctx, operator.BytesItem(chunk)); sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF {
			return <-errCh
		}
		if err != nil {
			return fmt.Errorf("pcap: %w", err)
		}
	}
}

var _ operator.FormatFactory = (*Factory)(nil)
