// Package zstd implements the "zst" compression factory from scenario S1
// ("s3://bucket/events.ndjson.zst" => zst_decompress). Grounded on
// github.com/klauspost/compress, which the teacher already imports
// (go.mod's v1.17.11 require for the teacher's own pcap-capture rotation
// path) — its zstd subpackage is the ecosystem-standard pure-Go zstd
// implementation, so this promotes an existing teacher dependency to a new
// concern instead of introducing an unrelated one.
package zstd

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

const Name = "zst"
const chunkSize = 32 * 1024

type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) Name() string      { return Name }
func (f *Factory) Extension() string { return Name }

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	dir, _ := inv.Options["direction"].(dispatch.Direction)
	if dir == dispatch.Save {
		return &encodeOp{}, nil
	}
	return &decodeOp{}, nil
}

type decodeOp struct{}

func (d *decodeOp) Name() string            { return Name }
func (d *decodeOp) InputKind() operator.Kind  { return operator.KindBytes }
func (d *decodeOp) OutputKind() operator.Kind { return operator.KindBytes }

func (d *decodeOp) Run(ctx context.Context, io_ operator.IO) error {
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
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
	go func() {
		defer pr.Close()
		zr, err := zstd.NewReader(pr)
		if err != nil {
			errCh <- fmt.Errorf("zstd: %w", err)
			return
		}
		defer zr.Close()
		buf := make([]byte, chunkSize)
		for {
			n, err := zr.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if sendErr := io_.Out.Send(ctx, operator.BytesItem(chunk)); sendErr != nil {
					errCh <- sendErr
					return
				}
			}
			if err == io.EOF {
				errCh <- nil
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("zstd: %w", err)
				return
			}
		}
	}()
	return <-errCh
}

type encodeOp struct{}

func (e *encodeOp) Name() string            { return Name }
func (e *encodeOp) InputKind() operator.Kind  { return operator.KindBytes }
func (e *encodeOp) OutputKind() operator.Kind { return operator.KindBytes }

func (e *encodeOp) Run(ctx context.Context, io_ operator.IO) error {
	pr, pw := io.Pipe()
	zw, err := zstd.NewWriter(pw)
	if err != nil {
		pw.Close()
		return fmt.Errorf("zstd: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		for {
			item, ok, err := io_.In.Receive(ctx)
			if err != nil {
				zw.Close()
				return
			}
			if !ok {
				zw.Close()
				return
			}
			if _, err := zw.Write(item.Bytes); err != nil {
				return
			}
		}
	}()
	go func() {
		defer pr.Close()
		buf := make([]byte, chunkSize)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if sendErr := io_.Out.Send(ctx, operator.BytesItem(chunk)); sendErr != nil {
					errCh <- sendErr
					return
				}
			}
			if err == io.EOF {
				errCh <- nil
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("zstd: %w", err)
				return
			}
		}
	}()
	return <-errCh
}

var _ operator.CompressionFactory = (*Factory)(nil)
