// Package gzip implements the "gz" compression factory (spec.md §4.7 step 8,
// scenario S1's ".ndjson.zst" sibling). No example repo in the retrieval
// pack reaches for a third-party gzip implementation anywhere, even in
// library-heavy codebases, so this is the one compression factory grounded
// directly on the standard library rather than on a teacher/pack
// dependency (documented in DESIGN.md).
package gzip

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Name is the extension (and operator name) this factory claims.
const Name = "gz"

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

// decodeOp streams bytes through a gzip.Reader fed by an io.Pipe whose write
// side is advanced one upstream chunk at a time, so decompression never
// needs the whole input buffered in memory.
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
		zr, err := gzip.NewReader(pr)
		if err != nil {
			errCh <- fmt.Errorf("gzip: %w", err)
			return
		}
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
				errCh <- fmt.Errorf("gzip: %w", err)
				return
			}
		}
	}()
	return <-errCh
}

// encodeOp writes received chunks through a gzip.Writer, flushing compressed
// output to the downstream channel.
type encodeOp struct{}

func (e *encodeOp) Name() string            { return Name }
func (e *encodeOp) InputKind() operator.Kind  { return operator.KindBytes }
func (e *encodeOp) OutputKind() operator.Kind { return operator.KindBytes }

func (e *encodeOp) Run(ctx context.Context, io_ operator.IO) error {
	pr, pw := io.Pipe()
	zw := gzip.NewWriter(pw)
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
		r := bufio.NewReaderSize(pr, chunkSize)
		buf := make([]byte, chunkSize)
		for {
			n, err := r.Read(buf)
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
				errCh <- fmt.Errorf("gzip: %w", err)
				return
			}
		}
	}()
	return <-errCh
}

var _ operator.CompressionFactory = (*Factory)(nil)
