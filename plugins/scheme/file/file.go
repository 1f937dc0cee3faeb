// Package file implements the default byte-stream scheme factory: reading
// and writing local files (spec.md §4.7 step 2 "no scheme => use the
// platform's default file operator"). It is grounded on the teacher's
// internal/source/file.FileSource (pcap.OpenOffline-backed) and
// internal/config's afero.Fs use, generalized from a pcap-only reader to an
// arbitrary byte load/save scheme and backed by afero.Fs rather than bare
// os so the factory is unit-testable against an in-memory filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Name is the scheme this factory claims.
const Name = "file"

// chunkSize bounds how much of the file is read per yielded Item, so a
// large file still gives the runtime's cooperative scheduler (and
// cancellation) a chance to run between reads (spec.md §4.6 "Control yields
// are cooperative").
const chunkSize = 64 * 1024

// Factory constructs file-scheme load/save operators. Fs defaults to the OS
// filesystem; tests substitute afero.NewMemMapFs().
type Factory struct {
	Fs afero.Fs

	// Watermark, when set, backpressures every save operator this factory
	// builds against its target directory's disk usage (§10.1's
	// DiskWatermark supplement), pausing writes above HighWaterMark until
	// usage drops back to LowWaterMark.
	Watermark *pipeline.DiskWatermarkConfig
}

// New returns a file scheme factory backed by the real OS filesystem.
func New() *Factory { return &Factory{Fs: afero.NewOsFs()} }

func (f *Factory) fs() afero.Fs {
	if f.Fs == nil {
		return afero.NewOsFs()
	}
	return f.Fs
}

func (f *Factory) Name() string { return Name }

func (f *Factory) LoadProperties() operator.LoadProperties {
	return operator.LoadProperties{Schemes: []string{Name}, StripScheme: true}
}

func (f *Factory) SaveProperties() operator.SaveProperties {
	return operator.SaveProperties{Schemes: []string{Name}, StripScheme: true}
}

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	if len(inv.Args) != 1 || inv.Args[0] == "" {
		return nil, fmt.Errorf("file: expected exactly one path argument")
	}
	path := inv.Args[0]
	dir, _ := inv.Options["direction"].(dispatch.Direction)
	switch dir {
	case dispatch.Save:
		return f.saveOperator(path), nil
	default:
		return f.loadOperator(path), nil
	}
}

func (f *Factory) loadOperator(path string) operator.Operator {
	var file afero.File
	buf := make([]byte, chunkSize)
	return operator.SourceFunc{
		OpName: Name,
		Out:    operator.KindBytes,
		Next: func(ctx context.Context) (operator.Item, bool, error) {
			if file == nil {
				var err error
				file, err = f.fs().Open(path)
				if err != nil {
					return operator.Item{}, false, fmt.Errorf("file: opening %q: %w", path, err)
				}
			}
			n, err := file.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				return operator.BytesItem(chunk), true, nil
			}
			if err == io.EOF {
				_ = file.Close()
				return operator.Item{}, false, nil
			}
			if err != nil {
				_ = file.Close()
				return operator.Item{}, false, fmt.Errorf("file: reading %q: %w", path, err)
			}
			return operator.Item{}, true, nil
		},
	}
}

func (f *Factory) saveOperator(path string) operator.Operator {
	s := &saveOp{fs: f.fs(), path: path}
	if f.Watermark != nil {
		cfg := *f.Watermark
		if cfg.Directory == "" {
			cfg.Directory = filepath.Dir(path)
		}
		wm, err := pipeline.NewDiskWatermark(cfg, logrus.WithField("scheme", Name))
		if err == nil {
			s.watermark = wm
		}
	}
	return s
}

// saveOp is a sink operator with explicit cleanup: it must close the
// underlying file once the input channel reaches end-of-stream, which a
// bare operator.SinkFunc has no hook for.
type saveOp struct {
	fs        afero.Fs
	path      string
	watermark *pipeline.DiskWatermark
}

func (s *saveOp) Name() string            { return Name }
func (s *saveOp) InputKind() operator.Kind  { return operator.KindBytes }
func (s *saveOp) OutputKind() operator.Kind { return operator.KindVoid }

func (s *saveOp) Run(ctx context.Context, io operator.IO) error {
	file, err := s.fs.Create(s.path)
	if err != nil {
		return fmt.Errorf("file: creating %q: %w", s.path, err)
	}
	defer file.Close()

	if s.watermark != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.watermark.Run(wctx)
	}

	for {
		item, ok, err := io.In.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.waitUnpaused(ctx); err != nil {
			return err
		}
		if _, err := file.Write(item.Bytes); err != nil {
			return fmt.Errorf("file: writing %q: %w", s.path, err)
		}
	}
}

// waitUnpaused blocks while the disk watermark reports the target directory
// above its high-water mark, so a full sink directory backpressures the
// whole pipeline instead of failing writes outright.
func (s *saveOp) waitUnpaused(ctx context.Context) error {
	if s.watermark == nil {
		return nil
	}
	for s.watermark.Paused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

var (
	_ operator.LoadFactory = (*Factory)(nil)
	_ operator.SaveFactory = (*Factory)(nil)
)
