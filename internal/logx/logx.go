package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/firestige/arrowflow/internal/diag"
)

// MultiWriter fans a single logrus output stream out to any number of
// io.Writers, ported verbatim in shape from the teacher's
// internal/log.MultiWriter.
type MultiWriter struct {
	writers []io.Writer
}

// NewMultiWriter returns a MultiWriter that writes to stderr until Add or
// AddFileAppender register additional sinks.
func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: []io.Writer{os.Stderr}}
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	var firstErr error
	for _, w := range m.writers {
		if _, err := w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

// Add appends an arbitrary writer to the fan-out set.
func (m *MultiWriter) Add(w io.Writer) *MultiWriter {
	m.writers = append(m.writers, w)
	return m
}

// FileAppenderOptions configures a rotated file sink, mirroring the
// teacher's internal/log.FileAppenderOpt mapstructure tags.
type FileAppenderOptions struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AddFileAppender registers a lumberjack-backed rotated file sink.
func (m *MultiWriter) AddFileAppender(opt FileAppenderOptions) *MultiWriter {
	return m.Add(&lumberjack.Logger{
		Filename:   opt.Filename,
		MaxSize:    opt.MaxSize,
		MaxBackups: opt.MaxBackups,
		MaxAge:     opt.MaxAge,
		Compress:   opt.Compress,
	})
}

// Options configures Setup.
type Options struct {
	Level   logrus.Level
	Pattern string
	File    *FileAppenderOptions
}

// Setup installs a PatternFormatter and MultiWriter on logrus's standard
// logger and returns it, so cmd/root.go can call this once at startup the
// way the teacher's log.Init(cfg) does.
func Setup(opt Options) *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetFormatter(&PatternFormatter{Pattern: opt.Pattern})
	l.SetReportCaller(true)
	if opt.Level != 0 {
		l.SetLevel(opt.Level)
	}
	mw := NewMultiWriter()
	if opt.File != nil {
		mw.AddFileAppender(*opt.File)
	}
	l.SetOutput(mw)
	return l
}

// DiagBridge returns a diag.Sink onEmit callback that renders each
// diagnostic through logrus (errors at error level, warnings at warning
// level, notes, hints and docs at info level), the split spec.md §7
// describes between the in-memory diagnostic sink and user-visible logs.
func DiagBridge(log *logrus.Entry) func(diag.Diagnostic) {
	return func(d diag.Diagnostic) {
		entry := log
		if d.Primary.Text != "" {
			entry = log.WithField("location", d.Primary.String())
		}
		switch d.Severity {
		case diag.Error:
			entry.Error(d.Message)
		case diag.Warning:
			entry.Warn(d.Message)
		case diag.Note, diag.Hint, diag.Docs:
			entry.Info(d.Message)
		default:
			entry.Info(d.Message)
		}
	}
}
