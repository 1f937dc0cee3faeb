// Package diag implements the pipeline-wide diagnostic sink: severity-tagged,
// located, user-visible messages (spec.md §3 "Diagnostic", §6 "Diagnostic
// sink", §7 propagation policy).
package diag

import (
	"fmt"
	"sync"
)

// Severity is the diagnostic's level. Only Error ever stops the pipeline;
// every other severity is purely informational (spec.md §7).
type Severity int

const (
	Error Severity = iota
	Warning
	Note
	Hint
	Docs
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	case Hint:
		return "hint"
	case Docs:
		return "docs"
	default:
		return "unknown"
	}
}

// Location is a byte-offset span into the original pipeline text, used for
// primary/secondary annotations. An empty Location (Begin == End == 0 and
// Text == "") means "no location available".
type Location struct {
	Text       string
	Begin, End int
}

func (l Location) String() string {
	if l.Text == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.Text, l.Begin, l.End)
}

// Annotation attaches a message to a secondary location.
type Annotation struct {
	Location Location
	Message  string
}

// Diagnostic is a single severity-tagged, located, user-visible message.
type Diagnostic struct {
	Severity    Severity
	Message     string
	Primary     Location
	Annotations []Annotation
}

func (d Diagnostic) String() string {
	if d.Primary.Text == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Primary)
}

// Builder constructs a Diagnostic fluently, mirroring the source's
// diagnostic::warning("...").primary(expr).emit(ctx) chain (spec.md §4.7's
// url.cpp example).
type Builder struct {
	d Diagnostic
}

// Errorf starts building an error-severity diagnostic.
func Errorf(format string, args ...any) *Builder {
	return &Builder{d: Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...)}}
}

// Warningf starts building a warning-severity diagnostic.
func Warningf(format string, args ...any) *Builder {
	return &Builder{d: Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...)}}
}

// Primary attaches the diagnostic's primary source location.
func (b *Builder) Primary(loc Location) *Builder {
	b.d.Primary = loc
	return b
}

// Secondary attaches a secondary, annotated location.
func (b *Builder) Secondary(loc Location, format string, args ...any) *Builder {
	b.d.Annotations = append(b.d.Annotations, Annotation{Location: loc, Message: fmt.Sprintf(format, args...)})
	return b
}

// Build returns the constructed Diagnostic without emitting it.
func (b *Builder) Build() Diagnostic { return b.d }

// Emit builds the diagnostic and emits it to sink; for Error severity it also
// returns a failure marker so call sites can propagate it the way spec.md §6
// describes ("a variant returning a failure marker is used where propagation
// matters").
func (b *Builder) Emit(sink *Sink) error {
	d := b.Build()
	sink.Emit(d)
	if d.Severity == Error {
		return fmt.Errorf("%s", d.Message)
	}
	return nil
}

// Sink collects diagnostics for a single pipeline run. It must be safe under
// concurrent, single-threaded-cooperative writes from multiple operators
// (spec.md §5 "shared-resource policy"); a mutex-protected slice is the
// idiomatic equivalent of the protected maps in pkg/plugin/registry.go.
type Sink struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	onEmit      func(Diagnostic)
}

// NewSink creates an empty diagnostic sink. onEmit, if non-nil, is called
// synchronously for every emitted diagnostic in addition to it being
// recorded; internal/logx wires a logrus-backed onEmit so diagnostics are
// visible in logs as well as collected for later rendering.
func NewSink(onEmit func(Diagnostic)) *Sink {
	return &Sink{onEmit: onEmit}
}

// Emit records d and, if configured, forwards it to the logging bridge.
// Non-error severities never stop the pipeline (spec.md §6); Emit itself
// never returns an error for that reason — callers that need the
// failure-marker behavior should go through a Builder's Emit instead.
func (s *Sink) Emit(d Diagnostic) {
	s.mu.Lock()
	s.diagnostics = append(s.diagnostics, d)
	cb := s.onEmit
	s.mu.Unlock()
	if cb != nil {
		cb(d)
	}
}

// All returns a snapshot of every diagnostic emitted so far.
func (s *Sink) All() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// HasErrors reports whether any Error-severity diagnostic has been emitted.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
