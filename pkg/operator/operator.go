// Package operator defines the public operator factory interface consumed
// by the URI dispatcher and instantiated by the pipeline runtime (spec.md
// §4.6 "Operator runtime", §6 "Operator factory interface"). It plays the
// same role for arrowflow that pkg/plugin played for the teacher's
// Capturer/Parser/Processor/Reporter quartet, generalized from four
// packet-capture-specific roles to the three operator roles (source,
// transformer, sink) the spec names.
package operator

import (
	"context"

	"github.com/firestige/arrowflow/internal/diag"
)

// Kind is an operator's input or output shape.
type Kind int

const (
	// KindVoid means the operator has no input (a source) or produces
	// nothing a downstream operator consumes (a sink).
	KindVoid Kind = iota
	// KindBytes is an opaque byte-stream chunk.
	KindBytes
	// KindEvents is a schema-tagged columnar record batch, represented here
	// as an opaque value owned by the out-of-scope record-batch library.
	KindEvents
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindEvents:
		return "events"
	default:
		return "void"
	}
}

// Item is a single value flowing across a Channel: either an event batch or
// a byte chunk, never both (spec.md §3 "Channel").
type Item struct {
	Events any
	Bytes  []byte
}

// BytesItem wraps a byte chunk as an Item.
func BytesItem(b []byte) Item { return Item{Bytes: b} }

// EventsItem wraps an event batch as an Item.
func EventsItem(e any) Item { return Item{Events: e} }

// Receiver is the consumer side of a bounded channel between two adjacent
// operators (spec.md §6 "Channel API"). Receive returns ok=false on
// end-of-stream.
type Receiver interface {
	Receive(ctx context.Context) (item Item, ok bool, err error)
}

// Sender is the producer side of a bounded channel. Send suspends (blocks)
// while the channel is full, which is how backpressure propagates upstream.
type Sender interface {
	Send(ctx context.Context, item Item) error
	Close()
}

// IO is what the runtime hands an operator's Run method: its input and
// output channel halves (nil where not applicable for the operator's role)
// and a handle to the pipeline-wide diagnostic sink.
type IO struct {
	In   Receiver
	Out  Sender
	Diag *diag.Sink
}

// Operator is a single node in a pipeline: a source, a transformer, or a
// sink, run as a goroutine by the runtime. Run must periodically check
// ctx.Done() (at every suspension point: channel send/receive, explicit
// yields, external I/O) so cancellation is observed promptly (spec.md §4.6,
// §5). Returning a non-nil error that does not wrap ctx.Err() is treated as
// a fatal failure that cancels the whole pipeline scope.
type Operator interface {
	Name() string
	InputKind() Kind
	OutputKind() Kind
	Run(ctx context.Context, io IO) error
}

// LoadProperties describes how a scheme or format factory participates in
// `load` (bytes -> events) assembly (spec.md §6).
type LoadProperties struct {
	Schemes         []string
	Extensions      []string
	AcceptsPipeline bool
	Events          bool
	StripScheme     bool
	DefaultFormat   string
	TransformURI    func(uri string, ctx context.Context) ([]string, error)
}

// SaveProperties is the `save` (events -> bytes) analogue of LoadProperties.
type SaveProperties struct {
	Schemes         []string
	Extensions      []string
	AcceptsPipeline bool
	Events          bool
	StripScheme     bool
	DefaultFormat   string
	TransformURI    func(uri string, ctx context.Context) ([]string, error)
}

// Invocation is the compiled, option-parsed request to instantiate a single
// operator (spec.md §3 "Operator invocation (runtime view)").
type Invocation struct {
	Name    string
	Args    []string
	Options map[string]any
	Diag    *diag.Sink
}

// Factory constructs an Operator instance from an invocation. Exactly one
// Factory is registered per (trait, name) pair in the plugin registry
// (internal/dispatch), mirroring pkg/plugin/registry.go's
// RegisterXxx/GetXxxFactory pattern generalized across traits.
type Factory interface {
	Name() string
	Make(inv Invocation) (Operator, error)
}

// LoadFactory additionally declares load-direction registry metadata.
type LoadFactory interface {
	Factory
	LoadProperties() LoadProperties
}

// SaveFactory additionally declares save-direction registry metadata.
type SaveFactory interface {
	Factory
	SaveProperties() SaveProperties
}

// FormatFactory declares the file-extension suffixes a format plugin claims,
// and builds either a reader (bytes -> events) or writer (events -> bytes)
// operator depending on the invocation's declared direction.
type FormatFactory interface {
	Factory
	Extensions() []string
}

// CompressionFactory declares the file-extension suffix a compression
// plugin claims, and builds either a decompress (bytes -> bytes) or compress
// (bytes -> bytes) operator.
type CompressionFactory interface {
	Factory
	Extension() string
}
