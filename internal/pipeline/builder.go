package pipeline

import (
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Builder provides a fluent interface for assembling an operator chain,
// mirroring the teacher's own config Builder (WithCapturer/WithParsers/...)
// generalized from a fixed capturer+decoder+parsers+processors+reporters
// shape to an arbitrary ordered operator list.
type Builder struct {
	operators []operator.Operator
	diag      *diag.Sink
}

// NewBuilder creates an empty pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Then appends the next operator in the chain.
func (b *Builder) Then(op operator.Operator) *Builder {
	b.operators = append(b.operators, op)
	return b
}

// WithDiagnostics sets the diagnostic sink every operator's IO will receive.
func (b *Builder) WithDiagnostics(sink *diag.Sink) *Builder {
	b.diag = sink
	return b
}

// Build type-checks the assembled chain and allocates its channels.
func (b *Builder) Build() (*Pipeline, error) {
	sink := b.diag
	if sink == nil {
		sink = diag.NewSink(nil)
	}
	return New(b.operators, sink)
}
