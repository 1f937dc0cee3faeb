// Package pipeline implements pipeline construction and metrics.
package pipeline

import (
	"sync/atomic"
)

// Metrics holds the item counters of a single operator, identified by
// Name, the same way the teacher kept one counter set per pipeline rather
// than per packet field.
type Metrics struct {
	Name     string
	Sent     atomic.Uint64
	Received atomic.Uint64
	Errors   atomic.Uint64
}

// NewMetrics creates a zeroed metrics instance for an operator named name.
func NewMetrics(name string) *Metrics {
	return &Metrics{Name: name}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.Sent.Store(0)
	m.Received.Store(0)
	m.Errors.Store(0)
}
