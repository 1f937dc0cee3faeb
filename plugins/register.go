// Package plugins wires every built-in plugin factory into an
// internal/dispatch.Registry (scheme/format/compression) and a
// pkg/operator.NamedRegistry (plain mid-pipeline operators), generalized
// from the teacher's plugins/init.go one-shot
// plugin.RegisterCapturer/RegisterParser/RegisterReporter calls to the new
// operator.Factory model. Unlike the teacher's package-level init()
// registration, these are built explicitly by each cmd/ entry point (run,
// daemon, validate, explain) so a test can construct an independent
// registry per run.
package plugins

import (
	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"

	"github.com/firestige/arrowflow/plugins/compress/gzip"
	"github.com/firestige/arrowflow/plugins/compress/zstd"
	"github.com/firestige/arrowflow/plugins/format/ndjson"
	"github.com/firestige/arrowflow/plugins/format/pcap"
	"github.com/firestige/arrowflow/plugins/format/sipflow"
	"github.com/firestige/arrowflow/plugins/scheme/file"
	"github.com/firestige/arrowflow/plugins/scheme/grpcsink"
	"github.com/firestige/arrowflow/plugins/sink/console"
	"github.com/firestige/arrowflow/plugins/sink/skywalking"
)

// NewDispatchRegistry builds a dispatch.Registry with every built-in
// scheme, format, and compression factory registered.
func NewDispatchRegistry() *dispatch.Registry {
	r := dispatch.NewRegistry()
	r.RegisterScheme(file.New())
	r.RegisterScheme(grpcsink.New())
	r.RegisterScheme(skywalking.New())
	r.RegisterFormat(ndjson.New())
	r.RegisterFormat(pcap.New())
	r.RegisterFormat(sipflow.New())
	r.RegisterCompression(gzip.New())
	r.RegisterCompression(zstd.New())
	return r
}

// NewOperatorRegistry builds the named-operator registry for plain
// mid-pipeline transforms/sinks that config files reference by name
// (spec.md §3's operator-invocation list) rather than by URI.
func NewOperatorRegistry() *operator.NamedRegistry {
	r := operator.NewNamedRegistry()
	r.Register(console.New())
	return r
}
