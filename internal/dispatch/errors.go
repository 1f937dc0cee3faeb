// Package dispatch implements the URI / extension dispatcher: it resolves a
// `load`/`save` invocation plus an optional user pipeline tail into a
// concrete, ordered operator chain by consulting scheme, format, and
// compression factory registries (spec.md §4.7). The registry shape is
// adapted from pkg/plugin/registry.go's name->factory map with
// panic-on-duplicate-registration semantics, generalized from four
// packet-capture plugin kinds to the dispatcher's own traits.
package dispatch

import "errors"

// Sentinel errors, named the way internal/core/errors.go names its own.
var (
	ErrSchemeNotFound        = errors.New("arrowflow: scheme not registered")
	ErrNoFormatMatch         = errors.New("arrowflow: no format extension matched and no default format declared")
	ErrEmptyFilename         = errors.New("arrowflow: uri has no path segments to derive a filename from")
	ErrDuplicatePipelineTail = errors.New("arrowflow: at most one pipeline tail is allowed")
)
