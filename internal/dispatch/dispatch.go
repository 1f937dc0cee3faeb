package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Direction is which way bytes flow relative to events.
type Direction int

const (
	// Load reads bytes and produces events.
	Load Direction = iota
	// Save consumes events and writes bytes.
	Save
)

// defaultScheme is used when a uri carries no scheme, matching spec.md
// §4.7 step 2's "no scheme => use the platform's default file operator".
const defaultScheme = "file"

// Request is everything Assemble needs to resolve a single `load <uri>` or
// `save <uri>` invocation (spec.md §4.7 "Inputs").
type Request struct {
	URI          string
	Direction    Direction
	UserPipeline []operator.Operator
	Diag         *diag.Sink
}

// Assemble runs the ten-step algorithm from spec.md §4.7 and returns the
// fully ordered operator chain. URL parsing uses net/url from the standard
// library: no example in the retrieval pack reaches for a third-party URI
// parser, and net/url already covers RFC 3986 parsing completely, so there
// is nothing a dependency would add here (documented in DESIGN.md).
func (r *Registry) Assemble(ctx context.Context, req Request) ([]operator.Operator, error) {
	if len(req.UserPipeline) > 1 {
		return nil, fmt.Errorf("%w", ErrDuplicatePipelineTail)
	}

	// Step 1: parse URI.
	u, err := url.Parse(req.URI)
	if err != nil {
		return nil, diag.Errorf("invalid uri %q: %v", req.URI, err).
			Primary(diag.Location{Text: req.URI}).
			Emit(req.diagSink())
	}

	// Step 2: select scheme operator.
	schemeName := u.Scheme
	if schemeName == "" {
		schemeName = defaultScheme
	}
	schemeFactory, err := r.Scheme(schemeName)
	if err != nil {
		return nil, diag.Errorf("%v", err).Emit(req.diagSink())
	}

	props := propertiesOf(schemeFactory, req.Direction)

	// Step 3: URI rewrites.
	uris := []string{req.URI}
	if props.TransformURI != nil {
		expanded, err := props.TransformURI(req.URI, ctx)
		if err != nil {
			return nil, diag.Errorf("transform_uri for scheme %q: %v", schemeName, err).Emit(req.diagSink())
		}
		if len(expanded) > 0 {
			uris = expanded
		}
	}

	var chain []operator.Operator
	for _, uri := range uris {
		sub, err := r.assembleOne(schemeName, schemeFactory, props, uri, req)
		if err != nil {
			return nil, err
		}
		chain = append(chain, sub...)
	}
	return chain, nil
}

func (req Request) diagSink() *diag.Sink {
	if req.Diag != nil {
		return req.Diag
	}
	return diag.NewSink(nil)
}

// assembleOne resolves a single (possibly transform_uri-expanded) URI
// instance into its scheme/[compression]/[format] operators, then splices
// in the user pipeline per step 10.
func (r *Registry) assembleOne(schemeName string, schemeFactory operator.Factory, props schemeProperties, rawURI string, req Request) ([]operator.Operator, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, diag.Errorf("invalid uri %q: %v", rawURI, err).Emit(req.diagSink())
	}

	// Step 4: strip scheme.
	arg := rawURI
	if props.StripScheme {
		arg = u.Opaque
		if arg == "" {
			arg = u.Path
		}
	}

	schemeOp, err := schemeFactory.Make(operator.Invocation{
		Name:    schemeFactory.Name(),
		Args:    []string{arg},
		Options: map[string]any{"direction": req.Direction},
		Diag:    req.diagSink(),
	})
	if err != nil {
		return nil, fmt.Errorf("constructing scheme %q operator: %w", schemeName, err)
	}

	// Step 5: passthrough detection. A user-supplied tail alone does not
	// suppress format/compression matching (accepts_pipeline is handled
	// separately in maybeWrapAcceptsPipeline at step 10); only a scheme
	// that itself produces/consumes events skips straight to step 10.
	if props.Events {
		chain := []operator.Operator{schemeOp}
		chain = append(chain, req.UserPipeline...)
		return maybeWrapAcceptsPipeline(props, schemeFactory, schemeOp, chain, req), nil
	}

	// Step 6: derive filename.
	filename, err := deriveFilename(u)
	if err != nil {
		if props.DefaultFormat == "" && len(req.UserPipeline) == 0 {
			return nil, diag.Errorf("%v", err).Emit(req.diagSink())
		}
	}

	// Step 7: split extensions.
	ext := extensionOf(filename)

	// Steps 8-9, longer-extension-wins (Property P8): try the full
	// remaining extension as a format match first, before ever consulting
	// compression. Only if nothing matches the full extension do we peel
	// off a trailing compression suffix and retry the format match against
	// what is left. This is a deliberate generalization of the literal
	// step-8-then-step-9 reading: it is the only ordering under which a
	// registered format extension longer than a registered compression
	// extension always wins, which is what Property P8 requires.
	var compressionOp, formatOp operator.Operator
	var compressionFactory operator.CompressionFactory
	var formatFactory operator.FormatFactory

	if ext != "" {
		if ff, ok := r.matchFormat(ext); ok {
			formatFactory = ff
		} else if cf, ok := r.matchCompression(trailingSegment(ext)); ok {
			compressionFactory = cf
			ext = strings.TrimSuffix(ext, "."+cf.Extension())
			ext = strings.TrimSuffix(ext, cf.Extension())
			if ff, ok := r.matchFormat(ext); ok {
				formatFactory = ff
			}
		}
	}

	if formatFactory == nil {
		if props.DefaultFormat != "" {
			if ff, ok := r.matchFormat(props.DefaultFormat); ok {
				formatFactory = ff
			}
		}
	}
	if formatFactory == nil {
		return nil, diag.Errorf(
			"no format extension matched in %q (supported formats: %v, supported compression: %v): %v",
			filename, r.FormatExtensions(), r.CompressionExtensions(), ErrNoFormatMatch,
		).Emit(req.diagSink())
	}

	if compressionFactory != nil {
		compressionOp, err = compressionFactory.Make(operator.Invocation{
			Name: compressionFactory.Name(), Diag: req.diagSink(),
			Options: map[string]any{"direction": req.Direction},
		})
		if err != nil {
			return nil, fmt.Errorf("constructing compression %q operator: %w", compressionFactory.Name(), err)
		}
	}
	formatOp, err = formatFactory.Make(operator.Invocation{
		Name: formatFactory.Name(), Diag: req.diagSink(),
		Options: map[string]any{"direction": req.Direction},
	})
	if err != nil {
		return nil, fmt.Errorf("constructing format %q operator: %w", formatFactory.Name(), err)
	}

	// Step 10: assemble.
	var chain []operator.Operator
	switch req.Direction {
	case Load:
		chain = append(chain, schemeOp)
		if compressionOp != nil {
			chain = append(chain, compressionOp)
		}
		chain = append(chain, formatOp)
		chain = append(chain, req.UserPipeline...)
	case Save:
		chain = append(chain, req.UserPipeline...)
		chain = append(chain, formatOp)
		if compressionOp != nil {
			chain = append(chain, compressionOp)
		}
		chain = append(chain, schemeOp)
	}
	return maybeWrapAcceptsPipeline(props, schemeFactory, schemeOp, chain, req), nil
}

// maybeWrapAcceptsPipeline implements the tail clause of step 10: when the
// scheme factory declares accepts_pipeline, it is rebuilt once more with
// the rest of the assembled chain passed as its own pipeline argument,
// rather than being spliced into the returned operator list.
func maybeWrapAcceptsPipeline(props schemeProperties, schemeFactory operator.Factory, schemeOp operator.Operator, chain []operator.Operator, req Request) []operator.Operator {
	if !props.AcceptsPipeline {
		return chain
	}
	var tail []operator.Operator
	for _, op := range chain {
		if op == schemeOp {
			continue
		}
		tail = append(tail, op)
	}
	rebuilt, err := schemeFactory.Make(operator.Invocation{
		Name:    schemeFactory.Name(),
		Options: map[string]any{"direction": req.Direction, "pipeline": tail},
		Diag:    req.diagSink(),
	})
	if err != nil {
		// Construction already succeeded once above with the same
		// factory; a second failure here means the factory's Make is not
		// idempotent, which is a plugin bug, not something the dispatcher
		// can recover from.
		return chain
	}
	return []operator.Operator{rebuilt}
}

type schemeProperties struct {
	Schemes         []string
	Extensions      []string
	AcceptsPipeline bool
	Events          bool
	StripScheme     bool
	DefaultFormat   string
	TransformURI    func(uri string, ctx context.Context) ([]string, error)
}

func propertiesOf(f operator.Factory, dir Direction) schemeProperties {
	switch dir {
	case Load:
		if lf, ok := f.(operator.LoadFactory); ok {
			p := lf.LoadProperties()
			return schemeProperties(p)
		}
	case Save:
		if sf, ok := f.(operator.SaveFactory); ok {
			p := sf.SaveProperties()
			return schemeProperties(p)
		}
	}
	return schemeProperties{}
}

// deriveFilename implements step 6: URL-decode the last path segment, else
// fall back to the host.
func deriveFilename(u *url.URL) (string, error) {
	segment := path.Base(u.Path)
	if segment != "" && segment != "." && segment != "/" {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return "", fmt.Errorf("decoding filename %q: %w", segment, err)
		}
		return decoded, nil
	}
	if u.Host != "" {
		return u.Host, nil
	}
	return "", ErrEmptyFilename
}

// extensionOf returns everything after the first '.' in filename, per step
// 7. A filename with no '.' has no extension.
func extensionOf(filename string) string {
	idx := strings.IndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}

// trailingSegment returns the part of ext after its last '.', or ext itself
// if it has none, per step 8's "trailing segment of ext after a '.'".
func trailingSegment(ext string) string {
	idx := strings.LastIndexByte(ext, '.')
	if idx < 0 {
		return ext
	}
	return ext[idx+1:]
}
