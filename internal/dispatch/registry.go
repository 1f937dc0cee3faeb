package dispatch

import (
	"fmt"
	"sort"

	"github.com/firestige/arrowflow/pkg/operator"
)

// Registry holds every scheme, format, and compression factory known at
// startup. It is populated once, by plugins.NewDispatchRegistry, and is
// read-only thereafter (spec.md §5
// "Registries (scheme, format, compression) are read-only after startup"),
// so unlike pkg/plugin/registry.go's package-level maps this is an
// explicit value a cmd/ entry point constructs and passes down, but the
// panic-on-duplicate-name discipline is identical.
type Registry struct {
	schemes      map[string]operator.Factory
	schemeOrder  []string
	formats      []operator.FormatFactory
	compressions []operator.CompressionFactory
}

// NewRegistry returns an empty registry ready for RegisterXxx calls.
func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]operator.Factory)}
}

// RegisterScheme registers f under every scheme name its load and/or save
// properties declare (a name declared by both is registered once). Panics
// on an empty name or a scheme already claimed by another factory, the same
// contract pkg/plugin.RegisterCapturer etc. enforce.
func (r *Registry) RegisterScheme(f operator.Factory) {
	if f == nil {
		panic("dispatch: scheme factory cannot be nil")
	}
	names := schemeNamesOf(f)
	if len(names) == 0 {
		panic(fmt.Sprintf("dispatch: factory %q declares no schemes", f.Name()))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			panic("dispatch: scheme name cannot be empty")
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, exists := r.schemes[name]; exists {
			panic(fmt.Sprintf("dispatch: scheme %q already registered", name))
		}
		r.schemes[name] = f
		r.schemeOrder = append(r.schemeOrder, name)
	}
}

func schemeNamesOf(f operator.Factory) []string {
	var names []string
	if lf, ok := f.(operator.LoadFactory); ok {
		names = append(names, lf.LoadProperties().Schemes...)
	}
	if sf, ok := f.(operator.SaveFactory); ok {
		names = append(names, sf.SaveProperties().Schemes...)
	}
	return names
}

// RegisterFormat appends f to the format registry. Iteration order is
// registration order (spec.md §6 "Plugin registry ... Iteration order is
// registration order"), which is why this is a slice, not a map.
func (r *Registry) RegisterFormat(f operator.FormatFactory) {
	if f == nil {
		panic("dispatch: format factory cannot be nil")
	}
	for _, existing := range r.formats {
		if existing.Name() == f.Name() {
			panic(fmt.Sprintf("dispatch: format %q already registered", f.Name()))
		}
	}
	r.formats = append(r.formats, f)
}

// RegisterCompression appends f to the compression registry.
func (r *Registry) RegisterCompression(f operator.CompressionFactory) {
	if f == nil {
		panic("dispatch: compression factory cannot be nil")
	}
	for _, existing := range r.compressions {
		if existing.Name() == f.Name() {
			panic(fmt.Sprintf("dispatch: compression %q already registered", f.Name()))
		}
	}
	r.compressions = append(r.compressions, f)
}

// Scheme returns the factory registered for name, or ErrSchemeNotFound.
func (r *Registry) Scheme(name string) (operator.Factory, error) {
	f, ok := r.schemes[name]
	if !ok {
		return nil, fmt.Errorf("scheme %q: %w (supported: %v)", name, ErrSchemeNotFound, r.SchemeNames())
	}
	return f, nil
}

// SchemeNames returns every registered scheme name, sorted, for use in
// error messages (spec.md §4.7 step 2 "emit an error listing supported
// schemes").
func (r *Registry) SchemeNames() []string {
	names := make([]string, 0, len(r.schemes))
	for name := range r.schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// matchFormat finds the registered format extension that is a dot-bounded
// suffix of ext (equal to ext entirely, or preceded by a '.'), preferring
// the longest such match (Property P8: "longer extension match preferred").
// Ties go to whichever format was registered first.
func (r *Registry) matchFormat(ext string) (operator.FormatFactory, bool) {
	var best operator.FormatFactory
	var bestLen int
	for _, f := range r.formats {
		for _, e := range f.Extensions() {
			if !dotBoundedSuffix(ext, e) {
				continue
			}
			if best == nil || len(e) > bestLen {
				best, bestLen = f, len(e)
			}
		}
	}
	return best, best != nil
}

// dotBoundedSuffix reports whether ext equals candidate, or ends with
// "."+candidate.
func dotBoundedSuffix(ext, candidate string) bool {
	if equalFold(ext, candidate) {
		return true
	}
	if len(ext) <= len(candidate) {
		return false
	}
	boundary := len(ext) - len(candidate)
	return ext[boundary-1] == '.' && equalFold(ext[boundary:], candidate)
}

func (r *Registry) matchCompression(trailing string) (operator.CompressionFactory, bool) {
	for _, c := range r.compressions {
		if equalFold(c.Extension(), trailing) {
			return c, true
		}
	}
	return nil, false
}

// FormatExtensions returns every registered format extension across every
// factory, sorted, for use in the "no format matched" diagnostic.
func (r *Registry) FormatExtensions() []string {
	var exts []string
	for _, f := range r.formats {
		exts = append(exts, f.Extensions()...)
	}
	sort.Strings(exts)
	return exts
}

// CompressionExtensions returns every registered compression extension,
// sorted.
func (r *Registry) CompressionExtensions() []string {
	exts := make([]string, 0, len(r.compressions))
	for _, c := range r.compressions {
		exts = append(exts, c.Extension())
	}
	sort.Strings(exts)
	return exts
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
