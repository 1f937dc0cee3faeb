package pipeline

import (
	"context"
	"fmt"

	"github.com/firestige/arrowflow/internal/config"
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

// Build resolves a PipelineConfig's load or save step through the
// dispatch.Registry (turning its URI plus any declared tail operators into
// a type-checked operator chain, spec.md §4.7) and wraps the result in a
// Pipeline. cmd/run.go and cmd/daemon.go call it; cmd/validate.go and
// cmd/explain.go call Resolve, the same resolution step Build runs first,
// so "validate" and "run" can never disagree about how a config resolves.
func Build(ctx context.Context, cfg *config.PipelineConfig, registry *dispatch.Registry, ops *operator.NamedRegistry, sink *diag.Sink) (*Pipeline, error) {
	chain, err := Resolve(ctx, cfg, registry, ops, sink)
	if err != nil {
		return nil, err
	}
	return New(chain, sink)
}

// Resolve runs dispatch.Assemble without constructing a Pipeline, the
// piece cmd/explain.go needs to print the resolved chain without also
// type-checking channel wiring.
func Resolve(ctx context.Context, cfg *config.PipelineConfig, registry *dispatch.Registry, ops *operator.NamedRegistry, sink *diag.Sink) ([]operator.Operator, error) {
	ls, dir, err := selectLoadSave(cfg)
	if err != nil {
		return nil, err
	}

	// dispatch.Assemble accepts at most one already-resolved tail operator
	// (it represents the whole user pipeline as a single splice point,
	// spec.md §4.7 step 10); config files with more than one tail entry
	// are rejected here rather than silently dropping all but the first.
	if len(ls.Pipeline) > 1 {
		return nil, fmt.Errorf("pipeline: config declares %d tail operators, at most 1 supported", len(ls.Pipeline))
	}
	var tail []operator.Operator
	for _, invCfg := range ls.Pipeline {
		inv := operator.Invocation{Name: invCfg.Name, Args: invCfg.Args, Options: invCfg.Options, Diag: sink}
		op, err := ops.Make(inv)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolving tail operator %q: %w", invCfg.Name, err)
		}
		tail = append(tail, op)
	}

	return registry.Assemble(ctx, dispatch.Request{
		URI:          ls.URI,
		Direction:    dir,
		UserPipeline: tail,
		Diag:         sink,
	})
}

func selectLoadSave(cfg *config.PipelineConfig) (*config.LoadSaveConfig, dispatch.Direction, error) {
	switch {
	case cfg.Load != nil:
		return cfg.Load, dispatch.Load, nil
	case cfg.Save != nil:
		return cfg.Save, dispatch.Save, nil
	default:
		return nil, 0, fmt.Errorf("pipeline: config declares neither load nor save")
	}
}
