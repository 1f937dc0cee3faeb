package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firestige/arrowflow/internal/config"
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/plugins"
)

// explainCmd is the supplemented parse_query/pivoter dry-run tool
// (spec.md §10 supplement #4): it prints the operator chain the dispatcher
// would assemble for a config without running anything, so an operator can
// inspect exactly which scheme/format/compression plugins a uri resolved
// to before committing to `run`.
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print the resolved operator chain for a pipeline config",
	Run: func(cmd *cobra.Command, args []string) {
		runExplainCommand()
	},
}

func runExplainCommand() {
	cfg, err := config.LoadPipeline(configFile)
	if err != nil {
		exitWithError("failed to load pipeline config", err)
	}

	sink := diag.NewSink(nil)
	registry := plugins.NewDispatchRegistry()
	ops := plugins.NewOperatorRegistry()

	chain, err := pipeline.Resolve(context.Background(), cfg, registry, ops, sink)
	if err != nil {
		exitWithError("pipeline failed to assemble", err)
	}

	for i, op := range chain {
		fmt.Printf("%2d. %-20s in=%-8s out=%-8s\n", i, op.Name(), op.InputKind(), op.OutputKind())
	}
}
