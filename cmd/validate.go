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

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a pipeline config without running it",
	Long: `validate runs Sanitize and the dispatcher's full Assemble pass
(scheme lookup, format/compression matching, tail-operator construction)
without executing a single operator, the pre-flight check
launch_parameter_sanitation.cpp's caller would have run before start.`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	cfg, err := config.LoadPipeline(configFile)
	if err != nil {
		exitWithError("failed to load pipeline config", err)
	}
	if err := cfg.Sanitize(); err != nil {
		exitWithError("pipeline config rejected", err)
	}

	sink := diag.NewSink(nil)
	registry := plugins.NewDispatchRegistry()
	ops := plugins.NewOperatorRegistry()

	chain, err := pipeline.Resolve(context.Background(), cfg, registry, ops, sink)
	if err != nil {
		exitWithError("pipeline failed to assemble", err)
	}
	if _, err := pipeline.New(chain, sink); err != nil {
		exitWithError("pipeline failed type-checking", err)
	}

	fmt.Printf("ok: %d operator(s) resolved\n", len(chain))
}
