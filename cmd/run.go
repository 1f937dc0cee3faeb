package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/firestige/arrowflow/internal/config"
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/logx"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/plugins"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline to completion",
	Long: `run resolves the load/save uri and any tail operators declared in
the config file into an operator chain, then executes it under a single
supervising scope until the source is exhausted, the sink errors, or the
process receives SIGINT/SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		runRunCommand()
	},
}

func runRunCommand() {
	log := setupLogging()
	cfg, err := config.LoadPipeline(configFile)
	if err != nil {
		exitWithError("failed to load pipeline config", err)
	}
	if err := cfg.Sanitize(); err != nil {
		exitWithError("pipeline config rejected", err)
	}

	sink := diag.NewSink(logx.DiagBridge(logrus.NewEntry(log)))
	registry := plugins.NewDispatchRegistry()
	ops := plugins.NewOperatorRegistry()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := pipeline.Build(ctx, cfg, registry, ops, sink)
	if err != nil {
		exitWithError("failed to assemble pipeline", err)
	}
	if err := p.Run(ctx); err != nil {
		if sink.HasErrors() {
			for _, d := range sink.All() {
				log.WithField("severity", d.Severity).Error(d.Message)
			}
		}
		exitWithError("pipeline run failed", err)
	}
	os.Exit(0)
}
