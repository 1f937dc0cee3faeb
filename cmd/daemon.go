package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/firestige/arrowflow/internal/config"
	"github.com/firestige/arrowflow/internal/control"
	"github.com/firestige/arrowflow/internal/diag"
	"github.com/firestige/arrowflow/internal/logx"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/plugins"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a pipeline under a control-socket daemon",
	Long: `daemon runs the same pipeline as "run" but additionally starts a
control.Server on --socket, so a separate "arrowflow status" / "arrowflow
stop" invocation can query or cancel it, mirroring cmd/daemon.go's
start-a-background-service-and-expose-a-uds-control-channel shape.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDaemonCommand()
	},
}

func runDaemonCommand() {
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

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, cancelRun := context.WithCancel(signalCtx)
	defer cancelRun()

	startedAt := time.Now()
	pipelineName := configFile
	state := func() control.RunState {
		return control.RunState{StartedAt: startedAt, PipelineName: pipelineName, Running: runCtx.Err() == nil}
	}
	handler := control.NewStatusHandler(state, cancelRun)
	server := control.NewServer(socketPath, handler)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(signalCtx) }()

	p, err := pipeline.Build(runCtx, cfg, registry, ops, sink)
	if err != nil {
		cancelRun()
		exitWithError("failed to assemble pipeline", err)
	}

	runErr := p.Run(runCtx)
	cancelRun()
	server.Stop()
	<-serverErr
	if runErr != nil && runCtx.Err() == nil {
		exitWithError("pipeline run failed", runErr)
	}
}
