// Package cmd implements arrowflow's CLI commands using cobra, generalized
// from the teacher's cmd/root.go (same persistent-flag/subcommand-tree
// shape, same exitWithError idiom) to the pipeline-execution commands
// SPEC_FULL.md names instead of the capture-agent task/reload/stats set.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/firestige/arrowflow/internal/logx"
)

var (
	configFile string
	socketPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "arrowflow",
	Short: "arrowflow - a structured-concurrency pipeline execution engine",
	Long: `arrowflow assembles load/save URIs and operator chains into a
supervised pipeline, the way "otus <uri> | operator | ... | otus <uri>"
would read as a single process: a scheme plugin opens the endpoint, an
optional format/compression plugin frames the bytes, and a chain of
operators streams data through bounded channels under one cancellation
scope.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"pipeline config file path (see internal/config.PipelineConfig)")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/arrowflow.sock",
		"daemon control socket path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func setupLogging() *logrus.Logger {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	return logx.Setup(logx.Options{Level: level, Pattern: logx.DefaultPattern})
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
