package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firestige/arrowflow/internal/control"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running daemon to stop",
	Run: func(cmd *cobra.Command, args []string) {
		runStopCommand()
	},
}

func runStopCommand() {
	client := control.NewClient(socketPath, 10*time.Second)
	resp, err := client.Stop(context.Background())
	if err != nil {
		exitWithError("failed to reach daemon", err)
	}
	if resp.Error != nil {
		exitWithError(fmt.Sprintf("stop failed: %s", resp.Error.Message), nil)
	}
	fmt.Println("stopping")
}
