// Package main is the entry point for the arrowflow pipeline engine.
package main

import (
	"fmt"
	"os"

	"github.com/firestige/arrowflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
