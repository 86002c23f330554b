// Package main provides the entry point for the sonido-tonic CLI.
package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-tonic/cmd/sonido-tonic/commands"
)

// Set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := commands.NewRootCommand(commands.BuildInfo{Version: version, Commit: commit})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
