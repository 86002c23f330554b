// Package commands implements the sonido-tonic cobra commands.
package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonic/config"
	"github.com/RyanBlaney/sonido-tonic/logging"
)

// BuildInfo identifies the binary
type BuildInfo struct {
	Version string
	Commit  string
}

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool
}

// NewRootCommand assembles the command tree
func NewRootCommand(info BuildInfo) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "sonido-tonic",
		Short: "Estimate the musical key of audio and derive its chords",
		Long: `sonido-tonic estimates the key of an audio clip from its pitch-class
profile and lists the diatonic chords and common progressions of that key.

Commands:
  analyze   Estimate the key of an audio file
  chords    Show chords and progressions of a key
  serve     Run the HTTP API
  schema    Print the JSON Schema of analysis results`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: ./sonido.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newAnalyzeCommand(g))
	rootCmd.AddCommand(newChordsCommand(g))
	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}

// load reads the configuration and builds a stderr logger from it and the flags
func (g *globalFlags) load(stderr io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case g.verbose:
		level = logging.DebugLevel
	case g.quiet:
		level = logging.ErrorLevel
	}

	if g.noColor || color.NoColor {
		cfg.Logging.Color = false
	}

	return cfg, logging.NewWriterLogger(stderr, level), nil
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sonido-tonic %s (commit: %s)\n", info.Version, info.Commit)
		},
	}
}
