package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogflow/cog"
)

var (
	verbose    bool
	output     string
	scriptsDir string
)

var rootCmd = &cobra.Command{
	Use:   "cog",
	Short: "A minimalist workflow graph engine",
	Long: `Cog runs directed graphs of work units defined in YAML.

Each node prepares input from a shared store, computes, and routes to the
next node by the action it returns. Builtin node types cover routing,
templating, and data plumbing; Lua scripts extend the catalog.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&scriptsDir, "scripts-dir", "", "Lua scripts directory (default ~/.cog/scripts)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// cliLogger returns the logger flows run with: slog at debug when verbose,
// otherwise warnings and up.
func cliLogger() cog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return cog.NewSlogLogger(slog.New(handler))
}
