package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	output  string
	seed    uint64
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rhythm-sim",
	Short: "Run the rhythm scoring pipeline from the command line",
	Long: `rhythm-sim drives the same scoring engine as the rhythmanchor server
without starting it.

Commands:
  baseline  Print the synthetic healthy baseline
  score     Score one day's behavior and apply the stability penalties
  scroll    Generate a scroll trace and score it for doomscrolling`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (json, table, yaml)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", engine.DefaultConfig().Forest.Seed, "Seed for the baseline and the anomaly model")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
}

// newEngine builds an engine with the default configuration and the global seed
func newEngine() (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	cfg.Forest.Seed = seed

	logger := zap.NewNop().Sugar()
	if verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = zl.Sugar()
	}
	return engine.New(cfg, logger)
}

// render writes v as JSON or YAML, or calls table for the default format
func render(w io.Writer, v any, table func(io.Writer)) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "table":
		table(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json, table or yaml)", output)
	}
}
