// rhythmanchor-mcp serves the scoring engine over MCP on stdio.
//
// Usage:
//
//	rhythmanchor-mcp [-seed 42]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/mcptools"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	seed := flag.Uint64("seed", engine.DefaultConfig().Forest.Seed, "Seed for the baseline and the anomaly model")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rhythmanchor-mcp %s\n", mcptools.Version)
		os.Exit(0)
	}

	if err := run(*seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(seed uint64) error {
	// stdout carries the MCP transport, so logs go to stderr
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer zl.Sync()

	ecfg := engine.DefaultConfig()
	ecfg.Forest.Seed = seed
	eng, err := engine.New(ecfg, zl.Sugar())
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	return server.ServeStdio(mcptools.NewServer(eng))
}
