// Command config-test loads the same configuration from YAML and SQLite and
// reports where the two disagree.
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/rhythmanchor/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	mismatches := compare(yamlConfig, sqliteConfig)
	for _, m := range mismatches {
		fmt.Println(m)
	}

	if len(mismatches) > 0 {
		fmt.Printf("\n✗ %d section(s) differ\n", len(mismatches))
		os.Exit(1)
	}
	fmt.Println("\n✓ Configurations match")
}

// compare reports each top-level section whose contents differ
func compare(a, b *config.ConfigData) []string {
	sections := []struct {
		name string
		x, y any
	}{
		{"scoring", a.Scoring, b.Scoring},
		{"credentials", a.Credentials, b.Credentials},
		{"coach", a.Coach, b.Coach},
		{"events", a.Events, b.Events},
		{"controllers", a.Controllers, b.Controllers},
	}

	var out []string
	for _, s := range sections {
		if reflect.DeepEqual(s.x, s.y) {
			fmt.Printf("✓ %s matches\n", s.name)
			continue
		}
		out = append(out, fmt.Sprintf("✗ %s differs\n  YAML:   %+v\n  SQLite: %+v", s.name, s.x, s.y))
	}
	return out
}
