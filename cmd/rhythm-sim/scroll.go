package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/scroll"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/spf13/cobra"
)

var (
	scrollIntensity   float64
	scrollErraticness float64
	scrollHour        int
	scrollShowTrace   bool
)

type scrollOutput struct {
	Risk     int               `json:"risk" yaml:"risk"`
	HighRisk bool              `json:"high_risk" yaml:"high_risk"`
	Reasons  []string          `json:"reasons" yaml:"reasons"`
	Trace    types.ScrollTrace `json:"trace,omitempty" yaml:"trace,omitempty"`
}

var scrollCmd = &cobra.Command{
	Use:   "scroll",
	Short: "Generate a scroll trace and score it",
	Long: `Generate a one-minute scroll velocity trace and score it for
compulsive scrolling. Intensities at or above 300 px/s produce continuous
scrolling; lower values produce sparse taps.

Example:
  rhythm-sim scroll --intensity 800 --erraticness 20 --hour 23`,
	RunE: runScroll,
}

func init() {
	f := scrollCmd.Flags()
	f.Float64Var(&scrollIntensity, "intensity", 100, "Mean scroll velocity in px/s")
	f.Float64Var(&scrollErraticness, "erraticness", 5, "Velocity noise")
	f.IntVar(&scrollHour, "hour", time.Now().Hour(), "Hour of day the trace is evaluated at (0-23)")
	f.BoolVar(&scrollShowTrace, "trace", false, "Include the per-second velocities")
	rootCmd.AddCommand(scrollCmd)
}

func runScroll(cmd *cobra.Command, args []string) error {
	if scrollHour < 0 || scrollHour > 23 {
		return fmt.Errorf("--hour must be between 0 and 23, got %d", scrollHour)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	now := time.Now()
	clock := time.Date(now.Year(), now.Month(), now.Day(), scrollHour, 0, 0, 0, now.Location())
	trace, result, err := eng.Doomscroll(scrollIntensity, scrollErraticness, clock)
	if err != nil {
		return err
	}

	out := scrollOutput{
		Risk:     result.Risk,
		HighRisk: scroll.IsHighRisk(result.Risk),
		Reasons:  result.Reasons,
	}
	if scrollShowTrace {
		out.Trace = trace
	}

	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		label := "normal"
		if out.HighRisk {
			label = "HIGH RISK"
		}
		fmt.Fprintf(w, "Doomscroll risk: %d%% (%s)\n", out.Risk, label)
		if len(out.Reasons) > 0 {
			fmt.Fprintf(w, "Reasons:         %s\n", strings.Join(out.Reasons, ", "))
		}
		for _, p := range out.Trace {
			fmt.Fprintf(w, "%3ds %8.1f px/s\n", p.Second, p.Velocity)
		}
	})
}
