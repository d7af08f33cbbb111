package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chrissnell/rhythmanchor/internal/baseline"
	"github.com/spf13/cobra"
)

var baselineDays int

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Print the synthetic healthy baseline",
	Long: `Print the synthetic baseline the anomaly model is fitted on.

The same seed always produces the same rows.

Example:
  rhythm-sim baseline --days 10 --seed 42`,
	RunE: runBaseline,
}

func init() {
	baselineCmd.Flags().IntVar(&baselineDays, "days", baseline.DefaultDays, "Number of baseline days")
	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, args []string) error {
	set, err := baseline.Generate(baselineDays, seed)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), set, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DAY\tSNOOZE\tSTEPS\tSWITCHES\tPICKUPS")
		for i, s := range set {
			fmt.Fprintf(tw, "%d\t%.2f\t%.0f\t%.1f\t%.1f\n", i+1, s.SnoozeDelta, s.DailySteps, s.AppSwitchRate, s.PickupCount)
		}
		tw.Flush()
	})
}
