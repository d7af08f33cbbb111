package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chrissnell/rhythmanchor/internal/stability"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/spf13/cobra"
)

var (
	scoreSample    types.BehavioralSample
	scoreLifestyle []string
	scoreSymptoms  []string
	scoreAge       int
)

type scoreOutput struct {
	Sample       types.BehavioralSample `json:"sample" yaml:"sample"`
	AnomalyScore float64                `json:"anomaly_score" yaml:"anomaly_score"`
	BaseIndex    int                    `json:"base_index" yaml:"base_index"`
	FinalIndex   int                    `json:"final_index" yaml:"final_index"`
	Status       stability.Status       `json:"status" yaml:"status"`
	Reasons      []string               `json:"reasons" yaml:"reasons"`
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one day's behavior",
	Long: `Score a behavioral sample against the baseline and apply the
lifestyle, symptom and age penalties.

Example:
  rhythm-sim score --snooze 4 --steps 500 --symptom Fatigue --lifestyle Smoking`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64Var(&scoreSample.SnoozeDelta, "snooze", 0.5, "Hours between alarm and wake-up")
	f.Float64Var(&scoreSample.DailySteps, "steps", 7000, "Daily step count")
	f.Float64Var(&scoreSample.AppSwitchRate, "switches", 40, "App switches per unit time")
	f.Float64Var(&scoreSample.PickupCount, "pickups", 80, "Phone pickups")
	f.StringSliceVar(&scoreLifestyle, "lifestyle", nil, "Lifestyle factors (Smoking, High Stress Work, Regular Alcohol)")
	f.StringSliceVar(&scoreSymptoms, "symptom", nil, "Reported symptoms (repeatable)")
	f.IntVar(&scoreAge, "age", 25, "Age in years")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	score, result, err := eng.Stability(scoreSample, scoreLifestyle, scoreSymptoms, scoreAge)
	if err != nil {
		return err
	}

	out := scoreOutput{
		Sample:       scoreSample,
		AnomalyScore: score,
		BaseIndex:    result.BaseIndex,
		FinalIndex:   result.FinalIndex,
		Status:       stability.Classify(result.FinalIndex),
		Reasons:      result.Reasons,
	}
	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		fmt.Fprintf(w, "Anomaly score:   %+.4f\n", out.AnomalyScore)
		fmt.Fprintf(w, "Base index:      %d\n", out.BaseIndex)
		fmt.Fprintf(w, "Stability index: %d (%s)\n", out.FinalIndex, out.Status)
		if len(out.Reasons) > 0 {
			fmt.Fprintf(w, "Reasons:         %s\n", strings.Join(out.Reasons, ", "))
		}
	})
}
