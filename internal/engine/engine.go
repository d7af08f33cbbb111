// Package engine wires the baseline, the anomaly model and the rule-based
// scorers into a single evaluator for a simulated day.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/anomaly"
	"github.com/chrissnell/rhythmanchor/internal/baseline"
	"github.com/chrissnell/rhythmanchor/internal/scroll"
	"github.com/chrissnell/rhythmanchor/internal/stability"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

// Config holds everything the engine needs to build its model
type Config struct {
	BaselineDays    int
	Forest          anomaly.Params
	ScrollSeed      uint64
	ScrollDuration  int
	DefaultAge      int
	DefaultSwitches float64
	DefaultPickups  float64
}

// DefaultConfig returns the configuration the stability index was calibrated with.
func DefaultConfig() Config {
	return Config{
		BaselineDays:    baseline.DefaultDays,
		Forest:          anomaly.DefaultParams(),
		ScrollSeed:      scroll.DefaultSeed,
		ScrollDuration:  scroll.DefaultDuration,
		DefaultAge:      config.DefaultAge,
		DefaultSwitches: config.DefaultAppSwitchRate,
		DefaultPickups:  config.DefaultPickupCount,
	}
}

// ConfigFromScoring converts the scoring section of the configuration.
// Defaults must already be applied.
func ConfigFromScoring(s config.ScoringData) Config {
	return Config{
		BaselineDays: s.BaselineDays,
		Forest: anomaly.Params{
			Trees:         s.Trees,
			Contamination: s.Contamination,
			MaxSamples:    s.MaxSamples,
			Seed:          s.Seed,
		},
		ScrollSeed:      s.ScrollSeed,
		ScrollDuration:  s.ScrollDuration,
		DefaultAge:      s.DefaultAge,
		DefaultSwitches: s.DefaultSwitches,
		DefaultPickups:  s.DefaultPickups,
	}
}

// Engine evaluates simulated days. The fitted model is never modified after
// New returns, so an Engine is safe for concurrent use.
type Engine struct {
	cfg    Config
	model  *anomaly.IsolationForest
	logger *zap.SugaredLogger
}

// New generates the baseline and fits the anomaly model.
func New(cfg Config, logger *zap.SugaredLogger) (*Engine, error) {
	start := time.Now()

	set, err := baseline.Generate(cfg.BaselineDays, cfg.Forest.Seed)
	if err != nil {
		return nil, fmt.Errorf("error generating baseline: %w", err)
	}

	model, err := anomaly.Fit(set, cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("error fitting anomaly model: %w", err)
	}

	logger.Infow("anomaly model fitted",
		"baseline_days", len(set),
		"trees", cfg.Forest.Trees,
		"contamination", cfg.Forest.Contamination,
		"seed", cfg.Forest.Seed,
		"offset", model.Offset(),
		"elapsed", time.Since(start),
	)

	return &Engine{cfg: cfg, model: model, logger: logger}, nil
}

// DayInput is what a user reports for one simulated day
type DayInput struct {
	AlarmHour     int       `json:"alarm_hour"`
	WakeHour      int       `json:"wake_hour"`
	Steps         float64   `json:"steps"`
	AppSwitchRate *float64  `json:"app_switch_rate,omitempty"`
	PickupCount   *float64  `json:"pickup_count,omitempty"`
	Symptoms      []string  `json:"symptoms"`
	Lifestyle     []string  `json:"lifestyle"`
	Age           int       `json:"age,omitempty"`
	Intensity     float64   `json:"scroll_intensity"`
	Erraticness   float64   `json:"scroll_erraticness"`
	Clock         time.Time `json:"clock"`
}

// DayReport is the full evaluation of a DayInput
type DayReport struct {
	Sample       types.BehavioralSample `json:"sample"`
	AnomalyScore float64                `json:"anomaly_score"`
	Stability    types.StabilityResult  `json:"stability"`
	Status       stability.Status       `json:"status"`
	Doomscroll   types.DoomscrollResult `json:"doomscroll"`
	HighRisk     bool                   `json:"high_risk"`
	Trace        types.ScrollTrace      `json:"trace"`
}

// Sample builds the behavioral sample for a day. The snooze delta is the
// number of hours between alarm and wake-up and never negative. App switches
// and pickups fall back to the configured defaults only when left out.
func (e *Engine) Sample(in DayInput) types.BehavioralSample {
	s := types.BehavioralSample{
		SnoozeDelta:   float64(max(0, in.WakeHour-in.AlarmHour)),
		DailySteps:    in.Steps,
		AppSwitchRate: e.cfg.DefaultSwitches,
		PickupCount:   e.cfg.DefaultPickups,
	}
	if in.AppSwitchRate != nil {
		s.AppSwitchRate = *in.AppSwitchRate
	}
	if in.PickupCount != nil {
		s.PickupCount = *in.PickupCount
	}
	return s
}

// Score returns the anomaly score of a sample.
func (e *Engine) Score(sample types.BehavioralSample) (float64, error) {
	return e.model.Score(sample)
}

// Stability scores a sample and applies the lifestyle and symptom penalties.
func (e *Engine) Stability(sample types.BehavioralSample, lifestyle, symptoms []string, age int) (float64, types.StabilityResult, error) {
	score, err := e.model.Score(sample)
	if err != nil {
		return 0, types.StabilityResult{}, fmt.Errorf("error scoring sample: %w", err)
	}
	if age == 0 {
		age = e.cfg.DefaultAge
	}
	return score, stability.Calculate(score, lifestyle, symptoms, age), nil
}

// Doomscroll generates a trace from the scroll knobs and scores it.
func (e *Engine) Doomscroll(intensity, erraticness float64, clock time.Time) (types.ScrollTrace, types.DoomscrollResult, error) {
	trace, err := scroll.GeneratePattern(intensity, erraticness, e.cfg.ScrollDuration, e.cfg.ScrollSeed)
	if err != nil {
		return nil, types.DoomscrollResult{}, err
	}
	return trace, scroll.DetectDoomscrolling(trace, clock), nil
}

// Evaluate runs both the stability and the doomscroll pipelines for a day.
func (e *Engine) Evaluate(ctx context.Context, in DayInput) (DayReport, error) {
	if err := ctx.Err(); err != nil {
		return DayReport{}, err
	}

	sample := e.Sample(in)
	score, result, err := e.Stability(sample, in.Lifestyle, in.Symptoms, in.Age)
	if err != nil {
		return DayReport{}, err
	}

	trace, doom, err := e.Doomscroll(in.Intensity, in.Erraticness, in.Clock)
	if err != nil {
		return DayReport{}, fmt.Errorf("error generating scroll pattern: %w", err)
	}

	e.logger.Debugw("day evaluated",
		"anomaly_score", score,
		"stability", result.FinalIndex,
		"doomscroll_risk", doom.Risk,
	)

	return DayReport{
		Sample:       sample,
		AnomalyScore: score,
		Stability:    result,
		Status:       stability.Classify(result.FinalIndex),
		Doomscroll:   doom,
		HighRisk:     scroll.IsHighRisk(doom.Risk),
		Trace:        trace,
	}, nil
}
