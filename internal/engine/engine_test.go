package engine

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/scroll"
	"github.com/chrissnell/rhythmanchor/internal/stability"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestSample(t *testing.T) {
	e := newTestEngine(t)

	s := e.Sample(DayInput{AlarmHour: 7, WakeHour: 9, Steps: 5000})
	if s.SnoozeDelta != 2 || s.DailySteps != 5000 {
		t.Errorf("sample = %+v", s)
	}
	if s.AppSwitchRate != 40 || s.PickupCount != 80 {
		t.Errorf("defaults not applied: %+v", s)
	}

	// An explicit zero is kept.
	zero := 0.0
	if s := e.Sample(DayInput{AppSwitchRate: &zero, PickupCount: &zero}); s.AppSwitchRate != 0 || s.PickupCount != 0 {
		t.Errorf("explicit zeros replaced: %+v", s)
	}
	switches := 55.0
	if s := e.Sample(DayInput{AppSwitchRate: &switches}); s.AppSwitchRate != 55 || s.PickupCount != 80 {
		t.Errorf("sample = %+v", s)
	}

	// Waking before the alarm is not negative snooze.
	if s := e.Sample(DayInput{AlarmHour: 8, WakeHour: 6}); s.SnoozeDelta != 0 {
		t.Errorf("SnoozeDelta = %v, want 0", s.SnoozeDelta)
	}
}

func TestEvaluate(t *testing.T) {
	e := newTestEngine(t)

	in := DayInput{
		AlarmHour:   7,
		WakeHour:    8,
		Steps:       7000,
		Symptoms:    []string{"Fatigue"},
		Lifestyle:   []string{"High Stress Work"},
		Intensity:   800,
		Erraticness: 20,
		Clock:       time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC),
	}

	report, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := stability.Calculate(report.AnomalyScore, in.Lifestyle, in.Symptoms, DefaultConfig().DefaultAge)
	if !reflect.DeepEqual(report.Stability, want) {
		t.Errorf("Stability = %+v, want %+v", report.Stability, want)
	}
	if report.Status != stability.Classify(report.Stability.FinalIndex) {
		t.Errorf("Status = %q", report.Status)
	}
	if len(report.Trace) != scroll.DefaultDuration {
		t.Errorf("trace length = %d", len(report.Trace))
	}
	// 800 px/s continuous scroll at 23:30 trips every rule.
	if report.Doomscroll.Risk != 100 || !report.HighRisk {
		t.Errorf("Doomscroll = %+v, HighRisk = %v", report.Doomscroll, report.HighRisk)
	}

	again, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !reflect.DeepEqual(report, again) {
		t.Error("repeated evaluation of the same day differs")
	}
}

func TestEvaluateCancelled(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx, DayInput{}); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaselineDays = 0
	if _, err := New(cfg, zap.NewNop().Sugar()); err == nil {
		t.Error("expected an error for zero baseline days")
	}
}
