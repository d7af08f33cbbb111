package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FeatureCount is the number of behavioral features fed to the anomaly model.
const FeatureCount = 4

// ErrFeatureShape is returned when a feature vector does not have the
// shape the anomaly model was fitted on.
var ErrFeatureShape = errors.New("feature vector has the wrong shape")

// BehavioralSample is one day of behavioral metrics. The same record is used
// for synthetic baseline rows and for the "today" sample that gets scored.
type BehavioralSample struct {
	SnoozeDelta   float64 `json:"snooze_delta"`    // hours between alarm and unlock
	DailySteps    float64 `json:"daily_steps"`     // step count
	AppSwitchRate float64 `json:"app_switch_rate"` // app switches per unit time
	PickupCount   float64 `json:"pickup_count"`    // phone pickups
}

// Features returns the sample as a feature vector in model column order.
func (s BehavioralSample) Features() []float64 {
	return []float64{s.SnoozeDelta, s.DailySteps, s.AppSwitchRate, s.PickupCount}
}

// SampleFromFeatures builds a BehavioralSample from a validated feature vector.
func SampleFromFeatures(f []float64) (BehavioralSample, error) {
	if err := ValidateFeatures(f); err != nil {
		return BehavioralSample{}, err
	}
	return BehavioralSample{
		SnoozeDelta:   f[0],
		DailySteps:    f[1],
		AppSwitchRate: f[2],
		PickupCount:   f[3],
	}, nil
}

// ValidateFeatures checks that f has exactly FeatureCount finite values.
func ValidateFeatures(f []float64) error {
	if len(f) != FeatureCount {
		return fmt.Errorf("%w: got %d features, want %d (snooze_delta, daily_steps, app_switch_rate, pickup_count)",
			ErrFeatureShape, len(f), FeatureCount)
	}
	for i, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %d is not a finite number", ErrFeatureShape, i)
		}
	}
	return nil
}

// BaselineSet is the synthetic reference table the anomaly model is fitted on.
// It is never modified after generation.
type BaselineSet []BehavioralSample

// Matrix returns the baseline as row-major feature vectors.
func (b BaselineSet) Matrix() [][]float64 {
	rows := make([][]float64, len(b))
	for i, s := range b {
		rows[i] = s.Features()
	}
	return rows
}

// StabilityResult is the output of the stability calculator
type StabilityResult struct {
	FinalIndex int      `json:"final_index"`
	BaseIndex  int      `json:"base_index"`
	Reasons    []string `json:"reasons"`
}

// ScrollPoint is the scroll velocity observed during one second
type ScrollPoint struct {
	Second   int     `json:"second"`
	Velocity float64 `json:"velocity"` // px/s
}

// ScrollTrace is a per-second scroll velocity series
type ScrollTrace []ScrollPoint

// Velocities returns the velocity column of the trace.
func (t ScrollTrace) Velocities() []float64 {
	v := make([]float64, len(t))
	for i, p := range t {
		v[i] = p.Velocity
	}
	return v
}

// DoomscrollResult is the output of the doomscroll risk detector
type DoomscrollResult struct {
	Risk    int      `json:"risk"`
	Reasons []string `json:"reasons"`
}

// HistoryEntry is one saved day in a session's trend log
type HistoryEntry struct {
	Day            string    `json:"day"`
	StabilityIndex int       `json:"stability_index"`
	SavedAt        time.Time `json:"saved_at"`
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single message in a coaching conversation
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UserRecord is a credential-store entry. Password is stored as entered.
type UserRecord struct {
	Username       string `json:"username"`
	Password       string `json:"-"`
	FullName       string `json:"full_name"`
	Age            int    `json:"age"`
	Email          string `json:"email,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}
