// Package stability turns an anomaly score plus self-reported lifestyle and
// symptom information into a bounded stability index.
package stability

import (
	"fmt"
	"math"

	"github.com/chrissnell/rhythmanchor/internal/types"
)

// The anomaly score is rescaled with (score + scoreOffset) * scoreScale.
// Both constants are calibrated against the forest's usual [-0.5, 0.5] range.
const (
	scoreOffset = 0.5
	scoreScale  = 100

	// SeniorAge is the age above which the silent age penalty applies
	SeniorAge     = 60
	seniorPenalty = 2

	defaultSymptomWeight = 5
)

// Lifestyle factor labels
const (
	FactorSmoking        = "Smoking"
	FactorHighStressWork = "High Stress Work"
	FactorRegularAlcohol = "Regular Alcohol"
)

type lifestyleRule struct {
	label   string
	penalty int
	reason  string
}

// Checked in this order; the order determines the order of reasons.
var lifestyleRules = []lifestyleRule{
	{label: FactorSmoking, penalty: 5, reason: "Lifestyle (Smoking)"},
	{label: FactorHighStressWork, penalty: 5, reason: "High Stress Environment"},
	{label: FactorRegularAlcohol, penalty: 5, reason: "Alcohol Consumption"},
}

var symptomWeights = map[string]int{
	"Fatigue":      10,
	"Insomnia":     15,
	"Anxiety":      15,
	"Palpitations": 20,
	"Headache":     5,
}

// SymptomWeight returns the penalty for a symptom. Unknown symptoms get the
// default weight.
func SymptomWeight(symptom string) int {
	if w, ok := symptomWeights[symptom]; ok {
		return w
	}
	return defaultSymptomWeight
}

// BaseIndex rescales an anomaly score onto 0..100.
func BaseIndex(aiScore float64) int {
	return clamp(int(math.Round((aiScore + scoreOffset) * scoreScale)))
}

// Calculate combines the anomaly score with rule-based penalties.
//
// Lifestyle factors match exact labels only and count once each regardless
// of repetition. Every symptom
// entry is penalized, so duplicates count twice. Age over SeniorAge adds a
// penalty without a reason string.
func Calculate(aiScore float64, lifestyle, symptoms []string, age int) types.StabilityResult {
	base := BaseIndex(aiScore)
	penalties := 0
	reasons := []string{}

	present := make(map[string]bool, len(lifestyle))
	for _, f := range lifestyle {
		present[f] = true
	}
	for _, rule := range lifestyleRules {
		if present[rule.label] {
			penalties += rule.penalty
			reasons = append(reasons, rule.reason)
		}
	}

	if age > SeniorAge {
		penalties += seniorPenalty
	}

	for _, s := range symptoms {
		penalties += SymptomWeight(s)
		reasons = append(reasons, fmt.Sprintf("Symptom (%s)", s))
	}

	return types.StabilityResult{
		FinalIndex: clamp(base - penalties),
		BaseIndex:  base,
		Reasons:    reasons,
	}
}

// Status is the presentation band for a stability index
type Status string

const (
	StatusRisk      Status = "Risk Detected"
	StatusDeviation Status = "Minor Deviation"
	StatusStable    Status = "Stable Rhythm"
)

// Classify maps a final index onto its status band.
func Classify(index int) Status {
	switch {
	case index < 50:
		return StatusRisk
	case index < 80:
		return StatusDeviation
	default:
		return StatusStable
	}
}

func clamp(v int) int {
	return max(0, min(100, v))
}
