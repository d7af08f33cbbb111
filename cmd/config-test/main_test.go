package main

import (
	"testing"

	"github.com/chrissnell/rhythmanchor/pkg/config"
)

func TestCompare(t *testing.T) {
	a := &config.ConfigData{Scoring: config.ScoringData{Seed: 42}, Credentials: config.CredentialsData{Backend: "memory"}}
	b := &config.ConfigData{Scoring: config.ScoringData{Seed: 42}, Credentials: config.CredentialsData{Backend: "memory"}}

	if got := compare(a, b); len(got) != 0 {
		t.Errorf("identical configs reported %v", got)
	}

	b.Scoring.Seed = 7
	b.Controllers = []config.ControllerData{{Type: "rest"}}
	if got := compare(a, b); len(got) != 2 {
		t.Errorf("got %d mismatches, want 2: %v", len(got), got)
	}
}
