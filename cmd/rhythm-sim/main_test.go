package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flags are package globals; restore the defaults the tests rely on.
	output = "table"
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestBaselineJSON(t *testing.T) {
	out, err := run(t, "baseline", "--days", "5", "-o", "json")
	if err != nil {
		t.Fatalf("baseline error = %v", err)
	}

	var set types.BaselineSet
	if err := json.Unmarshal([]byte(out), &set); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(set) != 5 {
		t.Errorf("got %d rows", len(set))
	}
}

func TestBaselineTable(t *testing.T) {
	out, err := run(t, "baseline", "--days", "3")
	if err != nil {
		t.Fatalf("baseline error = %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 4 {
		t.Errorf("got %d lines:\n%s", len(lines), out)
	}
}

func TestScoreYAML(t *testing.T) {
	out, err := run(t, "score", "--snooze", "4", "--steps", "500", "--symptom", "Fatigue", "--lifestyle", "Smoking", "-o", "yaml")
	if err != nil {
		t.Fatalf("score error = %v", err)
	}

	var got scoreOutput
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.FinalIndex != max(0, got.BaseIndex-15) {
		t.Errorf("penalties not applied: %+v", got)
	}
	if len(got.Reasons) != 2 {
		t.Errorf("reasons = %v", got.Reasons)
	}
}

func TestScrollLateNight(t *testing.T) {
	out, err := run(t, "scroll", "--intensity", "800", "--erraticness", "20", "--hour", "23", "-o", "json")
	if err != nil {
		t.Fatalf("scroll error = %v", err)
	}

	var got scrollOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Risk != 100 || !got.HighRisk {
		t.Errorf("got %+v", got)
	}
}

func TestBadInput(t *testing.T) {
	if _, err := run(t, "scroll", "--hour", "25"); err == nil {
		t.Error("expected an error for hour 25")
	}
	if _, err := run(t, "baseline", "--days", "0"); err == nil {
		t.Error("expected an error for zero days")
	}
	if _, err := run(t, "baseline", "--days", "2", "-o", "xml"); err == nil {
		t.Error("expected an error for an unknown output format")
	}
}
