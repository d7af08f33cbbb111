package baseline

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestGenerateIsReproducible(t *testing.T) {
	a, err := Generate(DefaultDays, DefaultSeed)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate(DefaultDays, DefaultSeed)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("two baselines with the same seed differ")
	}
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	a, _ := Generate(DefaultDays, 1)
	b, _ := Generate(DefaultDays, 2)

	if reflect.DeepEqual(a, b) {
		t.Error("baselines with different seeds are identical")
	}
}

func TestGenerateShape(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		wantErr bool
	}{
		{name: "default", days: DefaultDays},
		{name: "single day", days: 1},
		{name: "zero days", days: 0, wantErr: true},
		{name: "negative days", days: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Generate(tt.days, DefaultSeed)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(set) != tt.days {
				t.Errorf("got %d rows, want %d", len(set), tt.days)
			}
		})
	}
}

func TestGenerateDistributions(t *testing.T) {
	// Large sample so the column moments settle near their targets.
	set, err := Generate(5000, DefaultSeed)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	cols := [4][]float64{}
	for _, row := range set.Matrix() {
		for j, v := range row {
			cols[j] = append(cols[j], v)
		}
	}

	want := []distribution{snoozeDelta, dailySteps, appSwitchRate, pickupCount}
	for j, d := range want {
		mean, std := stat.MeanStdDev(cols[j], nil)
		if math.Abs(mean-d.mean) > 0.1*d.stddev {
			t.Errorf("column %d mean = %.3f, want about %.3f", j, mean, d.mean)
		}
		if math.Abs(std-d.stddev) > 0.1*d.stddev {
			t.Errorf("column %d stddev = %.3f, want about %.3f", j, std, d.stddev)
		}
	}
}
