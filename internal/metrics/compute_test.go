package metrics

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeDistribution_Empty(t *testing.T) {
	d := computeDistribution(nil)
	if d.Periods != 0 || d.Mean != 0 || d.MaxDrawdown != 0 {
		t.Errorf("expected zero distribution, got %+v", d)
	}
}

func TestComputeDistribution_Counts(t *testing.T) {
	d := computeDistribution([]float64{0.01, -0.02, 0, 0.03})

	if d.Periods != 4 {
		t.Errorf("expected 4 periods, got %d", d.Periods)
	}
	// Zero yields are neither positive nor negative
	if d.Positive != 2 || d.Negative != 1 {
		t.Errorf("expected 2 positive / 1 negative, got %d / %d", d.Positive, d.Negative)
	}
	if !near(d.PositiveRate, 0.5) {
		t.Errorf("expected positive rate 0.5, got %f", d.PositiveRate)
	}
	if !near(d.Min, -0.02) || !near(d.Max, 0.03) {
		t.Errorf("unexpected min/max %f/%f", d.Min, d.Max)
	}
	if !near(d.Mean, 0.005) {
		t.Errorf("expected mean 0.005, got %f", d.Mean)
	}
}

func TestComputePercentile_Interpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	if got := computePercentile(sorted, 0.50); !near(got, 3) {
		t.Errorf("median: expected 3, got %f", got)
	}
	// idx = 0.1 * 4 = 0.4 -> 1 + 0.4*(2-1)
	if got := computePercentile(sorted, 0.10); !near(got, 1.4) {
		t.Errorf("p10: expected 1.4, got %f", got)
	}
	if got := computePercentile([]float64{7}, 0.90); got != 7 {
		t.Errorf("single value: expected 7, got %f", got)
	}
}

func TestComputeStddev_SampleFormula(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)

	// sum of squares 32, n-1 = 7
	expected := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); !near(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
	if got := computeStddev([]float64{1}, 1); got != 0 {
		t.Errorf("single sample: expected 0, got %f", got)
	}
}

func TestComputeMaxDrawdown_Compounded(t *testing.T) {
	// growth: 1.1, 0.99, 1.089; peak 1.1 -> trough 0.99
	yields := []float64{0.10, -0.10, 0.10}

	expected := (1.1 - 0.99) / 1.1
	if got := computeMaxDrawdown(yields); !near(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
	if got := computeMaxDrawdown([]float64{0.01, 0.02}); got != 0 {
		t.Errorf("monotonic growth: expected 0, got %f", got)
	}
}

func TestComputeMaxLosingStreak(t *testing.T) {
	yields := []float64{-0.01, -0.02, 0.01, -0.01, -0.01, -0.03, 0}
	if got := computeMaxLosingStreak(yields); got != 3 {
		t.Errorf("expected streak 3, got %d", got)
	}
}
