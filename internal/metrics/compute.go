package metrics

import (
	"math"
	"sort"
)

// Distribution summarizes the per-period net yields of a hypervisor.
type Distribution struct {
	Periods         int     `json:"periods"`
	Positive        int     `json:"positive"`
	Negative        int     `json:"negative"`
	PositiveRate    float64 `json:"positive_rate"`
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	P10             float64 `json:"p10"`
	P25             float64 `json:"p25"`
	P75             float64 `json:"p75"`
	P90             float64 `json:"p90"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Stddev          float64 `json:"stddev"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxLosingStreak int     `json:"max_losing_streak"`
}

// computeDistribution calculates every statistic from yields.
// Yields must be in chronological order.
func computeDistribution(yields []float64) Distribution {
	n := len(yields)
	if n == 0 {
		return Distribution{}
	}

	positive := 0
	negative := 0
	for _, y := range yields {
		switch {
		case y > 0:
			positive++
		case y < 0:
			negative++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, yields)
	sort.Float64s(sorted)

	mean := computeMean(yields)

	return Distribution{
		Periods:         n,
		Positive:        positive,
		Negative:        negative,
		PositiveRate:    computeRate(positive, n),
		Mean:            mean,
		Median:          computePercentile(sorted, 0.50),
		P10:             computePercentile(sorted, 0.10),
		P25:             computePercentile(sorted, 0.25),
		P75:             computePercentile(sorted, 0.75),
		P90:             computePercentile(sorted, 0.90),
		Min:             sorted[0],
		Max:             sorted[n-1],
		Stddev:          computeStddev(yields, mean),
		MaxDrawdown:     computeMaxDrawdown(yields),
		MaxLosingStreak: computeMaxLosingStreak(yields),
	}
}

func computeRate(k, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(k) / float64(total)
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown is the worst peak-to-trough of the compounded growth
// of 1 through the period yields, as a ratio of the peak.
func computeMaxDrawdown(yields []float64) float64 {
	growth := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, y := range yields {
		growth *= 1 + y
		if growth > peak {
			peak = growth
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - growth) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxLosingStreak finds the longest run of yields < 0.
func computeMaxLosingStreak(yields []float64) int {
	maxStreak := 0
	current := 0
	for _, y := range yields {
		if y < 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
