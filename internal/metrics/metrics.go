package metrics

import (
	"math" // Inf for degenerate wealth gaps
	"sort" // Sorted wealth distributions
)

// Gini computes the Gini coefficient of a wealth distribution. Negative
// wealth is floored at zero before sorting.
func Gini(wealth []float64) float64 {
	sorted := sortedNonNegative(wealth)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	var sum, weighted float64
	for i, w := range sorted {
		sum += w
		weighted += float64(2*(i+1)-n-1) * w
	}
	denominator := float64(n) * sum
	if denominator == 0 {
		return 0
	}
	return weighted / denominator
}

// PovertyRate returns the fraction of members below the poverty line.
func PovertyRate(wealth []float64, povertyLine float64) float64 {
	if len(wealth) == 0 {
		return 0
	}
	below := 0
	for _, w := range wealth {
		if w < povertyLine {
			below++
		}
	}
	return float64(below) / float64(len(wealth))
}

// WealthGap returns the ratio of the mean wealth of the top 20% to the
// bottom 20%. Distributions too small to split return +Inf.
func WealthGap(wealth []float64) float64 {
	if len(wealth) < 5 {
		return math.Inf(1)
	}
	sorted := sortedNonNegative(wealth)
	n := len(sorted)
	topIdx := int(float64(n) * 0.8)
	bottomIdx := int(float64(n) * 0.2)
	topMean := mean(sorted[topIdx:])
	bottomMean := mean(sorted[:bottomIdx])
	if bottomMean <= 1e-6 {
		return math.Inf(1)
	}
	return topMean / bottomMean
}

// Bottom20Share returns the share of total wealth held by the bottom 20%.
func Bottom20Share(wealth []float64) float64 {
	if len(wealth) < 5 {
		return 0
	}
	sorted := sortedNonNegative(wealth)
	var total float64
	for _, w := range sorted {
		total += w
	}
	if total <= 1e-6 {
		return 0
	}
	bottomIdx := int(float64(len(sorted)) * 0.2)
	var bottom float64
	for _, w := range sorted[:bottomIdx] {
		bottom += w
	}
	return bottom / total
}

// Quintiles returns the 20th, 40th, 60th and 80th percentiles.
func Quintiles(wealth []float64) []float64 {
	return Percentiles(wealth, []float64{20, 40, 60, 80})
}

// Percentiles computes linearly interpolated percentiles of the
// distribution, matching numpy's default method.
func Percentiles(wealth []float64, ps []float64) []float64 {
	out := make([]float64, len(ps))
	if len(wealth) == 0 {
		return out
	}
	sorted := append([]float64(nil), wealth...)
	sort.Float64s(sorted)
	for i, p := range ps {
		out[i] = percentileSorted(sorted, p)
	}
	return out
}

// Percentile computes one linearly interpolated percentile.
func Percentile(wealth []float64, p float64) float64 {
	if len(wealth) == 0 {
		return 0
	}
	sorted := append([]float64(nil), wealth...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(wealth []float64) float64 {
	return mean(wealth)
}

// Median returns the 50th percentile.
func Median(wealth []float64) float64 {
	return Percentile(wealth, 50)
}

// Sum returns the total of the distribution.
func Sum(wealth []float64) float64 {
	var total float64
	for _, w := range wealth {
		total += w
	}
	return total
}

// StdDev returns the population standard deviation.
func StdDev(wealth []float64) float64 {
	if len(wealth) == 0 {
		return 0
	}
	m := mean(wealth)
	var variance float64
	for _, w := range wealth {
		variance += (w - m) * (w - m)
	}
	return math.Sqrt(variance / float64(len(wealth)))
}

// Trend returns the relative change from prev to current. A zero previous
// value collapses to the sign of the movement.
func Trend(prev, current float64) float64 {
	if math.Abs(prev) > 1e-6 {
		return (current - prev) / math.Abs(prev)
	}
	switch {
	case current > prev:
		return 1
	case current < prev:
		return -1
	default:
		return 0
	}
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func sortedNonNegative(wealth []float64) []float64 {
	sorted := make([]float64, len(wealth))
	for i, w := range wealth {
		if w < 0 {
			w = 0
		}
		sorted[i] = w
	}
	sort.Float64s(sorted)
	return sorted
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
