package algo

import (
	"math"
	"slices"

	"github.com/huangsam/cpkwatch/schema"
)

// Mean returns the arithmetic average, or 0 for no values.
// The result is finite whenever every value is finite.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}
	// The plain sum overflowed; scaled terms keep every partial sum within the input range.
	mean := 0.0
	for _, v := range values {
		mean += v / n
	}
	return mean
}

// Median returns the lower median. For an even count it picks the lower of
// the two middle values rather than averaging them.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Percentile returns the nearest-rank percentile sorted[floor(p/100*(n-1))].
// p is clamped to [0, 100]. The input is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return percentileSorted(sortedCopy(values), p)
}

// Summarize computes count, range, mean, median, P5 and P95 in one pass over a sorted copy.
// It returns false when there are no values.
func Summarize(values []float64) (schema.Summary, bool) {
	if len(values) == 0 {
		return schema.Summary{}, false
	}
	sorted := sortedCopy(values)
	return schema.Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   Mean(sorted),
		Median: percentileSorted(sorted, 50),
		P5:     percentileSorted(sorted, 5),
		P95:    percentileSorted(sorted, 95),
	}, true
}

func sortedCopy(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}

func percentileSorted(sorted []float64, p float64) float64 {
	if math.IsNaN(p) {
		p = 0
	}
	p = min(max(p, 0), 100)
	idx := int(math.Floor(p / 100 * float64(len(sorted)-1)))
	return sorted[idx]
}
