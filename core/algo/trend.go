package algo

import "github.com/huangsam/cpkwatch/schema"

// Slope returns the least-squares slope of a series against its index.
// Gaps keep their index and are skipped. Fewer than two usable points yield 0.
func Slope(series []*float64) float64 {
	var n, sumX, sumY, sumXY, sumXX float64
	for i, v := range series {
		y, ok := schema.Finite(v)
		if !ok {
			continue
		}
		x := float64(i)
		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	if n < 2 {
		return 0
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
