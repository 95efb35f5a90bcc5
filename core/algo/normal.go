// Package algo has the pure statistics behind cpkwatch: the normal CDF,
// out-of-spec probability, trend slopes, risk scoring and histogram binning.
package algo

import (
	"math"

	"github.com/huangsam/cpkwatch/schema"
)

// Abramowitz and Stegun 26.2.17 coefficients.
const (
	asP  = 0.2316419
	asB1 = 0.319381530
	asB2 = -0.356563782
	asB3 = 1.781477937
	asB4 = -1.821255978
	asB5 = 1.330274429
)

// NormalCDF approximates the standard normal cumulative probability at z.
// The absolute error is below 7.5e-8.
func NormalCDF(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	x := math.Abs(z)
	t := 1 / (1 + asP*x)
	poly := t * (asB1 + t*(asB2+t*(asB3+t*(asB4+t*asB5))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	upper := pdf * poly
	if z >= 0 {
		return 1 - upper
	}
	return upper
}

// ProbOutOfSpec estimates the probability that a sample from N(mu, sigma) falls
// outside the given limits. Each finite limit contributes its tail mass.
// It returns nil when mu or sigma is unusable or sigma <= 0.
// Inverted limits are not corrected, so the sum can exceed 1.
func ProbOutOfSpec(mu, sigma, lsl, usl *float64) *float64 {
	m, ok := schema.Finite(mu)
	if !ok {
		return nil
	}
	s, ok := schema.Finite(sigma)
	if !ok || s <= 0 {
		return nil
	}
	p := 0.0
	if l, ok := schema.Finite(lsl); ok {
		p += NormalCDF((l - m) / s)
	}
	if u, ok := schema.Finite(usl); ok {
		p += 1 - NormalCDF((u-m)/s)
	}
	return &p
}
