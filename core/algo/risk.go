package algo

import (
	"fmt"
	"math"

	"github.com/huangsam/cpkwatch/schema"
)

// Cpk bands and trend thresholds used by AssessRisk.
const (
	CpkCapable  = 1.00
	CpkLow      = 1.33
	CpkModerate = 1.67

	CpkDowntrendSlope = -0.02
	SigmaUptrendSlope = 0.02
)

// AssessRisk scores the capability risk of one test.
// Rules run in a fixed order and each one that fires appends its reason.
// A Cpk below 1.00 short-circuits to a score of 90.
func AssessRisk(in schema.RiskInput) schema.RiskAssessment {
	cpk, hasCpk := schema.Finite(in.Cpk)
	if hasCpk && cpk < CpkCapable {
		return schema.RiskAssessment{
			Score:   schema.HardRuleScore,
			Level:   schema.HighRisk,
			Reasons: []string{fmt.Sprintf("Hard rule: Cpk %.2f < %.2f", cpk, CpkCapable)},
		}
	}

	score := 0
	reasons := []string{}

	switch {
	case !hasCpk:
		score += 10
		reasons = append(reasons, "No Cpk value")
	case cpk < CpkLow:
		score += 35
		reasons = append(reasons, fmt.Sprintf("Low Cpk %.2f (< %.2f)", cpk, CpkLow))
	case cpk < CpkModerate:
		score += 15
		reasons = append(reasons, fmt.Sprintf("Moderate Cpk %.2f (< %.2f)", cpk, CpkModerate))
	}

	if p := ProbOutOfSpec(in.Mean, in.Sigma, in.LSL, in.USL); p != nil {
		if add := oosContribution(*p); add > 0 {
			score += add
			reasons = append(reasons, fmt.Sprintf("Estimated OOS probability %.2f%%", *p*100))
		}
	} else {
		score += 5
		reasons = append(reasons, "OOS probability cannot be computed (missing mean or sigma)")
	}

	sigma, hasSigma := schema.Finite(in.Sigma)
	sigmaMax, hasMax := schema.Finite(in.SigmaMax)
	overCeiling := hasSigma && hasMax && sigma > sigmaMax
	if overCeiling {
		score += 25
		reasons = append(reasons, fmt.Sprintf("Sigma %.3f exceeds ceiling %.3f", sigma, sigmaMax))
	}

	if s := Slope(in.CpkSeries); s < CpkDowntrendSlope {
		score += 10
		reasons = append(reasons, fmt.Sprintf("Cpk downtrend (slope %.3f/day)", s))
	}
	if s := Slope(in.SigmaSeries); s > SigmaUptrendSlope {
		score += 10
		reasons = append(reasons, fmt.Sprintf("Sigma upward trend (slope %.3f/day)", s))
	}

	score = min(max(score, 0), schema.MaxRiskScore)
	level := LevelForScore(score)

	if level == schema.LowRisk && hasCpk && cpk < CpkLow {
		level = schema.MediumRisk
	}
	if level == schema.LowRisk && overCeiling {
		level = schema.MediumRisk
	}

	return schema.RiskAssessment{Score: score, Level: level, Reasons: reasons}
}

// LevelForScore maps a clamped score to its level without floors.
func LevelForScore(score int) schema.RiskLevel {
	switch {
	case score >= schema.HighScoreThreshold:
		return schema.HighRisk
	case score >= schema.MediumScoreThreshold:
		return schema.MediumRisk
	default:
		return schema.LowRisk
	}
}

// oosContribution converts an out-of-spec probability into score points, capped at 50.
func oosContribution(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	pts := math.Round(200 * p)
	return int(min(max(pts, 0), 50))
}
