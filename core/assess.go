package core

import (
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/schema"
)

// BuildAssessmentReport assesses a hand-supplied input.
// fallbackSigmaMax applies when the input carries no ceiling.
func BuildAssessmentReport(in schema.RiskInput, fallbackSigmaMax *float64) schema.AssessmentReport {
	if in.SigmaMax == nil {
		in.SigmaMax = fallbackSigmaMax
	}
	return schema.AssessmentReport{
		Input:      in,
		POut:       algo.ProbOutOfSpec(in.Mean, in.Sigma, in.LSL, in.USL),
		CpkSlope:   algo.Slope(in.CpkSeries),
		SigmaSlope: algo.Slope(in.SigmaSeries),
		Assessment: algo.AssessRisk(in),
	}
}
