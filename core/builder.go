package core

import (
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// TestRiskBuilder builds the risk result of one test from its daily series.
type TestRiskBuilder struct {
	cfg    *contract.Config
	series schema.DailySeries
	result *schema.TestRiskResult
	input  schema.RiskInput
	ok     bool
}

// NewTestRiskBuilder is the starting point for assessing one test.
func NewTestRiskBuilder(cfg *contract.Config, series schema.DailySeries) *TestRiskBuilder {
	return &TestRiskBuilder{
		cfg:    cfg,
		series: series,
		result: &schema.TestRiskResult{TestName: series.TestName},
	}
}

// SelectLatest picks the most recent day with data as the day under assessment.
func (b *TestRiskBuilder) SelectLatest() *TestRiskBuilder {
	latest, ok := b.series.Latest()
	if !ok {
		return b
	}
	b.ok = true
	b.result.Day = latest.Day
	b.result.Station = latest.Station
	b.result.Cpk = latest.Cpk
	b.result.Mean = latest.Mean
	b.result.Sigma = latest.Sigma
	b.result.LSL = latest.LSL
	b.result.USL = latest.USL
	return b
}

// ApplySigmaCeiling attaches the configured sigma ceiling of the test.
func (b *TestRiskBuilder) ApplySigmaCeiling() *TestRiskBuilder {
	b.result.SigmaMax = b.cfg.SigmaCeiling(b.series.TestName)
	return b
}

// CalculateOutOfSpec estimates the out-of-spec probability of the latest day.
func (b *TestRiskBuilder) CalculateOutOfSpec() *TestRiskBuilder {
	r := b.result
	r.POut = algo.ProbOutOfSpec(r.Mean, r.Sigma, r.LSL, r.USL)
	return b
}

// CalculateTrends fits the Cpk and sigma slopes over the whole window.
func (b *TestRiskBuilder) CalculateTrends() *TestRiskBuilder {
	b.input.CpkSeries = b.series.CpkValues()
	b.input.SigmaSeries = b.series.SigmaValues()
	b.result.CpkSlope = algo.Slope(b.input.CpkSeries)
	b.result.SigmaSlope = algo.Slope(b.input.SigmaSeries)
	return b
}

// CalculateAssessment runs the risk engine over everything gathered so far.
func (b *TestRiskBuilder) CalculateAssessment() *TestRiskBuilder {
	r := b.result
	b.input.Cpk = r.Cpk
	b.input.Mean = r.Mean
	b.input.Sigma = r.Sigma
	b.input.LSL = r.LSL
	b.input.USL = r.USL
	b.input.SigmaMax = r.SigmaMax
	r.Assessment = algo.AssessRisk(b.input)
	return b
}

// Build returns the final result. It reports false when the window held no data for the test.
func (b *TestRiskBuilder) Build() (schema.TestRiskResult, bool) {
	return *b.result, b.ok
}

// analyzeTest runs every builder step for one test.
func analyzeTest(cfg *contract.Config, series schema.DailySeries) (schema.TestRiskResult, bool) {
	return NewTestRiskBuilder(cfg, series).
		SelectLatest().        // Day under assessment
		ApplySigmaCeiling().   // Per-test or global ceiling
		CalculateOutOfSpec().  // Normal tail mass
		CalculateTrends().     // Slopes over the window
		CalculateAssessment(). // Score, level and reasons
		Build()
}
