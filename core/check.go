package core

import (
	"errors"

	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/schema"
)

// ErrCheckFailed is returned by ExecuteRiskCheck when any test reaches the fail level.
var ErrCheckFailed = errors.New("risk check failed")

// BuildCheckResult gates results on a minimum level. Every result
// at or above failLevel is a violation, ranked by score.
func BuildCheckResult(results []schema.TestRiskResult, failLevel schema.RiskLevel) schema.CheckResult {
	var violations []schema.TestRiskResult
	for _, r := range results {
		if r.Assessment.Level.AtLeast(failLevel) {
			violations = append(violations, r)
		}
	}
	ranked := algo.RankTestRisks(violations, 0)
	return schema.CheckResult{
		FailLevel:  failLevel,
		Total:      len(results),
		Passed:     len(ranked) == 0,
		Violations: schema.EnrichTestRisks(ranked),
	}
}
