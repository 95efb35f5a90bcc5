// Package core has core logic for fetching, assessing and ranking test risks.
package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/outwriter"
	"github.com/huangsam/cpkwatch/schema"
)

// ExecutorFunc defines the function signature for executing different analysis modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error

// printHeader prints the analysis header for table output.
func printHeader(cfg *contract.Config) {
	if cfg.Output == schema.TextOut {
		outwriter.LogAnalysisHeader(os.Stdout, cfg)
	}
}

// ExecuteRiskReport ranks the riskiest tests of the window and prints them.
// It serves as the main entry point for the 'risk' command.
func ExecuteRiskReport(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error {
	start := time.Now()
	printHeader(cfg)
	results, err := GetTestRiskResults(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteRiskResults(schema.EnrichTestRisks(results), cfg, time.Since(start))
}

// ExecuteRiskCheck runs the check command for CI/CD gating.
// It returns ErrCheckFailed when any test is at or above the configured fail level.
func ExecuteRiskCheck(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error {
	start := time.Now()
	printHeader(cfg)
	results, err := assessAllTests(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}
	check := BuildCheckResult(results, cfg.FailLevel)
	if err := outwriter.WriteCheckResult(check, cfg, time.Since(start)); err != nil {
		return err
	}
	if !check.Passed {
		return fmt.Errorf("%w: %d violation(s) at or above %s", ErrCheckFailed, len(check.Violations), check.FailLevel)
	}
	return nil
}

// ExecuteHistogram bins the latest samples of the test named by --test.
func ExecuteHistogram(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error {
	if cfg.TestFilter == "" {
		return ErrTestRequired
	}
	records, err := agg.FetchCalibration(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}
	selected := selectTest(records, cfg.TestFilter, cfg.Station)
	if len(selected) == 0 {
		return fmt.Errorf("test %s not found in the selected window", cfg.TestFilter)
	}
	report, err := BuildHistogramReport(strings.TrimSpace(selected[0].TestName), selected, cfg.Bins)
	if err != nil {
		return err
	}
	return outwriter.WriteHistogram(report, cfg)
}

// ExecuteFailures prints the daily failure table per station and the top testers.
func ExecuteFailures(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error {
	start := time.Now()
	printHeader(cfg)
	records, err := agg.FetchFailures(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteFailures(BuildFailureReport(cfg, records), cfg, time.Since(start))
}

// ExecuteAssess scores a hand-supplied input without talking to the backend.
func ExecuteAssess(_ context.Context, cfg *contract.Config, in schema.RiskInput) error {
	return outwriter.WriteAssessment(BuildAssessmentReport(in, cfg.SigmaMax), cfg)
}
