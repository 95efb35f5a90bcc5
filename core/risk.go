package core

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/m-mizutani/ctxlog"
)

// ErrNoTests is returned when the window holds no calibration data for the selected tests.
var ErrNoTests = errors.New("no calibration data found for the selected tests")

// GetTestRiskResults assesses every selected test and returns the ranked top results.
func GetTestRiskResults(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) ([]schema.TestRiskResult, error) {
	results, err := assessAllTests(ctx, cfg, src, mgr)
	if err != nil {
		return nil, err
	}
	return algo.RankTestRisks(results, cfg.ResultLimit), nil
}

// assessAllTests fetches the window, builds one series per test and assesses each one.
// Every assessment is recorded when analysis tracking is configured.
func assessAllTests(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) ([]schema.TestRiskResult, error) {
	// --- 1. Fetch Phase (with caching) ---
	records, err := agg.FetchCalibration(ctx, cfg, src, mgr)
	if err != nil {
		return nil, err
	}

	// --- 2. Filtering and Grouping ---
	names, groups := agg.GroupByTest(agg.FilterCalibration(records, cfg.TestFilter, cfg.Station))
	if len(names) == 0 {
		return nil, ErrNoTests
	}

	// --- 3. Begin Analysis Tracking (if configured) ---
	tracker := beginTracking(ctx, cfg, mgr)

	// --- 4. Core Analysis ---
	days := agg.DayRange(cfg.StartTime, cfg.EndTime)
	results := analyzeTests(cfg, names, groups, days)

	// --- 5. Record and End Analysis Tracking ---
	tracker.record(ctx, results)
	if len(results) == 0 {
		return nil, ErrNoTests
	}
	return results, nil
}

// analyzeTests assesses all tests in parallel using a worker pool.
// Tests without any data inside the window are dropped.
func analyzeTests(cfg *contract.Config, names []string, groups map[string][]schema.CalibrationRecord, days []string) []schema.TestRiskResult {
	workers := min(runtime.GOMAXPROCS(0), len(names))
	nameCh := make(chan string, len(names))
	resultCh := make(chan schema.TestRiskResult, len(names))
	var wg sync.WaitGroup

	for range workers {
		wg.Go(func() {
			for name := range nameCh {
				series := agg.BuildDailySeries(name, groups[name], days)
				if result, ok := analyzeTest(cfg, series); ok {
					resultCh <- result
				}
			}
		})
	}

	for _, name := range names {
		nameCh <- name
	}
	close(nameCh)

	wg.Wait()
	close(resultCh)

	results := make([]schema.TestRiskResult, 0, len(names))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

// analysisTracker writes one run into the analysis store. A zero tracker does nothing.
type analysisTracker struct {
	store contract.AnalysisStore
	id    int64
}

func beginTracking(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) analysisTracker {
	if mgr == nil {
		return analysisTracker{}
	}
	store := mgr.GetAnalysisStore()
	if store == nil {
		return analysisTracker{}
	}
	configParams := map[string]any{
		"api_url":      cfg.APIURL,
		"start":        cfg.StartTime.Format(contract.DateTimeFormat),
		"end":          cfg.EndTime.Format(contract.DateTimeFormat),
		"test":         cfg.TestFilter,
		"station":      string(cfg.Station),
		"result_limit": cfg.ResultLimit,
	}
	if cfg.SigmaMax != nil {
		configParams["sigma_max"] = *cfg.SigmaMax
	}
	id, err := store.BeginAnalysis(time.Now(), configParams)
	if err != nil {
		ctxlog.From(ctx).Warn("Analysis tracking initialization failed", "error", err)
		return analysisTracker{}
	}
	return analysisTracker{store: store, id: id}
}

func (t analysisTracker) record(ctx context.Context, results []schema.TestRiskResult) {
	if t.store == nil || t.id <= 0 {
		return
	}
	logger := ctxlog.From(ctx)
	for _, r := range results {
		if err := t.store.RecordTestRisk(t.id, r); err != nil {
			logger.Warn("Failed to record test risk", "analysis_id", t.id, "test", r.TestName, "error", err)
		}
	}
	if err := t.store.EndAnalysis(t.id, time.Now(), len(results)); err != nil {
		logger.Warn("Failed to finalize analysis tracking", "analysis_id", t.id, "error", err)
	}
}
