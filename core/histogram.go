package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/schema"
)

// ErrTestRequired is returned when a single-test view is requested without a test name.
var ErrTestRequired = errors.New("--test is required")

// selectTest keeps the records of exactly one test, ignoring case.
func selectTest(records []schema.CalibrationRecord, testName string, station schema.Station) []schema.CalibrationRecord {
	out := make([]schema.CalibrationRecord, 0)
	for _, r := range records {
		if !strings.EqualFold(strings.TrimSpace(r.TestName), testName) {
			continue
		}
		if station != "" {
			st, err := schema.ParseStation(r.Station)
			if err != nil || st != station {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// BuildHistogramReport bins the samples of the latest day that has any.
// The limits of that same record become markers when present.
func BuildHistogramReport(testName string, records []schema.CalibrationRecord, bins int) (schema.HistogramReport, error) {
	latest, _ := agg.LatestSampleRecord(records)

	report, err := BuildSampleHistogram(testName, latest.SampleValues(), bins, latest.LSL.Ptr(), latest.USL.Ptr())
	if err != nil {
		return schema.HistogramReport{}, err
	}
	report.Day, _ = latest.Day()
	return report, nil
}

// BuildSampleHistogram summarizes and bins raw sample values.
// An empty sample set wraps algo.ErrNoData.
func BuildSampleHistogram(testName string, samples []float64, bins int, lsl, usl *float64) (schema.HistogramReport, error) {
	summary, ok := algo.Summarize(samples)
	if !ok {
		return schema.HistogramReport{}, fmt.Errorf("no samples found for test %s: %w", testName, algo.ErrNoData)
	}
	hist, err := algo.Histogram(samples, bins, algo.DistributionMarkers(summary, lsl, usl))
	if err != nil {
		return schema.HistogramReport{}, err
	}
	return schema.HistogramReport{
		TestName:  testName,
		Summary:   summary,
		Histogram: hist,
	}, nil
}
