package core

import (
	"testing"

	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestRiskBuilder_Steps(t *testing.T) {
	cfg := &contract.Config{SigmaMax: schema.Float(0.5)}
	series := schema.DailySeries{
		TestName: "vbat",
		Points: []schema.DailyPoint{
			{Day: "2025-03-12", Cpk: schema.Float(2.0), Sigma: schema.Float(0.1)},
			{Day: "2025-03-13", Station: "fct", Cpk: schema.Float(1.9), Mean: schema.Float(10), Sigma: schema.Float(0.2), LSL: schema.Float(9), USL: schema.Float(11)},
			{Day: "2025-03-14"},
		},
	}

	b := NewTestRiskBuilder(cfg, series).SelectLatest()
	r, ok := b.Build()
	require.True(t, ok)
	assert.Equal(t, "2025-03-13", r.Day)
	assert.Equal(t, "fct", r.Station)
	assert.Nil(t, r.SigmaMax)
	assert.Nil(t, r.POut)

	r, _ = b.ApplySigmaCeiling().CalculateOutOfSpec().Build()
	assert.Equal(t, 0.5, *r.SigmaMax)
	require.NotNil(t, r.POut)
	assert.InDelta(t, 5.7e-7, *r.POut, 2e-7)

	r, _ = b.CalculateTrends().CalculateAssessment().Build()
	assert.InDelta(t, -0.1, r.CpkSlope, 1e-9)
	assert.InDelta(t, 0.1, r.SigmaSlope, 1e-9)
	assert.Equal(t, schema.LowRisk, r.Assessment.Level)
	assert.Equal(t, 20, r.Assessment.Score)
	assert.Equal(t, []string{"Cpk downtrend (slope -0.100/day)", "Sigma upward trend (slope 0.100/day)"}, r.Assessment.Reasons)
}

func TestAnalyzeTest_EmptyWindow(t *testing.T) {
	series := agg.BuildDailySeries("vbat", nil, []string{"2025-03-13", "2025-03-14"})
	_, ok := analyzeTest(&contract.Config{}, series)
	assert.False(t, ok)
}

func TestAnalyzeTests_Parallel(t *testing.T) {
	cfg := &contract.Config{}
	days := []string{"2025-03-14"}
	names := make([]string, 0, 50)
	groups := make(map[string][]schema.CalibrationRecord)
	for i := range 50 {
		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		names = append(names, name)
		groups[name] = []schema.CalibrationRecord{{Date: "2025-03-14", TestName: name, Cpk: schema.NumberOf(1.5)}}
	}
	names = append(names, "empty")

	results := analyzeTests(cfg, names, groups, days)
	assert.Len(t, results, 50)
}

func BenchmarkAnalyzeTests(b *testing.B) {
	cfg := &contract.Config{SigmaMax: schema.Float(0.5)}
	days := []string{
		"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04", "2025-03-05", "2025-03-06", "2025-03-07",
		"2025-03-08", "2025-03-09", "2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14",
	}
	names := make([]string, 0, 200)
	groups := make(map[string][]schema.CalibrationRecord)
	for i := range 200 {
		name := "test_" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		names = append(names, name)
		for d, day := range days {
			groups[name] = append(groups[name], schema.CalibrationRecord{
				Date:     day,
				TestName: name,
				Station:  "fct",
				Cpk:      schema.NumberOf(1.8 - 0.02*float64(d)),
				Mean:     schema.NumberOf(10),
				Sigma:    schema.NumberOf(0.2 + 0.01*float64(d)),
				LSL:      schema.NumberOf(9),
				USL:      schema.NumberOf(11),
			})
		}
	}
	for b.Loop() {
		analyzeTests(cfg, names, groups, days)
	}
}
