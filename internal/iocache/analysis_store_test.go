package iocache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func newSQLiteAnalysisStore(t *testing.T) *AnalysisStoreImpl {
	t.Helper()
	store, err := NewAnalysisStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*AnalysisStoreImpl)
}

func sampleRisk(name string, score int, level schema.RiskLevel, reasons ...string) schema.TestRiskResult {
	return schema.TestRiskResult{
		TestName:   name,
		Station:    "fct",
		Day:        "2025-03-14",
		Cpk:        fp(1.2),
		Mean:       fp(10),
		Sigma:      fp(0.2),
		LSL:        fp(9),
		USL:        fp(11),
		POut:       fp(0.0000006),
		CpkSlope:   0.01,
		SigmaSlope: -0.001,
		Assessment: schema.RiskAssessment{Score: score, Level: level, Reasons: reasons},
	}
}

func TestAnalysisStore_NoneBackend(t *testing.T) {
	store, err := NewAnalysisStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginAnalysis(time.Now(), map[string]any{"days": 14})
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, store.RecordTestRisk(id, sampleRisk("vbat", 36, schema.LowRisk)))
	assert.NoError(t, store.EndAnalysis(id, time.Now(), 1))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	runs, err := store.GetAllAnalysisRuns()
	assert.NoError(t, err)
	assert.Nil(t, runs)
	risks, err := store.GetAllTestRisks()
	assert.NoError(t, err)
	assert.Nil(t, risks)

	assert.NoError(t, store.Close())
}

func TestAnalysisStore_SQLiteRoundTrip(t *testing.T) {
	store := newSQLiteAnalysisStore(t)

	start := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	id, err := store.BeginAnalysis(start, map[string]any{"days": 14, "station": "fct"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, store.RecordTestRisk(id, sampleRisk("vbat", 36, schema.LowRisk, "Low Cpk 1.20 (< 1.33)")))
	require.NoError(t, store.RecordTestRisk(id, sampleRisk("iddq", 100, schema.HighRisk, "Hard rule: Cpk 0.80 < 1.00", "No Cpk value")))
	require.NoError(t, store.EndAnalysis(id, start.Add(2500*time.Millisecond), 2))

	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.True(t, run.StartTime.Equal(start))
	require.NotNil(t, run.EndTime)
	assert.True(t, run.EndTime.Equal(start.Add(2500*time.Millisecond)))
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(2500), *run.RunDurationMs)
	assert.Equal(t, int32(2), run.TotalTestsAnalyzed)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"days":14,"station":"fct"}`, *run.ConfigParams)

	risks, err := store.GetAllTestRisks()
	require.NoError(t, err)
	require.Len(t, risks, 2)

	// Ordered by test name within a run
	assert.Equal(t, "iddq", risks[0].TestName)
	assert.Equal(t, "vbat", risks[1].TestName)
	assert.Equal(t, int32(100), risks[0].Score)
	assert.Equal(t, "high", risks[0].Level)

	var reasons []string
	require.NoError(t, json.Unmarshal([]byte(risks[0].Reasons), &reasons))
	assert.Equal(t, []string{"Hard rule: Cpk 0.80 < 1.00", "No Cpk value"}, reasons)

	require.NotNil(t, risks[1].Cpk)
	assert.InDelta(t, 1.2, *risks[1].Cpk, 1e-12)
	assert.InDelta(t, 0.01, risks[1].CpkSlope, 1e-12)
}

func TestAnalysisStore_NullableValues(t *testing.T) {
	store := newSQLiteAnalysisStore(t)

	id, err := store.BeginAnalysis(time.Now(), nil)
	require.NoError(t, err)

	risk := schema.TestRiskResult{
		TestName:   "rf_tx",
		Station:    "rf",
		Day:        "2025-03-14",
		Assessment: schema.RiskAssessment{Score: 0, Level: schema.LowRisk},
	}
	require.NoError(t, store.RecordTestRisk(id, risk))

	risks, err := store.GetAllTestRisks()
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Nil(t, risks[0].Cpk)
	assert.Nil(t, risks[0].Mean)
	assert.Nil(t, risks[0].POut)
	assert.Equal(t, "[]", risks[0].Reasons)

	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndTime)
	assert.Nil(t, runs[0].RunDurationMs)
}

func TestAnalysisStore_DuplicateTestRejected(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	id, err := store.BeginAnalysis(time.Now(), nil)
	require.NoError(t, err)

	require.NoError(t, store.RecordTestRisk(id, sampleRisk("vbat", 10, schema.LowRisk)))
	assert.Error(t, store.RecordTestRisk(id, sampleRisk("vbat", 20, schema.LowRisk)))
}

func TestAnalysisStore_EndUnknownRun(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	err := store.EndAnalysis(99, time.Now(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis 99")
}

func TestAnalysisStore_GetStatus(t *testing.T) {
	store := newSQLiteAnalysisStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[analysisRunsTable])

	first := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	for i := range 3 {
		start := first.Add(time.Duration(i) * 24 * time.Hour)
		id, err := store.BeginAnalysis(start, nil)
		require.NoError(t, err)
		risk := sampleRisk("vbat", 36, schema.LowRisk)
		if i == 2 {
			risk = sampleRisk("vbat", 90, schema.HighRisk)
		}
		require.NoError(t, store.RecordTestRisk(id, risk))
		require.NoError(t, store.EndAnalysis(id, start.Add(time.Second), i+1))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalRuns)
	assert.Equal(t, int64(3), status.LastRunID)
	assert.True(t, status.LastRunTime.Equal(first.Add(48*time.Hour)))
	assert.True(t, status.OldestRunTime.Equal(first))
	assert.Equal(t, 6, status.TotalTestsAnalyzed)
	assert.Equal(t, int64(3), status.TableSizes[analysisRunsTable])
	assert.Equal(t, int64(3), status.TableSizes[testRisksTable])
	assert.Equal(t, map[schema.RiskLevel]int64{schema.LowRisk: 2, schema.HighRisk: 1}, status.RisksByLevel)
}

func TestAnalysisStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.db")
	store, err := NewAnalysisStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	_, err = store.BeginAnalysis(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewAnalysisStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestClearAnalysis_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.db")
	store, err := NewAnalysisStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearAnalysis(schema.SQLiteBackend, path, ""))
	assert.NoFileExists(t, path)
}
