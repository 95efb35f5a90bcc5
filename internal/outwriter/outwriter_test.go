package outwriter

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	return &contract.Config{
		APIURL:       "http://backend.local/api",
		Precision:    2,
		Output:       schema.TextOut,
		Width:        200,
		CacheBackend: schema.SQLiteBackend,
		StartTime:    time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC),
	}
}

func sampleResults() []schema.EnrichedTestRiskResult {
	return schema.EnrichTestRisks([]schema.TestRiskResult{
		{
			TestName: "vbat_idle", Station: "fct", Day: "2025-03-14",
			Cpk: schema.Float(0.91), Mean: schema.Float(3.3), Sigma: schema.Float(0.05),
			LSL: schema.Float(3.0), USL: schema.Float(3.6), POut: schema.Float(0.0027),
			CpkSlope: -0.031,
			Assessment: schema.RiskAssessment{
				Score: 90, Level: schema.HighRisk, Reasons: []string{"Hard rule: Cpk 0.91 < 1.00"},
			},
		},
		{
			TestName: "rf_tx_power", Station: "rf", Day: "2025-03-14",
			Assessment: schema.RiskAssessment{Score: 0, Level: schema.LowRisk, Reasons: []string{"No Cpk value"}},
		},
	})
}

func TestFmtPercent(t *testing.T) {
	assert.Equal(t, "-", fmtPercent(nil, 2))
	assert.Equal(t, "0.27%", fmtPercent(schema.Float(0.0027), 2))
	assert.Equal(t, "100.0%", fmtPercent(schema.Float(1), 1))
}

func TestFmtSlope(t *testing.T) {
	assert.Equal(t, "+0.020", fmtSlope(0.02))
	assert.Equal(t, "-0.031", fmtSlope(-0.031))
	assert.Equal(t, "+0.000", fmtSlope(0))
}

func TestGetMaxTableNameWidth(t *testing.T) {
	tests := []struct {
		width    int
		expected int
	}{
		{width: 60, expected: 12},
		{width: 100, expected: 20},
		{width: 300, expected: 40},
	}
	for _, tt := range tests {
		cfg := &contract.Config{Width: tt.width}
		assert.Equal(t, tt.expected, GetMaxTableNameWidth(cfg), "width %d", tt.width)
	}
}

func TestGetMaxReasonWidth(t *testing.T) {
	assert.Equal(t, 24, GetMaxReasonWidth(&contract.Config{Width: 80}))
	assert.Equal(t, 80, GetMaxReasonWidth(&contract.Config{Width: 400}))
}

func TestLevelLabel(t *testing.T) {
	cfg := &contract.Config{UseColors: false}
	assert.Equal(t, "High", levelLabel(schema.HighRisk, cfg))
	assert.Equal(t, "Medium", levelLabel(schema.MediumRisk, cfg))
	assert.Equal(t, "Low", levelLabel(schema.LowRisk, cfg))
}

func TestLogAnalysisHeader(t *testing.T) {
	var buf bytes.Buffer
	LogAnalysisHeader(&buf, testConfig())
	out := buf.String()
	assert.Contains(t, out, "🔎 Backend: http://backend.local/api (Station: all)")
	assert.Contains(t, out, "📅 Range: 2025-03-01T00:00:00Z → 2025-03-14T00:00:00Z")

	cfg := testConfig()
	cfg.Station = schema.RFStation
	buf.Reset()
	LogAnalysisHeader(&buf, cfg)
	assert.Contains(t, buf.String(), "(Station: rf)")
}

func TestWriteJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestWriteWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}, "Wrote test")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteWithFile_BadPath(t *testing.T) {
	err := writeWithFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }, "x")
	assert.Error(t, err)
}

func TestDispatch_ParquetRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.ParquetOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "h.parquet")
	err := WriteHistogram(schema.HistogramReport{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only supported for risk reports")
}

func TestWriteWatchUpdate(t *testing.T) {
	cfg := testConfig()
	at := time.Date(2025, time.March, 14, 9, 30, 5, 0, time.UTC)
	result := sampleResults()[0].TestRiskResult

	var buf bytes.Buffer
	require.NoError(t, WriteWatchUpdate(&buf, at, result, cfg))
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "09:30:05 vbat_idle"))
	assert.Contains(t, line, "cpk=0.91")
	assert.Contains(t, line, "p_oos=0.27%")
	assert.Contains(t, line, "score= 90 High")

	cfg.Output = schema.JSONOut
	buf.Reset()
	require.NoError(t, WriteWatchUpdate(&buf, at, result, cfg))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	var decoded schema.TestRiskResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "vbat_idle", decoded.TestName)
}
