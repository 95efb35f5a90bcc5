// Package parquet provides data structures and functions for exporting cpkwatch
// analysis data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun represents a single analysis run with metadata.
// This struct maps to the cpk_analysis_runs database table.
type AnalysisRun struct {
	// AnalysisID is the unique identifier for this analysis run
	AnalysisID int64 `parquet:"analysis_id,snappy"`

	// StartTime is when the analysis began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the analysis completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the analysis run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalTestsAnalyzed is the number of tests assessed in this run
	TotalTestsAnalyzed int32 `parquet:"total_tests_analyzed,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// TestRisk is the stored assessment of one test in an analysis.
// This struct maps to the cpk_test_risks database table.
type TestRisk struct {
	AnalysisID int64    `parquet:"analysis_id,snappy"`
	TestName   string   `parquet:"test_name,snappy,dict"`
	Station    string   `parquet:"station,snappy,dict"`
	Day        string   `parquet:"day,snappy,dict"`
	Cpk        *float64 `parquet:"cpk,optional,snappy"`
	Mean       *float64 `parquet:"mean,optional,snappy"`
	Sigma      *float64 `parquet:"sigma,optional,snappy"`
	LSL        *float64 `parquet:"lsl,optional,snappy"`
	USL        *float64 `parquet:"usl,optional,snappy"`
	POut       *float64 `parquet:"p_out,optional,snappy"`
	CpkSlope   float64  `parquet:"cpk_slope,snappy"`
	SigmaSlope float64  `parquet:"sigma_slope,snappy"`
	Score      int32    `parquet:"score,snappy"`
	Level      string   `parquet:"level,snappy,dict"`

	// Reasons is the JSON array of explanation strings
	Reasons string `parquet:"reasons,snappy"`
}

// RiskReportRow is one line of a ranked risk report written with --output parquet.
type RiskReportRow struct {
	Rank       int32    `parquet:"rank,snappy"`
	TestName   string   `parquet:"test_name,snappy,dict"`
	Station    string   `parquet:"station,snappy,dict"`
	Day        string   `parquet:"day,snappy,dict"`
	Cpk        *float64 `parquet:"cpk,optional,snappy"`
	Mean       *float64 `parquet:"mean,optional,snappy"`
	Sigma      *float64 `parquet:"sigma,optional,snappy"`
	LSL        *float64 `parquet:"lsl,optional,snappy"`
	USL        *float64 `parquet:"usl,optional,snappy"`
	POut       *float64 `parquet:"p_out,optional,snappy"`
	CpkSlope   float64  `parquet:"cpk_slope,snappy"`
	SigmaSlope float64  `parquet:"sigma_slope,snappy"`
	Score      int32    `parquet:"score,snappy"`
	Level      string   `parquet:"level,snappy,dict"`

	// Reasons joins the explanation strings with "; "
	Reasons string `parquet:"reasons,snappy"`
}

// WriteRows writes rows of any parquet-tagged struct to w.
func WriteRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and writes rows into it.
func writeFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteRows(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteAnalysisRunsParquet writes a slice of AnalysisRun structs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteTestRisksParquet writes a slice of TestRisk structs to a Parquet file.
func WriteTestRisksParquet(data []TestRisk, outputPath string) error {
	return writeFile(data, outputPath)
}

// ConvertAnalysisRunRecords converts schema.AnalysisRunRecord to AnalysisRun for Parquet export.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	result := make([]AnalysisRun, len(records))
	for i, record := range records {
		result[i] = AnalysisRun{
			AnalysisID:         record.AnalysisID,
			StartTime:          record.StartTime,
			EndTime:            record.EndTime,
			RunDurationMs:      record.RunDurationMs,
			TotalTestsAnalyzed: record.TotalTestsAnalyzed,
			ConfigParams:       record.ConfigParams,
		}
	}
	return result
}

// ConvertTestRiskRecords converts schema.TestRiskRecord to TestRisk for Parquet export.
func ConvertTestRiskRecords(records []schema.TestRiskRecord) []TestRisk {
	result := make([]TestRisk, len(records))
	for i, r := range records {
		result[i] = TestRisk{
			AnalysisID: r.AnalysisID,
			TestName:   r.TestName,
			Station:    r.Station,
			Day:        r.Day,
			Cpk:        r.Cpk,
			Mean:       r.Mean,
			Sigma:      r.Sigma,
			LSL:        r.LSL,
			USL:        r.USL,
			POut:       r.POut,
			CpkSlope:   r.CpkSlope,
			SigmaSlope: r.SigmaSlope,
			Score:      r.Score,
			Level:      r.Level,
			Reasons:    r.Reasons,
		}
	}
	return result
}

// ConvertRiskResults flattens ranked results into report rows.
func ConvertRiskResults(results []schema.EnrichedTestRiskResult) []RiskReportRow {
	rows := make([]RiskReportRow, len(results))
	for i, r := range results {
		rows[i] = RiskReportRow{
			Rank:       int32(r.Rank),
			TestName:   r.TestName,
			Station:    r.Station,
			Day:        r.Day,
			Cpk:        r.Cpk,
			Mean:       r.Mean,
			Sigma:      r.Sigma,
			LSL:        r.LSL,
			USL:        r.USL,
			POut:       r.POut,
			CpkSlope:   r.CpkSlope,
			SigmaSlope: r.SigmaSlope,
			Score:      int32(r.Assessment.Score),
			Level:      string(r.Assessment.Level),
			Reasons:    strings.Join(r.Assessment.Reasons, "; "),
		}
	}
	return rows
}
