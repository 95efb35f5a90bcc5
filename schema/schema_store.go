package schema

import "time"

// AnalysisRunRecord represents a row from the cpk_analysis_runs table.
type AnalysisRunRecord struct {
	AnalysisID         int64
	StartTime          time.Time
	EndTime            *time.Time
	RunDurationMs      *int32
	TotalTestsAnalyzed int32
	ConfigParams       *string
}

// TestRiskRecord represents a row from the cpk_test_risks table.
type TestRiskRecord struct {
	AnalysisID int64
	TestName   string
	Station    string
	Day        string
	Cpk        *float64
	Mean       *float64
	Sigma      *float64
	LSL        *float64
	USL        *float64
	POut       *float64
	CpkSlope   float64
	SigmaSlope float64
	Score      int32
	Level      string
	Reasons    string // JSON array
}
