package schema

// TestRiskResult is the assessment of one test on the latest day of the window.
type TestRiskResult struct {
	TestName   string         `json:"test_name"`
	Station    string         `json:"station"`
	Day        string         `json:"day"`
	Cpk        *float64       `json:"cpk"`
	Mean       *float64       `json:"mean"`
	Sigma      *float64       `json:"sigma"`
	LSL        *float64       `json:"lsl"`
	USL        *float64       `json:"usl"`
	SigmaMax   *float64       `json:"sigma_max"`
	POut       *float64       `json:"p_out"`
	CpkSlope   float64        `json:"cpk_slope"`
	SigmaSlope float64        `json:"sigma_slope"`
	Assessment RiskAssessment `json:"assessment"`
}

// EnrichedTestRiskResult adds presentation data to a TestRiskResult.
type EnrichedTestRiskResult struct {
	Rank int `json:"rank"`
	TestRiskResult
}

// EnrichTestRisks adds rank to a list of test risk results.
func EnrichTestRisks(results []TestRiskResult) []EnrichedTestRiskResult {
	output := make([]EnrichedTestRiskResult, len(results))
	for i, r := range results {
		output[i] = EnrichedTestRiskResult{Rank: i + 1, TestRiskResult: r}
	}
	return output
}

// DailyPoint is the calibration state of one test on one day. Days without data hold nil values.
type DailyPoint struct {
	Day     string   `json:"day"`
	Station string   `json:"station,omitempty"`
	Cpk     *float64 `json:"cpk"`
	Mean    *float64 `json:"mean"`
	Sigma   *float64 `json:"sigma"`
	LSL     *float64 `json:"lsl"`
	USL     *float64 `json:"usl"`
}

// DailySeries is the per-day history of one test across a window.
type DailySeries struct {
	TestName string       `json:"test_name"`
	Points   []DailyPoint `json:"points"`
}

// CpkValues returns the Cpk value of every day, in order.
func (s DailySeries) CpkValues() []*float64 {
	out := make([]*float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Cpk
	}
	return out
}

// SigmaValues returns the sigma value of every day, in order.
func (s DailySeries) SigmaValues() []*float64 {
	out := make([]*float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Sigma
	}
	return out
}

// Latest returns the most recent day that carries any data.
func (s DailySeries) Latest() (DailyPoint, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		p := s.Points[i]
		if p.Cpk != nil || p.Mean != nil || p.Sigma != nil {
			return p, true
		}
	}
	return DailyPoint{}, false
}

// DailyFailures is the per-station failure count of one day.
type DailyFailures struct {
	Day    string        `json:"day"`
	Counts StationCounts `json:"counts"`
	Total  int           `json:"total"`
}

// TesterFailures is the failure drilldown for one tester.
type TesterFailures struct {
	TesterID string   `json:"tester_id"`
	Station  Station  `json:"station"`
	Count    int      `json:"count"`
	Tests    []string `json:"tests"`
}

// FailureReport bundles the daily station table and the top testers.
type FailureReport struct {
	Days    []DailyFailures  `json:"days"`
	Testers []TesterFailures `json:"testers"`
}

// HistogramReport is the distribution view of one test's samples.
type HistogramReport struct {
	TestName  string    `json:"test_name"`
	Day       string    `json:"day"`
	Summary   Summary   `json:"summary"`
	Histogram Histogram `json:"histogram"`
}

// CheckResult is the outcome of gating a run on a minimum risk level.
type CheckResult struct {
	FailLevel  RiskLevel                `json:"fail_level"`
	Total      int                      `json:"total"`
	Passed     bool                     `json:"passed"`
	Violations []EnrichedTestRiskResult `json:"violations"`
}

// AssessmentReport is an ad-hoc risk assessment together with its input.
type AssessmentReport struct {
	Input      RiskInput      `json:"input"`
	POut       *float64       `json:"p_out"`
	CpkSlope   float64        `json:"cpk_slope"`
	SigmaSlope float64        `json:"sigma_slope"`
	Assessment RiskAssessment `json:"assessment"`
}
