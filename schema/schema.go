// Package schema has the records, results and constants shared by all parts of cpkwatch.
package schema

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used by backend records and daily series.
const DateLayout = "2006-01-02"

// CalibrationRecord is one calibration row returned by the backend for a test on a day.
type CalibrationRecord struct {
	Date     string   `json:"date"`
	TestName string   `json:"test_name"`
	Station  string   `json:"station"`
	Cpk      Number   `json:"cpk"`
	Mean     Number   `json:"mean"`
	Sigma    Number   `json:"sigma"`
	LSL      Number   `json:"lsl"`
	USL      Number   `json:"usl"`
	Samples  []Number `json:"samples,omitempty"`
}

// Day returns the calendar day of the record, or false when the date is unreadable.
// Both bare dates and RFC3339 timestamps are accepted.
func (r CalibrationRecord) Day() (string, bool) {
	return ParseDay(r.Date)
}

// SampleValues returns the finite samples of the record in order.
func (r CalibrationRecord) SampleValues() []float64 {
	values := make([]float64, 0, len(r.Samples))
	for _, s := range r.Samples {
		if p := s.Ptr(); p != nil {
			values = append(values, *p)
		}
	}
	return values
}

// FailureRecord is one failure row returned by the backend.
type FailureRecord struct {
	Date     string `json:"date"`
	Station  string `json:"station"`
	TesterID string `json:"tester_id"`
	TestName string `json:"test_name"`
	Serial   string `json:"serial"`
	Count    Number `json:"count"`
}

// Failures returns the failure count of the row. Rows without a count are a single failure.
func (r FailureRecord) Failures() int {
	p := r.Count.Ptr()
	if p == nil {
		return 1
	}
	if *p < 0 {
		return 0
	}
	return int(*p)
}

// ParseDay normalizes a backend date into a calendar day.
func ParseDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), true
	}
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}
