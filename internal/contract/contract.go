// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/cpkwatch/schema"
)

// DataSource defines the backend queries the analysis depends on.
// This allows the core analysis logic to be tested without a running dashboard backend.
type DataSource interface {
	// GetCalibrationLog returns the raw JSON array of calibration records in the window.
	GetCalibrationLog(ctx context.Context, start, end time.Time) ([]byte, error)

	// GetFailureLog returns the raw JSON array of failure records in the window.
	GetFailureLog(ctx context.Context, start, end time.Time) ([]byte, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResponseStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking analysis runs and storing test risks.
type AnalysisStore interface {
	// BeginAnalysis creates a new analysis run and returns its unique ID
	BeginAnalysis(startTime time.Time, configParams map[string]any) (int64, error)

	// EndAnalysis updates the analysis run with completion data
	EndAnalysis(analysisID int64, endTime time.Time, totalTests int) error

	// RecordTestRisk stores the assessment of one test
	RecordTestRisk(analysisID int64, result schema.TestRiskResult) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns returns every recorded run ordered by ID
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllTestRisks returns every recorded test risk ordered by run and test
	GetAllTestRisks() ([]schema.TestRiskRecord, error)

	// Close closes the underlying connection
	Close() error
}
