package schema

import "time"

// CacheStatus describes the backend response cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// AnalysisStatus describes the stored risk history.
// RisksByLevel counts every stored test assessment by its risk level.
type AnalysisStatus struct {
	Backend            string              `json:"backend"`
	Connected          bool                `json:"connected"`
	TotalRuns          int                 `json:"total_runs"`
	LastRunID          int64               `json:"last_run_id"`
	LastRunTime        time.Time           `json:"last_run_time"`
	OldestRunTime      time.Time           `json:"oldest_run_time"`
	TotalTestsAnalyzed int                 `json:"total_tests_analyzed"`
	RisksByLevel       map[RiskLevel]int64 `json:"risks_by_level"`
	TableSizes         map[string]int64    `json:"table_sizes"`
}
