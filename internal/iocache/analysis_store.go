package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// Table names for analysis tracking.
const (
	analysisRunsTable = "cpk_analysis_runs"
	testRisksTable    = "cpk_test_risks"
)

// testRiskColumns is the column list of testRisksTable in insert and select order.
const testRiskColumns = `analysis_id, test_name, station, day, cpk, mean, sigma, lsl, usl, p_out,
	cpk_slope, sigma_slope, score, level, reasons`

// AnalysisStoreImpl implements the AnalysisStore interface.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore creates a new AnalysisStore with the specified backend.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		return &AnalysisStoreImpl{backend: backend}, nil
	}

	db, err := openDatabase(backend, connStr, contract.GetAnalysisDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("analysis store: %w", err)
	}

	if err := bootstrapSchema(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analysis tables: %w", err)
	}

	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

func (as *AnalysisStoreImpl) table(name string) string {
	return quoteTableName(name, as.backend)
}

// BeginAnalysis creates a new analysis run and returns its unique ID.
func (as *AnalysisStoreImpl) BeginAnalysis(startTime time.Time, configParams map[string]any) (int64, error) {
	if as.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var analysisID int64
	switch as.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING analysis_id`, as.table(analysisRunsTable))
		err = as.db.QueryRow(query, startTime, string(configJSON)).Scan(&analysisID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, as.table(analysisRunsTable))
		var res sql.Result
		res, err = as.db.Exec(query, formatTime(startTime, as.backend), string(configJSON))
		if err == nil {
			analysisID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}

	return analysisID, nil
}

// EndAnalysis updates the analysis run with completion data.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, endTime time.Time, totalTests int) error {
	if as.db == nil {
		return nil
	}

	var start timeScanner
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = %s`,
		as.table(analysisRunsTable), placeholder(as.backend, 1))
	if err := as.db.QueryRow(query, analysisID).Scan(&start); err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}

	durationMs := endTime.Sub(start.Time).Milliseconds()

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_tests_analyzed = %s WHERE analysis_id = %s`,
		as.table(analysisRunsTable),
		placeholder(as.backend, 1), placeholder(as.backend, 2), placeholder(as.backend, 3), placeholder(as.backend, 4))
	if _, err := as.db.Exec(update, formatTime(endTime, as.backend), durationMs, totalTests, analysisID); err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}

	return nil
}

// RecordTestRisk stores the assessment of one test. Reasons are kept as a JSON array.
func (as *AnalysisStoreImpl) RecordTestRisk(analysisID int64, result schema.TestRiskResult) error {
	if as.db == nil {
		return nil
	}

	reasons := result.Assessment.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		as.table(testRisksTable), testRiskColumns, placeholders(as.backend, 1, 15))
	_, err = as.db.Exec(query,
		analysisID, result.TestName, result.Station, result.Day,
		result.Cpk, result.Mean, result.Sigma, result.LSL, result.USL, result.POut,
		result.CpkSlope, result.SigmaSlope,
		result.Assessment.Score, string(result.Assessment.Level), string(reasonsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert test risk for %s: %w", result.TestName, err)
	}

	return nil
}

// Close closes the underlying connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the analysis store.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:    as.db != nil,
		RisksByLevel: make(map[schema.RiskLevel]int64),
		TableSizes:   make(map[string]int64),
	}
	if as.db == nil {
		return status, nil
	}

	runs := as.table(analysisRunsTable)
	if err := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var last, oldest timeScanner
		row := as.db.QueryRow(fmt.Sprintf("SELECT analysis_id, start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, &last); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = last.Time

		row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", runs))
		if err := row.Scan(&oldest); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldest.Time

		row = as.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_tests_analyzed), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalTestsAnalyzed); err != nil {
			return status, fmt.Errorf("failed to get total tests analyzed: %w", err)
		}
	}

	if err := as.countRisksByLevel(status.RisksByLevel); err != nil {
		return status, err
	}

	for _, table := range []string{analysisRunsTable, testRisksTable} {
		var count int64
		if err := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", as.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// countRisksByLevel fills counts with the number of stored test risks per level.
func (as *AnalysisStoreImpl) countRisksByLevel(counts map[schema.RiskLevel]int64) error {
	rows, err := as.db.Query(fmt.Sprintf("SELECT level, COUNT(*) FROM %s GROUP BY level", as.table(testRisksTable)))
	if err != nil {
		return fmt.Errorf("failed to count risks by level: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return fmt.Errorf("failed to scan risk level count: %w", err)
		}
		counts[schema.RiskLevel(level)] = count
	}
	return rows.Err()
}

// GetAllAnalysisRuns retrieves all analysis runs from the store.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, start_time, end_time, run_duration_ms, total_tests_analyzed, config_params
		FROM %s ORDER BY analysis_id`, as.table(analysisRunsTable))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var record schema.AnalysisRunRecord
		var start, end timeScanner
		if err := rows.Scan(&record.AnalysisID, &start, &end, &record.RunDurationMs, &record.TotalTestsAnalyzed, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		record.StartTime = start.Time
		record.EndTime = end.Ptr()
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}

	return results, nil
}

// GetAllTestRisks retrieves all recorded test risks from the store.
func (as *AnalysisStoreImpl) GetAllTestRisks() ([]schema.TestRiskRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY analysis_id, test_name`, testRiskColumns, as.table(testRisksTable))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query test risks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TestRiskRecord
	for rows.Next() {
		var r schema.TestRiskRecord
		if err := rows.Scan(&r.AnalysisID, &r.TestName, &r.Station, &r.Day,
			&r.Cpk, &r.Mean, &r.Sigma, &r.LSL, &r.USL, &r.POut,
			&r.CpkSlope, &r.SigmaSlope, &r.Score, &r.Level, &r.Reasons); err != nil {
			return nil, fmt.Errorf("failed to scan test risk: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test risks: %w", err)
	}

	return results, nil
}
