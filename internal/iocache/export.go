package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/parquet"
)

// ExecuteAnalysisExport writes every stored run and test risk to a pair of Parquet files
// named after outputFile.
func ExecuteAnalysisExport(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total analysis runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total test risk records: %d\n", status.TableSizes[testRisksTable])

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	risks, err := store.GetAllTestRisks()
	if err != nil {
		return fmt.Errorf("failed to retrieve test risks: %w", err)
	}

	runsFile := outputFile + ".analysis_runs.parquet"
	if err := parquet.WriteAnalysisRunsParquet(parquet.ConvertAnalysisRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analysis runs to: %s\n", len(runs), runsFile)

	risksFile := outputFile + ".test_risks.parquet"
	if err := parquet.WriteTestRisksParquet(parquet.ConvertTestRiskRecords(risks), risksFile); err != nil {
		return fmt.Errorf("failed to write test risks: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d test risk records to: %s\n", len(risks), risksFile)

	return nil
}
