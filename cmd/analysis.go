package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/iocache"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// analysisSetup loads minimal configuration needed for analysis operations.
// This is used by commands that need analysis access without full shared setup.
func analysisSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend, connStr, err := backendFromViper("analysis-backend", "analysis-db-connect")
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no response caching for analysis commands)
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// analysisMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func analysisMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend, connStr, err := backendFromViper("analysis-backend", "analysis-db-connect")
	if err != nil {
		return err
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	return nil
}

// analysisStore returns the opened analysis store or exits when tracking is disabled.
func analysisStore(action string) contract.AnalysisStore {
	store := iocache.Manager.GetAnalysisStore()
	if store == nil {
		contract.LogFatal(action, errors.New("analysis tracking is disabled (set --analysis-backend)"))
	}
	return store
}

// analysisCmd focused on analysis data management.
//
// Note: Analysis subcommands use minimal initialization (analysisSetup) instead of
// the full sharedSetup used by the risk commands. This avoids backend URL and
// time window validation for simple analysis operations.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Manage historical analysis tracking and exports",
	Long: `Manage historical analysis data used for trend tracking and reporting.

When enabled with --analysis-backend, cpkwatch records every risk run, storing:
- Run metadata (timestamp, configuration, duration)
- The assessment of every test: Cpk, mean, sigma, limits, P(OOS), slopes,
  score, level and reasons

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show analysis tracking statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  cpkwatch analysis status --analysis-backend sqlite

  # Export for analysis in pandas/DuckDB
  cpkwatch analysis export --analysis-backend sqlite --output-file cpk-history`,
}

// analysisClearCmd clears the analysis data.
var analysisClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all historical analysis tracking data",
	Long: `Delete all stored analysis runs and test risk history.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  cpkwatch analysis export --output-file backup
  cpkwatch analysis clear`,
	PreRunE: analysisSetup,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite handle before the file goes away
		iocache.CloseCaching()
		if err := iocache.ClearAnalysis(cfg.AnalysisBackend, sqlitePath(cfg.AnalysisDBConnect, contract.GetAnalysisDBFilePath()), cfg.AnalysisDBConnect); err != nil {
			contract.LogFatal("Failed to clear analysis data", err)
		}
		fmt.Println("Analysis data cleared successfully.")
	},
}

// analysisStatusCmd shows analysis status.
var analysisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display analysis tracking statistics and connection details",
	Long: `Show detailed information about historical analysis tracking.

Displays:
- Backend type and connection status
- Total number of analysis runs stored
- Last and oldest analysis run timestamps
- Total tests analyzed across all runs
- Stored assessments per risk level
- Database table sizes

Examples:
  # Check analysis tracking status
  cpkwatch analysis status`,
	PreRunE: analysisSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := analysisStore("Failed to get analysis status").GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get analysis status", err)
		}
		iocache.PrintAnalysisStatus(os.Stdout, status)
	},
}

// analysisExportCmd exports analysis data to Parquet files.
var analysisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export historical data to Parquet for BI tools and analytics",
	Long: `Export all stored analysis data to Parquet format for use with analytics tools.

Writes two files next to --output-file:
- <output-file>.analysis_runs.parquet - metadata about each analysis run
- <output-file>.test_risks.parquet    - every stored test assessment

Requires: --output-file parameter

Examples:
  # Export all data
  cpkwatch analysis export --output-file cpk-history

  # Use with DuckDB for analysis
  duckdb -c "SELECT test_name, avg(score) FROM read_parquet('cpk-history.test_risks.parquet') GROUP BY 1"`,
	PreRunE: analysisSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteAnalysisExport(os.Stdout, analysisStore("Failed to export analysis data"), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
	},
}

// analysisMigrateCmd runs database migrations for the analysis store.
var analysisMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the analysis tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  cpkwatch analysis migrate --analysis-backend sqlite

  # Rollback to the initial state
  cpkwatch analysis migrate --analysis-backend sqlite --target-version 0`,
	PreRunE: analysisMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.AnalysisBackend == schema.NoneBackend {
			contract.LogFatal("Failed to run migrations", errors.New("--analysis-backend is required"))
		}
		result, err := iocache.MigrateAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(result)
	},
}
