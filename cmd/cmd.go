// Package cmd defines the command-line interface for cpkwatch.
package cmd

import (
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(histogramCmd)
	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(analysisCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the dashboard backend REST API")
	rootCmd.PersistentFlags().String("ws-url", "", "Live calibration feed URL (defaults to <api-url>/ws/calibration)")
	rootCmd.PersistentFlags().String("start", "", "Start date in RFC3339, YYYY-MM-DD or time ago")
	rootCmd.PersistentFlags().String("end", "", "End date in RFC3339, YYYY-MM-DD or time ago")
	rootCmd.PersistentFlags().Int("days", contract.DefaultLookbackDays, "Number of days to look back when --start is not set")
	rootCmd.PersistentFlags().StringP("test", "t", "", "Filter tests by name (substring, case-insensitive)")
	rootCmd.PersistentFlags().String("station", "", "Only keep one station: ict or fct or rf or burn_in or final")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("sigma-max", "", "Sigma ceiling applied to every test without a per-test limit")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultTimeout.String(), "Timeout for each backend request")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("analysis-backend", "", "Analysis tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("analysis-db-connect", "", "Database connection string for analysis tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: auto or console or json")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of histogramCmd to Viper
	histogramCmd.Flags().Int("bins", schema.DefaultHistogramBins, "Number of histogram bins")
	if err := viper.BindPFlags(histogramCmd.Flags()); err != nil {
		contract.LogFatal("Error binding histogram flags", err)
	}

	// Bind all flags of checkCmd to Viper
	checkCmd.Flags().String("fail-level", string(schema.HighRisk), "Fail when any test is at or above this level: medium or high")
	if err := viper.BindPFlags(checkCmd.Flags()); err != nil {
		contract.LogFatal("Error binding check flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "Address for the HTTP API to listen on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// The assess inputs stay out of viper so they never come from config or env
	assessCmd.Flags().String("cpk", "", "Latest Cpk value")
	assessCmd.Flags().String("mean", "", "Process mean")
	assessCmd.Flags().String("sigma", "", "Process standard deviation")
	assessCmd.Flags().String("lsl", "", "Lower spec limit")
	assessCmd.Flags().String("usl", "", "Upper spec limit")
	assessCmd.Flags().String("cpk-series", "", "Comma-separated daily Cpk values, oldest first (null for gaps)")
	assessCmd.Flags().String("sigma-series", "", "Comma-separated daily sigma values, oldest first (null for gaps)")

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(analysisMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analysis migrate flags", err)
	}
}
