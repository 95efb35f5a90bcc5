package cmd

import (
	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/spf13/cobra"
)

// riskCmd ranks the riskiest tests of the window.
var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Show the tests ranked by capability risk.",
	Long: `Fetch calibration data for the window and rank every test by risk score.

For each test the latest day with a Cpk value is assessed:
- Cpk below 1.00 is high risk immediately
- Low or moderate Cpk, an estimated out-of-spec probability and a sigma
  above its ceiling add to the score
- Cpk trending down or sigma trending up over the window add to the score

Examples:
  # Riskiest tests of the last 14 days
  cpkwatch risk --api-url https://dashboard.example.com/api

  # Only RF tests, a wider window, and a sigma ceiling
  cpkwatch risk --station rf --days 30 --sigma-max 0.05

  # Export for a spreadsheet or a notebook
  cpkwatch risk --output csv --output-file risk.csv
  cpkwatch risk --output parquet --output-file risk.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRiskReport(rootCtx, cfg, dataSource, cacheManager); err != nil {
			contract.LogFatal("Cannot run risk analysis", err)
		}
	},
}

// histogramCmd shows the distribution of one test.
var histogramCmd = &cobra.Command{
	Use:   "histogram",
	Short: "Show the sample distribution of one test.",
	Long: `Bin the most recent samples of the test named by --test.

Spec limits, mean and median are drawn as markers so you can see how close
the distribution sits to each limit.

Examples:
  cpkwatch histogram --test vbat --bins 30
  cpkwatch histogram --test iddq --station ict --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistogram(rootCtx, cfg, dataSource, cacheManager); err != nil {
			contract.LogFatal("Cannot build histogram", err)
		}
	},
}

// failuresCmd summarizes failures per day, station and tester.
var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show failure counts per day, station and tester.",
	Long: `Fetch the failure log for the window and count failures per station for every day.

A second table ranks testers by failures; --station narrows that table to one station.

Examples:
  cpkwatch failures --days 7
  cpkwatch failures --station fct --limit 10`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFailures(rootCtx, cfg, dataSource, cacheManager); err != nil {
			contract.LogFatal("Cannot run failure analysis", err)
		}
	},
}
