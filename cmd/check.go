package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/iocache"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fail with a non-zero exit code when any test reaches a risk level",
	Long: `Assess every test of the window and exit with status 1 when any test is at
or above --fail-level.

Designed for scheduled jobs and pipelines that should go red when a station
starts drifting. The violating tests are printed in the chosen output format.

Examples:
  # Fail on any high risk test
  cpkwatch check --api-url https://dashboard.example.com/api

  # Stricter gate for the final station
  cpkwatch check --station final --fail-level medium`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		err := core.ExecuteRiskCheck(rootCtx, cfg, dataSource, cacheManager)
		if errors.Is(err, core.ErrCheckFailed) {
			_, _ = fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			iocache.CloseCaching()
			os.Exit(1)
		}
		if err != nil {
			contract.LogFatal("Risk check failed", err)
		}
	},
}
