package cmd

import (
	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/spf13/cobra"
)

// watchCmd follows the live calibration feed.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reassess tests as live calibration records arrive.",
	Long: `Load the window over REST, then subscribe to the backend WebSocket feed and
print one line per test every time a new record changes its assessment.

The connection is re-established with exponential backoff when it drops.
Press Ctrl+C to stop.

Examples:
  cpkwatch watch --api-url https://dashboard.example.com/api
  cpkwatch watch --ws-url wss://dashboard.example.com/ws/calibration --test vbat --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteWatch(rootCtx, cfg, dataSource, cacheManager); err != nil {
			contract.LogFatal("Live feed stopped", err)
		}
	},
}
