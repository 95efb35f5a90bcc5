package cmd

import (
	"github.com/huangsam/cpkwatch/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd exposes the risk engine over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cpkwatch HTTP API",
	Long: `Serve the risk engine as a JSON API.

Routes:
  GET  /health
  POST /api/v1/risk        assess a RiskInput body
  POST /api/v1/oos         estimate the out-of-spec probability
  POST /api/v1/histogram   summarize and bin raw samples
  GET  /api/v1/tests/risk  rank tests from the backend (needs --api-url)

Examples:
  cpkwatch serve --listen 0.0.0.0:8040 --api-url https://dashboard.example.com/api`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return server.NewServer(rootCtx, cfg, dataSource, cacheManager).Run(rootCtx)
	},
}
