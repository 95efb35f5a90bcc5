package cmd

import (
	"github.com/huangsam/cpkwatch/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the cpkwatch MCP server",
	Long:    `Launch an MCP server on stdio that allows AI agents to assess capability risk via standard tools.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, dataSource, cacheManager)
	},
}
