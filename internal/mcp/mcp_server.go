// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// numberItems describes array arguments that hold numbers.
var numberItems = mcp.Items(map[string]any{"type": "number"})

// NewMCPServer initializes and configures the cpkwatch MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"cpkwatch Risk Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		src:     src,
		mgr:     mgr,
	}

	// --- 1. Tool: assess_risk ---
	s.AddTool(mcp.NewTool("assess_risk",
		mcp.WithDescription("Score the process-capability risk of one test from its Cpk, distribution and spec limits."),
		mcp.WithNumber("cpk", mcp.Description("Latest Cpk value.")),
		mcp.WithNumber("mean", mcp.Description("Process mean.")),
		mcp.WithNumber("sigma", mcp.Description("Process standard deviation.")),
		mcp.WithNumber("lsl", mcp.Description("Lower spec limit.")),
		mcp.WithNumber("usl", mcp.Description("Upper spec limit.")),
		mcp.WithNumber("sigma_max", mcp.Description("Sigma ceiling. Defaults to the server's --sigma-max.")),
		mcp.WithArray("cpk_series", mcp.Description("Daily Cpk values, oldest first. Use null for days without data."), numberItems),
		mcp.WithArray("sigma_series", mcp.Description("Daily sigma values, oldest first. Use null for days without data."), numberItems),
	), h.handleAssessRisk)

	// --- 2. Tool: prob_out_of_spec ---
	s.AddTool(mcp.NewTool("prob_out_of_spec",
		mcp.WithDescription("Estimate the probability that a normally distributed measurement falls outside its spec limits."),
		mcp.WithNumber("mean", mcp.Description("Process mean."), mcp.Required()),
		mcp.WithNumber("sigma", mcp.Description("Process standard deviation."), mcp.Required()),
		mcp.WithNumber("lsl", mcp.Description("Lower spec limit.")),
		mcp.WithNumber("usl", mcp.Description("Upper spec limit.")),
	), h.handleProbOutOfSpec)

	// --- 3. Tool: histogram ---
	s.AddTool(mcp.NewTool("histogram",
		mcp.WithDescription("Summarize and bin raw measurement samples, with spec limits, mean and median as markers."),
		mcp.WithArray("values", mcp.Description("Measurement samples."), mcp.Required(), numberItems),
		mcp.WithNumber("bins", mcp.Description("Number of bins (defaults to 24).")),
		mcp.WithNumber("lsl", mcp.Description("Lower spec limit.")),
		mcp.WithNumber("usl", mcp.Description("Upper spec limit.")),
		mcp.WithString("test", mcp.Description("Label for the samples.")),
	), h.handleHistogram)

	// --- 4. Tool: get_test_risks ---
	s.AddTool(mcp.NewTool("get_test_risks",
		mcp.WithDescription("Fetch calibration data from the dashboard backend and rank the riskiest tests."),
		mcp.WithString("test", mcp.Description("Only keep tests whose name contains this text.")),
		mcp.WithString("station", mcp.Description("Only keep one station."), mcp.Enum("ict", "fct", "rf", "burn_in", "final")),
		mcp.WithNumber("days", mcp.Description("Lookback window in days ending now.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleGetTestRisks)

	return s
}

// StartMCPServer starts the cpkwatch MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, src, mgr)
	return server.ServeStdio(s)
}
