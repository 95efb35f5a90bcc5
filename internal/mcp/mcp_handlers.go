package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	src     contract.DataSource
	mgr     contract.CacheManager
}

func (h *toolHandler) handleAssessRisk(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	in := schema.RiskInput{
		Cpk:         numberArg(args, "cpk"),
		Mean:        numberArg(args, "mean"),
		Sigma:       numberArg(args, "sigma"),
		LSL:         numberArg(args, "lsl"),
		USL:         numberArg(args, "usl"),
		SigmaMax:    numberArg(args, "sigma_max"),
		CpkSeries:   seriesArg(args, "cpk_series"),
		SigmaSeries: seriesArg(args, "sigma_series"),
	}
	return jsonResult(core.BuildAssessmentReport(in, h.baseCfg.SigmaMax))
}

func (h *toolHandler) handleProbOutOfSpec(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	mean, sigma := numberArg(args, "mean"), numberArg(args, "sigma")
	lsl, usl := numberArg(args, "lsl"), numberArg(args, "usl")

	p := algo.ProbOutOfSpec(mean, sigma, lsl, usl)
	if p == nil {
		return mcp.NewToolResultError("mean and a positive sigma are required"), nil
	}
	return jsonResult(map[string]any{
		"mean":  mean,
		"sigma": sigma,
		"lsl":   lsl,
		"usl":   usl,
		"p_out": p,
	})
}

func (h *toolHandler) handleHistogram(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values := make([]float64, 0)
	for _, v := range seriesArg(args, "values") {
		if f, ok := schema.Finite(v); ok {
			values = append(values, f)
		}
	}
	bins := request.GetInt("bins", 0)
	if bins < 0 || bins > contract.MaxHistogramBins {
		return mcp.NewToolResultError(fmt.Sprintf("bins must be between 0 and %d", contract.MaxHistogramBins)), nil
	}

	report, err := core.BuildSampleHistogram(request.GetString("test", "samples"), values, bins, numberArg(args, "lsl"), numberArg(args, "usl"))
	if errors.Is(err, algo.ErrNoData) {
		return mcp.NewToolResultError("values must contain at least one finite number"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("histogram failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetTestRisks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.src == nil || h.baseCfg.APIURL == "" {
		return mcp.NewToolResultError("no backend configured; start the server with --api-url"), nil
	}

	cfg := h.baseCfg.Clone()
	if days := request.GetInt("days", 0); days != 0 {
		if days < 0 || days > contract.MaxLookbackDays {
			return mcp.NewToolResultError(fmt.Sprintf("days must be between 1 and %d", contract.MaxLookbackDays)), nil
		}
		now := time.Now()
		cfg = cfg.CloneWithTimeWindow(now.AddDate(0, 0, -(days-1)), now)
	}
	if t := request.GetString("test", ""); t != "" {
		cfg.TestFilter = t
	}
	if s := request.GetString("station", ""); s != "" {
		st, err := schema.ParseStation(s)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid station: %v", err)), nil
		}
		cfg.Station = st
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = min(l, contract.MaxResultLimit)
	}

	ranked, err := core.GetTestRiskResults(ctx, cfg, h.src, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(schema.EnrichTestRisks(ranked))
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// numberArg reads an optional finite number. Numeric strings are accepted.
func numberArg(args map[string]any, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return finite(v)
	case int:
		return schema.Float(float64(v))
	case string:
		return schema.ParseFinite(v)
	default:
		return nil
	}
}

// seriesArg reads an array of numbers where null entries stay as gaps.
// A comma-separated string is accepted too.
func seriesArg(args map[string]any, key string) []*float64 {
	switch v := args[key].(type) {
	case []any:
		out := make([]*float64, len(v))
		for i, item := range v {
			out[i] = numberArg(map[string]any{key: item}, key)
		}
		return out
	case []float64:
		out := make([]*float64, len(v))
		for i, f := range v {
			out[i] = finite(f)
		}
		return out
	case string:
		return schema.ParseSeries(v)
	default:
		return nil
	}
}

func finite(v float64) *float64 {
	if _, ok := schema.Finite(&v); !ok {
		return nil
	}
	return &v
}
