package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/core/algo"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/m-mizutani/ctxlog"
)

const maxBodyBytes = 1 << 20

type handler struct {
	baseCfg *contract.Config
	src     contract.DataSource
	mgr     contract.CacheManager
}

// oosRequest is the body of POST /api/v1/oos.
type oosRequest struct {
	Mean  *float64 `json:"mean"`
	Sigma *float64 `json:"sigma"`
	LSL   *float64 `json:"lsl"`
	USL   *float64 `json:"usl"`
}

type oosResponse struct {
	oosRequest
	POut *float64 `json:"p_out"`
}

// histogramRequest is the body of POST /api/v1/histogram.
type histogramRequest struct {
	Test   string    `json:"test"`
	Values []float64 `json:"values"`
	Bins   int       `json:"bins"`
	LSL    *float64  `json:"lsl"`
	USL    *float64  `json:"usl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "cpkwatch",
	})
}

func (h *handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	var in schema.RiskInput
	if !decodeBody(w, r, &in) {
		return
	}
	writeJSON(w, r, http.StatusOK, core.BuildAssessmentReport(in, h.baseCfg.SigmaMax))
}

func (h *handler) handleOOS(w http.ResponseWriter, r *http.Request) {
	var req oosRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := algo.ProbOutOfSpec(req.Mean, req.Sigma, req.LSL, req.USL)
	if p == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "mean and a positive sigma are required")
		return
	}
	writeJSON(w, r, http.StatusOK, oosResponse{oosRequest: req, POut: p})
}

func (h *handler) handleHistogram(w http.ResponseWriter, r *http.Request) {
	var req histogramRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Bins < 0 || req.Bins > contract.MaxHistogramBins {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("bins must be between 0 and %d", contract.MaxHistogramBins))
		return
	}
	if req.Test == "" {
		req.Test = "samples"
	}

	report, err := core.BuildSampleHistogram(req.Test, req.Values, req.Bins, req.LSL, req.USL)
	if errors.Is(err, algo.ErrNoData) {
		writeError(w, r, http.StatusUnprocessableEntity, "values must contain at least one number")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (h *handler) handleTestRisks(w http.ResponseWriter, r *http.Request) {
	if h.src == nil || h.baseCfg.APIURL == "" {
		writeError(w, r, http.StatusServiceUnavailable, "no backend configured; start the server with --api-url")
		return
	}

	cfg := h.baseCfg.Clone()
	q := r.URL.Query()
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > contract.MaxLookbackDays {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", contract.MaxLookbackDays))
			return
		}
		now := time.Now()
		cfg = cfg.CloneWithTimeWindow(now.AddDate(0, 0, -(days-1)), now)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > contract.MaxResultLimit {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", contract.MaxResultLimit))
			return
		}
		cfg.ResultLimit = limit
	}
	if v := q.Get("test"); v != "" {
		cfg.TestFilter = v
	}
	if v := q.Get("station"); v != "" {
		st, err := schema.ParseStation(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid station: %v", err))
			return
		}
		cfg.Station = st
	}

	ranked, err := core.GetTestRiskResults(r.Context(), cfg, h.src, h.mgr)
	switch {
	case errors.Is(err, core.ErrNoTests):
		writeError(w, r, http.StatusNotFound, err.Error())
	case err != nil:
		ctxlog.From(r.Context()).Error("Risk analysis failed", "error", err)
		writeError(w, r, http.StatusBadGateway, fmt.Sprintf("analysis failed: %v", err))
	default:
		writeJSON(w, r, http.StatusOK, schema.EnrichTestRisks(ranked))
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeJSON encodes v before any header goes out, so an unencodable value
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "failed to encode response"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		ctxlog.From(r.Context()).Warn("Failed to write response", "error", err)
	}
}
