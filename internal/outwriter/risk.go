package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/parquet"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var riskCSVHeader = []string{
	"rank", "test_name", "station", "day", "cpk", "mean", "sigma", "lsl", "usl",
	"p_out", "cpk_slope", "sigma_slope", "score", "level", "reasons",
}

// WriteRiskResults outputs ranked test risks, dispatching based on the output format configured.
func WriteRiskResults(results []schema.EnrichedTestRiskResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteRows(w, parquet.ConvertRiskResults(results))
		}, "Wrote Parquet")
	}
	return dispatch(cfg,
		func(w io.Writer) error { return writeRiskTable(w, results, cfg, duration) },
		func(w io.Writer) error { return writeRiskCSV(w, results, cfg.Precision) },
		func(w io.Writer) error { return writeJSON(w, results) },
	)
}

// writeRiskTable generates and writes the human-readable table.
func writeRiskTable(w io.Writer, results []schema.EnrichedTestRiskResult, cfg *contract.Config, duration time.Duration) error {
	if err := renderRiskTable(w, results, cfg); err != nil {
		return err
	}

	counts := map[schema.RiskLevel]int{}
	for _, r := range results {
		counts[r.Assessment.Level]++
	}
	if _, err := fmt.Fprintf(w, "Showing %d tests (high: %d, medium: %d, low: %d)\n",
		len(results), counts[schema.HighRisk], counts[schema.MediumRisk], counts[schema.LowRisk]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v. Cache backend: %s\n", duration.Round(time.Millisecond), cfg.CacheBackend)
	return err
}

// renderRiskTable renders the ranked rows without any summary lines.
func renderRiskTable(w io.Writer, results []schema.EnrichedTestRiskResult, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Test", "Station", "Day", "Cpk", "Sigma", "P(OOS)", "Score", "Level", "Reasons"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	nameWidth := GetMaxTableNameWidth(cfg)
	reasonWidth := GetMaxReasonWidth(cfg)

	data := make([][]string, 0, len(results))
	for _, r := range results {
		data = append(data, []string{
			strconv.Itoa(r.Rank),
			contract.TruncateName(r.TestName, nameWidth),
			r.Station,
			r.Day,
			fmtNum(r.Cpk, cfg.Precision),
			fmtNum(r.Sigma, cfg.Precision+1),
			fmtPercent(r.POut, cfg.Precision),
			strconv.Itoa(r.Assessment.Score),
			levelLabel(r.Assessment.Level, cfg),
			contract.TruncateName(joinReasons(r.Assessment.Reasons), reasonWidth),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeRiskCSV writes ranked test risks in CSV format.
func writeRiskCSV(w io.Writer, results []schema.EnrichedTestRiskResult, precision int) error {
	return writeCSVWithHeader(w, riskCSVHeader, func(cw *csv.Writer) error {
		for _, r := range results {
			rec := []string{
				strconv.Itoa(r.Rank),
				r.TestName,
				r.Station,
				r.Day,
				fmtNum(r.Cpk, precision),
				fmtNum(r.Mean, precision),
				fmtNum(r.Sigma, precision+1),
				fmtNum(r.LSL, precision),
				fmtNum(r.USL, precision),
				fmtNum(r.POut, 6),
				fmtSlope(r.CpkSlope),
				fmtSlope(r.SigmaSlope),
				strconv.Itoa(r.Assessment.Score),
				contract.GetPlainLabel(r.Assessment.Level),
				joinReasons(r.Assessment.Reasons),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
