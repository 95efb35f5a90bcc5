package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// WriteHistogram outputs the distribution view of one test.
func WriteHistogram(report schema.HistogramReport, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeHistogramText(w, report, cfg) },
		func(w io.Writer) error { return writeHistogramCSV(w, report.Histogram, cfg.Precision) },
		func(w io.Writer) error { return writeJSON(w, report) },
	)
}

// writeHistogramText prints the summary followed by one bar per bin.
func writeHistogramText(w io.Writer, report schema.HistogramReport, cfg *contract.Config) error {
	s := report.Summary
	p := cfg.Precision
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', p, 64) }

	if _, err := fmt.Fprintf(w, "%s on %s: n=%d min=%s max=%s mean=%s median=%s p5=%s p95=%s\n",
		report.TestName, report.Day, s.Count, f(s.Min), f(s.Max), f(s.Mean), f(s.Median), f(s.P5), f(s.P95)); err != nil {
		return err
	}

	h := report.Histogram
	peak := 0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}
	// Label column plus count column
	barWidth := max(terminalWidth(cfg)-40, 10)
	width := h.BinWidth()

	for i, c := range h.Counts {
		lo := h.Domain[0] + float64(i)*width
		bar := 0
		if peak > 0 {
			bar = c * barWidth / peak
		}
		line := fmt.Sprintf("%12s .. %-12s %5d %s", f(lo), f(lo+width), c, strings.Repeat("█", bar))
		if labels := markersInBin(h, i); labels != "" {
			line += "  ◀ " + labels
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// markersInBin lists the labels of the markers that fall into bin i.
func markersInBin(h schema.Histogram, i int) string {
	n := len(h.Counts)
	var labels []string
	for _, m := range h.Markers {
		idx := min(int(m.Position*float64(n)), n-1)
		if idx == i {
			labels = append(labels, m.Label)
		}
	}
	return strings.Join(labels, ", ")
}

func writeHistogramCSV(w io.Writer, h schema.Histogram, precision int) error {
	width := h.BinWidth()
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }
	return writeCSVWithHeader(w, []string{"bin", "bin_start", "bin_end", "count"}, func(cw *csv.Writer) error {
		for i, c := range h.Counts {
			lo := h.Domain[0] + float64(i)*width
			if err := cw.Write([]string{strconv.Itoa(i), f(lo), f(lo + width), strconv.Itoa(c)}); err != nil {
				return err
			}
		}
		return nil
	})
}
