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

// WriteAssessment outputs an ad-hoc risk assessment.
func WriteAssessment(report schema.AssessmentReport, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeAssessmentText(w, report, cfg) },
		func(w io.Writer) error { return writeAssessmentCSV(w, report, cfg.Precision) },
		func(w io.Writer) error { return writeJSON(w, report) },
	)
}

func writeAssessmentText(w io.Writer, report schema.AssessmentReport, cfg *contract.Config) error {
	p := cfg.Precision
	in := report.Input
	lines := []string{
		fmt.Sprintf("Score:  %d (%s)", report.Assessment.Score, levelLabel(report.Assessment.Level, cfg)),
		fmt.Sprintf("Cpk:    %s", fmtNum(in.Cpk, p)),
		fmt.Sprintf("Mean:   %s  Sigma: %s  Sigma max: %s", fmtNum(in.Mean, p), fmtNum(in.Sigma, p+1), fmtNum(in.SigmaMax, p+1)),
		fmt.Sprintf("Limits: [%s, %s]", fmtNum(in.LSL, p), fmtNum(in.USL, p)),
		fmt.Sprintf("P(OOS): %s", fmtPercent(report.POut, p)),
		fmt.Sprintf("Slopes: cpk %s/day, sigma %s/day", fmtSlope(report.CpkSlope), fmtSlope(report.SigmaSlope)),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	for _, r := range report.Assessment.Reasons {
		if _, err := fmt.Fprintf(w, "  - %s\n", r); err != nil {
			return err
		}
	}
	return nil
}

func writeAssessmentCSV(w io.Writer, report schema.AssessmentReport, precision int) error {
	header := []string{"score", "level", "cpk", "mean", "sigma", "lsl", "usl", "sigma_max", "p_out", "cpk_slope", "sigma_slope", "reasons"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		in := report.Input
		return cw.Write([]string{
			strconv.Itoa(report.Assessment.Score),
			contract.GetPlainLabel(report.Assessment.Level),
			fmtNum(in.Cpk, precision),
			fmtNum(in.Mean, precision),
			fmtNum(in.Sigma, precision+1),
			fmtNum(in.LSL, precision),
			fmtNum(in.USL, precision),
			fmtNum(in.SigmaMax, precision+1),
			fmtNum(report.POut, 6),
			fmtSlope(report.CpkSlope),
			fmtSlope(report.SigmaSlope),
			strings.Join(report.Assessment.Reasons, "; "),
		})
	})
}
