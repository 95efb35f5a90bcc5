package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// WriteCheckResult outputs the verdict of a risk gate.
func WriteCheckResult(result schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeCheckText(w, result, cfg, duration) },
		func(w io.Writer) error { return writeCheckCSV(w, result) },
		func(w io.Writer) error { return writeJSON(w, result) },
	)
}

func writeCheckText(w io.Writer, result schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	if len(result.Violations) > 0 {
		if err := renderRiskTable(w, result.Violations, cfg); err != nil {
			return err
		}
	}
	verdict := "✅ PASS"
	if !result.Passed {
		verdict = "❌ FAIL"
	}
	_, err := fmt.Fprintf(w, "%s: %d of %d tests at or above %s risk (checked in %v)\n",
		verdict, len(result.Violations), result.Total, result.FailLevel, duration.Round(time.Millisecond))
	return err
}

func writeCheckCSV(w io.Writer, result schema.CheckResult) error {
	return writeCSVWithHeader(w, []string{"test_name", "station", "day", "score", "level", "fail_level"}, func(cw *csv.Writer) error {
		for _, r := range result.Violations {
			rec := []string{
				r.TestName,
				r.Station,
				r.Day,
				strconv.Itoa(r.Assessment.Score),
				contract.GetPlainLabel(r.Assessment.Level),
				string(result.FailLevel),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
