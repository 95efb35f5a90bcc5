// Package outwriter has output and writer logic.
package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"golang.org/x/term"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// dispatch routes a result to the writer of the configured output mode.
// Modes a result does not support fall back to an error.
func dispatch(cfg *contract.Config, text, csvFn, jsonFn func(io.Writer) error) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, jsonFn, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, csvFn, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for risk reports")
	default:
		return writeWithFile(cfg.OutputFile, text, "Wrote table")
	}
	return nil
}

// fmtNum renders an optional value at the configured precision.
func fmtNum(v *float64, precision int) string {
	return schema.FormatFixed(v, precision)
}

// fmtPercent renders a probability as a percentage, or "-" when missing.
func fmtPercent(p *float64, precision int) string {
	v, ok := schema.Finite(p)
	if !ok {
		return "-"
	}
	scaled := v * 100
	return schema.FormatFixed(&scaled, precision) + "%"
}

// fmtSlope renders a per-day slope with a sign.
func fmtSlope(v float64) string {
	return fmt.Sprintf("%+.3f", v)
}

// terminalWidth returns the width override, the detected terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detected
}

// GetMaxTableNameWidth calculates the maximum width for test names in table output.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	// Rank, Station, Day, Cpk, Sigma, P(OOS), Score, Level and borders
	available := terminalWidth(cfg) - 80
	return min(max(available, 12), 40)
}

// GetMaxReasonWidth calculates the space left for the reasons column.
func GetMaxReasonWidth(cfg *contract.Config) int {
	available := terminalWidth(cfg) - 80 - GetMaxTableNameWidth(cfg)
	return min(max(available, 24), 80)
}

// joinReasons flattens reasons for single-line output.
func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}

// LogAnalysisHeader prints a concise, 2-line header for each analysis phase.
func LogAnalysisHeader(w io.Writer, cfg *contract.Config) {
	station := string(cfg.Station)
	if station == "" {
		station = "all"
	}
	_, _ = fmt.Fprintf(w, "🔎 Backend: %s (Station: %s)\n", cfg.APIURL, station)
	_, _ = fmt.Fprintf(w, "📅 Range: %s → %s\n", cfg.StartTime.Format(contract.DateTimeFormat), cfg.EndTime.Format(contract.DateTimeFormat))
}

// levelLabel colors the level label unless colors are disabled.
func levelLabel(level schema.RiskLevel, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(level)
	}
	return contract.GetPlainLabel(level)
}
