package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteFailures outputs the daily station table and the tester drilldown.
func WriteFailures(report schema.FailureReport, cfg *contract.Config, duration time.Duration) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeFailuresTable(w, report, cfg, duration) },
		func(w io.Writer) error { return writeFailuresCSV(w, report) },
		func(w io.Writer) error { return writeJSON(w, report) },
	)
}

func stationHeader() []string {
	header := []string{"Day"}
	for _, st := range schema.AllStations {
		header = append(header, strings.ToUpper(string(st)))
	}
	return append(header, "Total")
}

func writeFailuresTable(w io.Writer, report schema.FailureReport, cfg *contract.Config, duration time.Duration) error {
	daily := tablewriter.NewWriter(w)
	daily.Header(stationHeader())
	daily.Configure(func(c *tablewriter.Config) {
		// Station names are identifiers; keep BURN_IN as written.
		c.Header.Formatting.AutoFormat = tw.Off
		c.Row.Alignment.Global = tw.AlignRight
	})

	var totals schema.StationCounts
	rows := make([][]string, 0, len(report.Days)+1)
	for _, d := range report.Days {
		row := []string{d.Day}
		for _, st := range schema.AllStations {
			n := d.Counts.Get(st)
			totals.Add(st, n)
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, append(row, strconv.Itoa(d.Total)))
	}
	sum := []string{"Total"}
	for _, st := range schema.AllStations {
		sum = append(sum, strconv.Itoa(totals.Get(st)))
	}
	rows = append(rows, append(sum, strconv.Itoa(totals.Total())))

	if err := daily.Bulk(rows); err != nil {
		return err
	}
	if err := daily.Render(); err != nil {
		return err
	}

	if len(report.Testers) > 0 {
		testers := tablewriter.NewWriter(w)
		testers.Header([]string{"Rank", "Tester", "Station", "Failures", "Tests"})
		testers.Configure(func(c *tablewriter.Config) {
			c.Row.Alignment.Global = tw.AlignRight
		})
		testWidth := GetMaxReasonWidth(cfg)
		data := make([][]string, 0, len(report.Testers))
		for i, t := range report.Testers {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				contract.TruncateName(t.TesterID, GetMaxTableNameWidth(cfg)),
				string(t.Station),
				strconv.Itoa(t.Count),
				contract.TruncateName(strings.Join(t.Tests, ", "), testWidth),
			})
		}
		if err := testers.Bulk(data); err != nil {
			return err
		}
		if err := testers.Render(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Showing %d days and %d testers. Analysis completed in %v\n",
		len(report.Days), len(report.Testers), duration.Round(time.Millisecond))
	return err
}

// writeFailuresCSV writes one row per day and station.
func writeFailuresCSV(w io.Writer, report schema.FailureReport) error {
	return writeCSVWithHeader(w, []string{"day", "station", "failures"}, func(cw *csv.Writer) error {
		for _, d := range report.Days {
			for _, st := range schema.AllStations {
				if err := cw.Write([]string{d.Day, string(st), strconv.Itoa(d.Counts.Get(st))}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
