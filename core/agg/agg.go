// Package agg has aggregation logic for calibration and failure records.
package agg

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/schema"
)

// DayRange returns every calendar day from start to end inclusive, in UTC.
// An inverted window yields nil.
func DayRange(start, end time.Time) []string {
	first := truncateDay(start)
	last := truncateDay(end)
	if last.Before(first) {
		return nil
	}
	var days []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(schema.DateLayout))
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FilterCalibration keeps records whose test name contains testFilter (case-insensitive)
// and whose station matches. Empty filters match everything.
func FilterCalibration(records []schema.CalibrationRecord, testFilter string, station schema.Station) []schema.CalibrationRecord {
	needle := strings.ToLower(strings.TrimSpace(testFilter))
	out := make([]schema.CalibrationRecord, 0, len(records))
	for _, r := range records {
		if needle != "" && !strings.Contains(strings.ToLower(r.TestName), needle) {
			continue
		}
		if station != "" {
			st, err := schema.ParseStation(r.Station)
			if err != nil || st != station {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// GroupByTest buckets records by test name. The returned names are sorted.
// Records without a test name are dropped.
func GroupByTest(records []schema.CalibrationRecord) ([]string, map[string][]schema.CalibrationRecord) {
	groups := make(map[string][]schema.CalibrationRecord)
	for _, r := range records {
		name := strings.TrimSpace(r.TestName)
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], r)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, groups
}

// BuildDailySeries lays the records of one test onto the given days.
// Days without a record keep nil values. When a day has several records, the last one wins.
func BuildDailySeries(testName string, records []schema.CalibrationRecord, days []string) schema.DailySeries {
	byDay := make(map[string]schema.CalibrationRecord, len(records))
	for _, r := range records {
		day, ok := r.Day()
		if !ok {
			continue
		}
		byDay[day] = r
	}

	points := make([]schema.DailyPoint, len(days))
	for i, day := range days {
		points[i] = schema.DailyPoint{Day: day}
		r, ok := byDay[day]
		if !ok {
			continue
		}
		points[i].Station = r.Station
		points[i].Cpk = r.Cpk.Ptr()
		points[i].Mean = r.Mean.Ptr()
		points[i].Sigma = r.Sigma.Ptr()
		points[i].LSL = r.LSL.Ptr()
		points[i].USL = r.USL.Ptr()
	}
	return schema.DailySeries{TestName: testName, Points: points}
}

// LatestSampleRecord returns the most recent record that carries samples.
// On a tie the later record wins, so its limits and samples stay together.
func LatestSampleRecord(records []schema.CalibrationRecord) (schema.CalibrationRecord, bool) {
	var best schema.CalibrationRecord
	var bestDay string
	found := false
	for _, r := range records {
		day, ok := r.Day()
		if !ok || len(r.SampleValues()) == 0 {
			continue
		}
		if day >= bestDay {
			best, bestDay, found = r, day, true
		}
	}
	return best, found
}

// GroupFailuresByDay counts failures per station for every day in the window.
// Records outside the window or with an unknown station are skipped.
func GroupFailuresByDay(records []schema.FailureRecord, days []string) []schema.DailyFailures {
	index := make(map[string]int, len(days))
	out := make([]schema.DailyFailures, len(days))
	for i, day := range days {
		index[day] = i
		out[i] = schema.DailyFailures{Day: day}
	}

	for _, r := range records {
		day, ok := schema.ParseDay(r.Date)
		if !ok {
			continue
		}
		i, ok := index[day]
		if !ok {
			continue
		}
		st, err := schema.ParseStation(r.Station)
		if err != nil {
			continue
		}
		out[i].Counts.Add(st, r.Failures())
	}

	for i := range out {
		out[i].Total = out[i].Counts.Total()
	}
	return out
}

// RankTesters builds the per-tester drilldown, optionally restricted to one station.
// Testers are sorted by count descending and then by ID. limit <= 0 keeps all.
func RankTesters(records []schema.FailureRecord, station schema.Station, limit int) []schema.TesterFailures {
	type acc struct {
		station schema.Station
		count   int
		tests   map[string]struct{}
	}
	byTester := make(map[string]*acc)

	for _, r := range records {
		id := strings.TrimSpace(r.TesterID)
		if id == "" {
			continue
		}
		st, err := schema.ParseStation(r.Station)
		if err != nil {
			continue
		}
		if station != "" && st != station {
			continue
		}
		a, ok := byTester[id]
		if !ok {
			a = &acc{station: st, tests: make(map[string]struct{})}
			byTester[id] = a
		}
		a.count += r.Failures()
		if name := strings.TrimSpace(r.TestName); name != "" {
			a.tests[name] = struct{}{}
		}
	}

	out := make([]schema.TesterFailures, 0, len(byTester))
	for id, a := range byTester {
		tests := make([]string, 0, len(a.tests))
		for name := range a.tests {
			tests = append(tests, name)
		}
		slices.Sort(tests)
		out = append(out, schema.TesterFailures{TesterID: id, Station: a.station, Count: a.count, Tests: tests})
	}

	slices.SortFunc(out, func(a, b schema.TesterFailures) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.TesterID, b.TesterID)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
