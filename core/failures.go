package core

import (
	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// BuildFailureReport lays failures onto the window days and ranks the testers.
// The station filter narrows the tester drilldown only.
func BuildFailureReport(cfg *contract.Config, records []schema.FailureRecord) schema.FailureReport {
	days := agg.DayRange(cfg.StartTime, cfg.EndTime)
	return schema.FailureReport{
		Days:    agg.GroupFailuresByDay(records, days),
		Testers: agg.RankTesters(records, cfg.Station, cfg.ResultLimit),
	}
}
