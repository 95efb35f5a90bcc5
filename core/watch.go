package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/cpkwatch/core/agg"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/feed"
	"github.com/huangsam/cpkwatch/internal/outwriter"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/m-mizutani/ctxlog"
)

// watchView keeps the rolling per-test history of one live feed subscription.
type watchView struct {
	mu      sync.Mutex
	cfg     *contract.Config
	out     io.Writer
	now     func() time.Time
	window  int // days of history per test
	history map[string][]schema.CalibrationRecord
}

func newWatchView(cfg *contract.Config, out io.Writer) *watchView {
	window := len(agg.DayRange(cfg.StartTime, cfg.EndTime))
	if window == 0 {
		window = contract.DefaultLookbackDays
	}
	return &watchView{
		cfg:     cfg,
		out:     out,
		now:     time.Now,
		window:  window,
		history: make(map[string][]schema.CalibrationRecord),
	}
}

// seed loads history fetched over REST without printing anything.
func (v *watchView) seed(records []schema.CalibrationRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range agg.FilterCalibration(records, v.cfg.TestFilter, v.cfg.Station) {
		v.addLocked(r)
	}
}

// addLocked stores a record under its test and returns the test name.
// A newer record for a day already held replaces it. Records without a
// test name or a readable day are ignored and yield "".
func (v *watchView) addLocked(r schema.CalibrationRecord) string {
	name := strings.TrimSpace(r.TestName)
	day, ok := r.Day()
	if name == "" || !ok {
		return ""
	}
	records := v.history[name]
	for i, held := range records {
		if d, _ := held.Day(); d == day {
			records[i] = r
			return name
		}
	}
	v.history[name] = append(records, r)
	return name
}

// handle applies one feed message and prints a line per reassessed test.
func (v *watchView) handle(data []byte) ([]schema.TestRiskResult, error) {
	records, err := agg.ParseCalibrationMessage(data)
	if err != nil {
		return nil, err
	}
	records = agg.FilterCalibration(records, v.cfg.TestFilter, v.cfg.Station)

	v.mu.Lock()
	defer v.mu.Unlock()

	var touched []string
	seen := make(map[string]struct{})
	for _, r := range records {
		name := v.addLocked(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			touched = append(touched, name)
		}
	}

	results := make([]schema.TestRiskResult, 0, len(touched))
	for _, name := range touched {
		result, ok := v.reassessLocked(name)
		if !ok {
			continue
		}
		results = append(results, result)
		if err := outwriter.WriteWatchUpdate(v.out, v.now(), result, v.cfg); err != nil {
			return results, err
		}
	}
	return results, nil
}

// reassessLocked rebuilds the window ending on the newest day of a test and assesses it.
// History older than the window is pruned.
func (v *watchView) reassessLocked(name string) (schema.TestRiskResult, bool) {
	records := v.history[name]
	last := ""
	for _, r := range records {
		if d, ok := r.Day(); ok && d > last {
			last = d
		}
	}
	if last == "" {
		return schema.TestRiskResult{}, false
	}

	end, err := time.Parse(schema.DateLayout, last)
	if err != nil {
		return schema.TestRiskResult{}, false
	}
	days := agg.DayRange(end.AddDate(0, 0, -(v.window - 1)), end)

	kept := make([]schema.CalibrationRecord, 0, len(records))
	for _, r := range records {
		if d, ok := r.Day(); ok && d >= days[0] {
			kept = append(kept, r)
		}
	}
	v.history[name] = kept

	return analyzeTest(v.cfg, agg.BuildDailySeries(name, kept, days))
}

// tests returns how many tests currently hold history.
func (v *watchView) tests() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.history)
}

// ExecuteWatch subscribes to the live calibration feed and reassesses each test as records arrive.
// History of the configured window is loaded over REST first when an api-url is set.
func ExecuteWatch(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager, opts ...feed.Option) error {
	return runWatch(ctx, cfg, src, mgr, os.Stdout, opts...)
}

func runWatch(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager, out io.Writer, opts ...feed.Option) error {
	if cfg.WSURL == "" {
		return errors.New("--ws-url or --api-url is required to watch the live feed")
	}
	logger := ctxlog.From(ctx)
	view := newWatchView(cfg, out)

	if src != nil && cfg.APIURL != "" {
		records, err := agg.FetchCalibration(ctx, cfg, src, mgr)
		if err != nil {
			logger.Warn("Initial history unavailable", "error", err)
		} else {
			view.seed(records)
		}
	}

	if cfg.Output == schema.TextOut {
		outwriter.LogAnalysisHeader(out, cfg)
		_, _ = fmt.Fprintf(out, "📡 Watching %s (%d tests with history)\n", cfg.WSURL, view.tests())
	}

	hooks := feed.Hooks{
		OnOpen: func(id string) {
			logger.Info("Feed connected", "conn_id", id, "url", cfg.WSURL)
		},
		OnMessage: func(id string, data []byte) {
			if _, err := view.handle(data); err != nil {
				logger.Warn("Dropped feed message", "conn_id", id, "error", err)
			}
		},
		OnError: func(id string, err error) {
			logger.Error("Feed connection failed", "conn_id", id, "error", err)
		},
		OnClose: func(id string) {
			logger.Info("Feed disconnected", "conn_id", id)
		},
	}

	m := feed.NewManager(cfg.WSURL, hooks, append([]feed.Option{feed.WithLogger(logger)}, opts...)...)
	defer func() { _ = m.Close() }()
	return m.Run(ctx)
}
