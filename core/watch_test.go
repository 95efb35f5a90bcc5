package core

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/huangsam/cpkwatch/internal/feed"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)
}

func TestWatchView_Window(t *testing.T) {
	cfg := testConfig(t)
	view := newWatchView(cfg, &bytes.Buffer{})
	assert.Equal(t, 3, view.window)
}

func TestWatchView_SeedAndHandle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = schema.TextOut
	var out bytes.Buffer
	view := newWatchView(cfg, &out)
	view.now = fixedNow
	view.seed(fixtureRecords(t))
	assert.Equal(t, 3, view.tests())
	assert.Empty(t, out.String())

	msg := `{"date":"2025-03-14","test_name":"vbat","station":"fct","cpk":1.2,"mean":3.7,"sigma":0.03,"lsl":3.5,"usl":3.9}`
	results, err := view.handle([]byte(msg))
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "2025-03-14", r.Day)
	assert.InDelta(t, 1.2, *r.Cpk, 1e-12)
	assert.InDelta(t, -0.125, r.CpkSlope, 1e-9) // 1.45, 1.38, 1.20
	assert.Equal(t, schema.MediumRisk, r.Assessment.Level)
	assert.True(t, strings.HasPrefix(out.String(), "09:30:00 vbat"))
}

func TestWatchView_PrunesHistory(t *testing.T) {
	cfg := testConfig(t)
	view := newWatchView(cfg, &bytes.Buffer{})
	view.seed(fixtureRecords(t))
	require.Len(t, view.history["vbat"], 2)

	_, err := view.handle([]byte(`{"date":"2025-03-20","test_name":"vbat","station":"fct","cpk":1.5}`))
	require.NoError(t, err)
	assert.Len(t, view.history["vbat"], 1)
}

func TestWatchView_RepublishedDayReplacesRecord(t *testing.T) {
	cfg := testConfig(t)
	view := newWatchView(cfg, &bytes.Buffer{})

	for range 1000 {
		_, err := view.handle([]byte(`{"date":"2025-03-14","test_name":"vbat","station":"fct","cpk":1.5}`))
		require.NoError(t, err)
	}
	results, err := view.handle([]byte(`{"date":"2025-03-14T16:00:00Z","test_name":"vbat","station":"fct","cpk":1.1}`))
	require.NoError(t, err)

	require.Len(t, view.history["vbat"], 1)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.1, *results[0].Cpk, 1e-12)

	_, err = view.handle([]byte(`{"date":"not a day","test_name":"vbat","cpk":1.0}`))
	require.NoError(t, err)
	assert.Len(t, view.history["vbat"], 1)
}

func TestWatchView_FiltersAndErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestFilter = "vbat"
	view := newWatchView(cfg, &bytes.Buffer{})

	results, err := view.handle([]byte(`[{"date":"2025-03-14","test_name":"iddq","cpk":0.5},{"date":"2025-03-14","test_name":"","cpk":0.5}]`))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, view.tests())

	_, err = view.handle([]byte(`{not json`))
	assert.Error(t, err)
}

func TestWatchView_OneLinePerTest(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	view := newWatchView(cfg, &out)
	batch := `{"data":[
		{"date":"2025-03-13","test_name":"vbat","cpk":1.5},
		{"date":"2025-03-14","test_name":"vbat","cpk":1.4},
		{"date":"2025-03-14","test_name":"iddq","cpk":0.9}
	]}`
	results, err := view.handle([]byte(batch))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "vbat", results[0].TestName)
	assert.Equal(t, "iddq", results[1].TestName)
	assert.Equal(t, 2, strings.Count(out.String(), "\n")) // JSON lines
}

func TestRunWatch_RequiresURL(t *testing.T) {
	cfg := testConfig(t)
	err := runWatch(context.Background(), cfg, nil, nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--ws-url")
}

func TestRunWatch_StreamsUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"date":"2025-03-14","test_name":"vbat","station":"fct","cpk":0.8}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Output = schema.TextOut
	cfg.WSURL = "ws" + strings.TrimPrefix(server.URL, "http")
	src := calibrationSource(cfg, calibrationFixture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, cfg, src, noCaching(), out,
			feed.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }))
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "score= 90")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "📡 Watching ws://")
	assert.Contains(t, out.String(), "(3 tests with history)")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	src.AssertExpectations(t)
}
