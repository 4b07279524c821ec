package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/metrics"
	"rrtimeline/internal/models"
	"rrtimeline/internal/results"
	"rrtimeline/internal/scene"
	"rrtimeline/internal/storage"
	"rrtimeline/internal/transition"
)

type fixture struct {
	store *storage.ProcessStore
	view  *results.Component
	ts    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := storage.NewProcessStore("")
	require.NoError(t, err)
	calc := metrics.NewCalculator()
	calc.Bind(store.Changes())
	t.Cleanup(calc.Stop)

	c := chart.New(chart.DefaultLayout(), transition.SystemClock, logger)
	view := results.New(c, results.Sources{
		Processes:             store.Changes(),
		AverageWaitingTime:    calc.AverageWaitingTime(),
		AverageTurnaroundTime: calc.AverageTurnaroundTime(),
	}, chart.DefaultHostID, logger)
	view.Mount(scene.NewDocument(chart.DefaultHostID))
	t.Cleanup(view.Unmount)

	srv := New(":0", store, view, 10*time.Millisecond, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{store: store, view: view, ts: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

var sample = `[
	{"process":"P0","timeStarts":[0,4],"timeEnds":[2,6]},
	{"process":"P1","arrivalTime":1,"timeStarts":[2,6],"timeEnds":[4,7]}
]`

func TestServer_ProcessLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/processes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	resp, _ = f.do(t, http.MethodPut, "/api/processes", sample)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, f.store.Snapshot(), 2)

	resp, _ = f.do(t, http.MethodPost, "/api/processes", `{"process":"P2","timeStarts":[7],"timeEnds":[9]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, f.store.Snapshot(), 3)

	resp, _ = f.do(t, http.MethodDelete, "/api/processes/P0", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/processes/P0", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/api/intervals", "")
	var records []models.IntervalRecord
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	assert.Equal(t, []models.IntervalRecord{
		{ProcessName: "P1", StartTime: 2, EndTime: 4},
		{ProcessName: "P1", StartTime: 6, EndTime: 7},
		{ProcessName: "P2", StartTime: 7, EndTime: 9},
	}, records)
}

func TestServer_RejectsBadBodies(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		body   string
	}{
		{name: "malformed json", method: http.MethodPut, body: `[{"process":`},
		{name: "unknown field", method: http.MethodPost, body: `{"process":"P0","colour":"red"}`},
		{name: "missing name in list", method: http.MethodPut, body: `[{"timeStarts":[0],"timeEnds":[1]}]`},
		{name: "missing name", method: http.MethodPost, body: `{"process":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, tt.method, "/api/processes", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body, `"error"`)
		})
	}
	assert.Empty(t, f.store.Snapshot())
}

func TestServer_StatsAndChart(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/processes", sample)

	resp, body := f.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats statsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, models.Stats{AverageWaitingTime: 2.5, AverageTurnaroundTime: 6}, stats.Stats)
	assert.Equal(t, "2.5 units", stats.Display.AverageWaitingTime)
	assert.Equal(t, "6 units", stats.Display.AverageTurnaroundTime)

	resp, body = f.do(t, http.MethodGet, "/api/chart.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "<svg"))
	assert.Contains(t, body, `data-process="P0"`)
	assert.Contains(t, body, `data-process="P1"`)
}

func TestServer_ChartUnavailableWhenUnmounted(t *testing.T) {
	f := newFixture(t)
	f.view.Unmount()

	resp, _ := f.do(t, http.MethodGet, "/api/chart.svg", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_StaticAssets(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="chart"`)

	resp, _ = f.do(t, http.MethodGet, "/static/style.css", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_LivePushesOnChange(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first liveFrame
	require.NoError(t, conn.ReadJSON(&first))
	assert.True(t, strings.HasPrefix(first.SVG, "<svg"))

	require.NoError(t, f.store.Replace([]models.ProcessEntry{
		{Process: "P0", TimeStarts: []float64{0}, TimeEnds: []float64{3}},
	}))

	var next liveFrame
	for !strings.Contains(next.SVG, `data-process="P0"`) {
		require.NoError(t, conn.ReadJSON(&next))
	}
	assert.Greater(t, next.Revision, first.Revision)
	assert.Contains(t, next.SVG, `data-process="P0"`)
	assert.Equal(t, 3.0, next.Stats.AverageTurnaroundTime)
}

func TestServer_LiveRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
