package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/monitoring"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/tracker"
)

// blockingRunner runs until its context is cancelled.
type blockingRunner struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 4)}
}

func (b *blockingRunner) Run(ctx context.Context) (*tracker.RunReport, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-ctx.Done()
	return &tracker.RunReport{RunID: "run-1", Error: ctx.Err().Error()}, ctx.Err()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_Health(t *testing.T) {
	breakers := resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	breakers.Get("groq")
	h := buildRouter(newRunController(context.Background(), newBlockingRunner()), breakers, nil)

	rr := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "closed", body.Breakers["groq"])
}

func TestBuildRouter_StartStopLifecycle(t *testing.T) {
	runner := newBlockingRunner()
	ctl := newRunController(context.Background(), runner)
	h := buildRouter(ctl, nil, nil)

	rr := do(t, h, http.MethodPost, "/runs/stop")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	<-runner.started

	rr = do(t, h, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodGet, "/runs/current")
	require.Equal(t, http.StatusOK, rr.Code)
	var st runStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.NotNil(t, st.StartedAt)

	rr = do(t, h, http.MethodPost, "/runs/stop")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	ctl.Wait()

	st = ctl.Status()
	assert.False(t, st.Running)
	require.NotNil(t, st.Last)
	assert.Equal(t, "run-1", st.Last.RunID)
	assert.Equal(t, 1, runner.calls)

	// A new run may start once the previous one has finished.
	rr = do(t, h, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	<-runner.started
	assert.True(t, ctl.Stop())
	ctl.Wait()
}

func TestRunController_BaseCancellationStopsRun(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	runner := newBlockingRunner()
	ctl := newRunController(base, runner)

	require.True(t, ctl.Start())
	<-runner.started
	cancel()

	done := make(chan struct{})
	go func() {
		ctl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after base context cancellation")
	}
	assert.False(t, ctl.Status().Running)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	h := buildRouter(newRunController(context.Background(), newBlockingRunner()), nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunController_OnDoneReceivesReport(t *testing.T) {
	runner := newBlockingRunner()
	ctl := newRunController(context.Background(), runner)
	reports := make(chan *tracker.RunReport, 1)
	ctl.onDone = func(r *tracker.RunReport) { reports <- r }

	require.True(t, ctl.Start())
	<-runner.started
	require.True(t, ctl.Stop())
	ctl.Wait()

	r := <-reports
	require.NotNil(t, r)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "context canceled", r.Error)
}

func TestBuildRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	m.Observe(&tracker.RunReport{Ingest: tracker.IngestResult{New: 2}})
	h := buildRouter(newRunController(context.Background(), newBlockingRunner()), nil, reg)

	rr := do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `disclosure_records_total{result="new"} 2`)

	h = buildRouter(newRunController(context.Background(), newBlockingRunner()), nil, nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics").Code)
}
