package router

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrics-dashboard/internal/config"
	"metrics-dashboard/internal/domain"
	"metrics-dashboard/internal/endpoints"
	"metrics-dashboard/internal/repository"
	"metrics-dashboard/internal/telemetry"
	"metrics-dashboard/internal/util"
)

const testAPIKey = "router-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{APIKey: testAPIKey, TelemetryPath: "/prometheus"}
	return NewRouter(store, cfg, &util.MetricsLogger{}, telemetry.New())
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postMetric(t *testing.T, h http.Handler, key string, fields url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("api_key", key)
	req := httptest.NewRequest(http.MethodPost, "/metrics", strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, h, req)
}

func getMetrics(t *testing.T, h http.Handler, query string) []domain.MetricView {
	t.Helper()
	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics"+query, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var views []domain.MetricView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	return views
}

func truncate(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/truncate-metrics", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, h, req)
}

func TestRouter_AddThenGet(t *testing.T) {
	h := newTestRouter(t)

	rr := postMetric(t, h, testAPIKey, url.Values{"value": {"42.5"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":1,"message":"Metric added successfully"}`, rr.Body.String())

	views := getMetrics(t, h, "")
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].ID)
	assert.InDelta(t, 42.5, views[0].Value, 1e-9)

	ts, err := time.Parse(time.RFC3339Nano, views[0].Timestamp)
	require.NoError(t, err, "timestamp should be ISO-8601")
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
	assert.True(t, strings.HasSuffix(views[0].Timestamp, "Z"))

	rr = postMetric(t, h, testAPIKey, url.Values{"value": {"0.1"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created endpoints.CreatedBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, int64(2), created.ID)
}

func TestRouter_RejectedWritesLeaveStateUnchanged(t *testing.T) {
	h := newTestRouter(t)

	require.Equal(t, http.StatusCreated, postMetric(t, h, testAPIKey, url.Values{"value": {"1"}}).Code)
	before := getMetrics(t, h, "")

	for _, key := range []string{"", "wrong", testAPIKey + "x", strings.ToUpper(testAPIKey)} {
		assert.Equal(t, http.StatusUnauthorized, postMetric(t, h, key, url.Values{"value": {"2"}}).Code, "key %q", key)
		assert.Equal(t, http.StatusUnauthorized, truncate(t, h, key).Code, "key %q", key)
	}

	rr := postMetric(t, h, testAPIKey, url.Values{"value": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid value - must be a number"}`, rr.Body.String())

	assert.Equal(t, before, getMetrics(t, h, ""))
}

func TestRouter_OrderingAndRanges(t *testing.T) {
	h := newTestRouter(t)
	now := time.Now().UTC()

	for _, offset := range []time.Duration{-2 * time.Minute, -30 * time.Hour, -90 * time.Minute, -59 * time.Minute, -6 * time.Hour} {
		rr := postMetric(t, h, testAPIKey, url.Values{
			"value":     {"1"},
			"timestamp": {now.Add(offset).Format(time.RFC3339Nano)},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	assertSorted := func(views []domain.MetricView) {
		for i := 1; i < len(views); i++ {
			prev, _ := time.Parse(time.RFC3339Nano, views[i-1].Timestamp)
			cur, _ := time.Parse(time.RFC3339Nano, views[i].Timestamp)
			assert.False(t, cur.Before(prev), "readings must be ascending by timestamp")
		}
	}

	all := getMetrics(t, h, "")
	assert.Len(t, all, 5)
	assertSorted(all)
	assert.Equal(t, int64(2), all[0].ID, "oldest reading first")

	assert.Len(t, getMetrics(t, h, "?range=24h"), 4)
	assert.Len(t, getMetrics(t, h, "?range=5h"), 3)
	oneHour := getMetrics(t, h, "?range=1h")
	assert.Len(t, oneHour, 2)
	assertSorted(oneHour)
	assert.Len(t, getMetrics(t, h, "?range=forever"), 5, "unrecognized range behaves as omitted")
}

func TestRouter_TruncateScenario(t *testing.T) {
	h := newTestRouter(t)

	for _, v := range []string{"1", "2", "3"} {
		require.Equal(t, http.StatusCreated, postMetric(t, h, testAPIKey, url.Values{"value": {v}}).Code)
	}

	rr := truncate(t, h, testAPIKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Metrics table reset successfully"}`, rr.Body.String())

	for _, q := range []string{"", "?range=1h", "?range=5h", "?range=24h"} {
		assert.Empty(t, getMetrics(t, h, q), "range %q after reset", q)
	}

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = postMetric(t, h, testAPIKey, url.Values{"value": {"9"}})
	assert.JSONEq(t, `{"id":1,"message":"Metric added successfully"}`, rr.Body.String(), "id restarts after reset")
}

func TestRouter_MethodsAndUnknownRoutes(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, httptest.NewRequest(http.MethodDelete, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/truncate-metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestRouter_HealthTelemetryAndRequestID(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader), "a request id should be assigned")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = do(t, h, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))

	postMetric(t, h, testAPIKey, url.Values{"value": {"5"}})
	postMetric(t, h, "bad", url.Values{"value": {"5"}})

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/prometheus", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `metrics_dashboard_http_requests_total{method="POST",route="/metrics",status="201"} 1`)
	assert.Contains(t, body, `metrics_dashboard_http_requests_total{method="POST",route="/metrics",status="401"} 1`)
	assert.Contains(t, body, "metrics_dashboard_readings_ingested_total 1")
}

func TestRouter_UnmatchedRequestsGoThroughMiddleware(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader), "404 responses carry a request id")

	req := httptest.NewRequest(http.MethodDelete, "/metrics", nil)
	req.Header.Set(RequestIDHeader, "del-1")
	rr = do(t, h, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "del-1", rr.Header().Get(RequestIDHeader))

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/prometheus", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `metrics_dashboard_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `metrics_dashboard_http_requests_total{method="DELETE",route="unmatched",status="405"} 1`)
}

func TestRouter_TelemetryDisabled(t *testing.T) {
	store := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, store.Init())
	defer store.Close()

	h := NewRouter(store, &config.Config{APIKey: testAPIKey}, &util.MetricsLogger{}, telemetry.New())
	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/prometheus", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := NewServer(addr, newTestRouter(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, server, &util.MetricsLogger{}) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
