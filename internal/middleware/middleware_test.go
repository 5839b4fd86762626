package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(ClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"cli": "s3cret"})(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing Authorization header"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cli", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, 0)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"db":    CheckFunc(func(context.Context) error { return nil }),
		"cache": CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, CheckStatus{Status: "healthy"}, body.Checks["db"])
	assert.Equal(t, "connection refused", body.Checks["cache"].Message)
}

func TestLoggingCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logging(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/preview/x.csv/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc-123", line["request_id"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(404), line["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("iris data.csv"))
	for _, bad := range []string{"", "../etc/passwd", "a/b.csv", `a\b.csv`, "..", "x\x00.csv", strings.Repeat("a", 256)} {
		assert.Error(t, ValidateFilename(bad), bad)
	}
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 5, ValidateLimit(5))
	assert.Equal(t, 100, ValidateLimit(1000))
}

func TestMetricsPerTask(t *testing.T) {
	m := newMetrics()
	m.recordTask("knn", true)
	m.recordTask("knn", false)
	m.recordTask("", true)

	snap := m.snapshot()
	assert.Equal(t, uint64(3), snap["tasks_total"])
	assert.Equal(t, uint64(1), snap["tasks_failed"])
	byTask := snap["tasks"].(map[string]taskCount)
	assert.Equal(t, taskCount{Runs: 2, Failed: 1}, byTask["knn"])
	assert.Equal(t, taskCount{Runs: 1}, byTask["unknown"])
}
