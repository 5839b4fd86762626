package middleware

import (
	"net/http"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// taskCount is the per-task-name tally served under "tasks".
type taskCount struct {
	Runs   uint64 `json:"runs"`
	Failed uint64 `json:"failed"`
}

// Metrics holds process-wide counters.
type Metrics struct {
	requests   atomic.Uint64
	inProgress atomic.Int64
	success    atomic.Uint64
	failed     atomic.Uint64
	uploads    atomic.Uint64

	mu    sync.Mutex
	tasks map[string]*taskCount

	start time.Time
}

var globalMetrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{tasks: map[string]*taskCount{}, start: time.Now()}
}

// IncrementUploads counts stored datasets.
func IncrementUploads() { globalMetrics.uploads.Add(1) }

// RecordTask counts one process, classify or evaluate run of task.
func RecordTask(task string, ok bool) { globalMetrics.recordTask(task, ok) }

func (m *Metrics) recordTask(task string, ok bool) {
	if task == "" {
		task = "unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, found := m.tasks[task]
	if !found {
		c = &taskCount{}
		m.tasks[task] = c
	}
	c.Runs++
	if !ok {
		c.Failed++
	}
}

func (m *Metrics) snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.Lock()
	names := make([]string, 0, len(m.tasks))
	for name := range m.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	var total, failed uint64
	byTask := make(map[string]taskCount, len(names))
	for _, name := range names {
		c := *m.tasks[name]
		byTask[name] = c
		total += c.Runs
		failed += c.Failed
	}
	m.mu.Unlock()

	return map[string]any{
		"requests_total":       m.requests.Load(),
		"requests_in_progress": m.inProgress.Load(),
		"requests_success":     m.success.Load(),
		"requests_failed":      m.failed.Load(),
		"uploads_total":        m.uploads.Load(),
		"tasks_total":          total,
		"tasks_failed":         failed,
		"tasks":                byTask,
		"uptime_seconds":       time.Since(m.start).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]any { return globalMetrics.snapshot() }

// MetricsMiddleware counts requests by outcome; 4xx and 5xx are failures.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.requests.Add(1)
		globalMetrics.inProgress.Add(1)
		defer globalMetrics.inProgress.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < 400 {
			globalMetrics.success.Add(1)
		} else {
			globalMetrics.failed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, GetMetrics())
}
