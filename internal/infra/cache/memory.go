package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// Memory is an in-process PreviewCache with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	p       datasets.PreviewResponse
	expires time.Time
}

var _ datasets.PreviewCache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{now: time.Now, entries: make(map[string]memEntry)}
}

func (m *Memory) Get(_ context.Context, filename string) (*datasets.PreviewResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[filename]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, filename)
		return nil, false, nil
	}
	p := e.p
	return &p, true, nil
}

func (m *Memory) Set(_ context.Context, filename string, p *datasets.PreviewResponse, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{p: *p}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[filename] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, filename)
	return nil
}

// Noop never stores anything; every Get is a miss.
type Noop struct{}

var _ datasets.PreviewCache = Noop{}

func (Noop) Get(context.Context, string) (*datasets.PreviewResponse, bool, error) {
	return nil, false, nil
}
func (Noop) Set(context.Context, string, *datasets.PreviewResponse, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error                                       { return nil }
