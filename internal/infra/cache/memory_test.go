package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	p := &datasets.PreviewResponse{Filename: "a.csv", Header: []string{"x"}}
	require.NoError(t, m.Set(ctx, "a.csv", p, time.Minute))

	got, ok, err := m.Get(ctx, "a.csv")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	now = now.Add(2 * time.Minute)
	_, ok, err = m.Get(ctx, "a.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDeleteAndNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "a.csv", &datasets.PreviewResponse{}, 0))
	require.NoError(t, m.Delete(ctx, "a.csv"))
	_, ok, _ := m.Get(ctx, "a.csv")
	assert.False(t, ok)

	require.NoError(t, Noop{}.Set(ctx, "a.csv", &datasets.PreviewResponse{}, time.Hour))
	_, ok, _ = Noop{}.Get(ctx, "a.csv")
	assert.False(t, ok)
}
