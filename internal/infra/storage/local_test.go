package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(afero.NewMemMapFs(), "http://localhost:8000/")

	u, err := s.Put(ctx, "my data.csv", strings.NewReader("a,b\n1,2\n"), -1)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/media/my%20data.csv", u)

	ok, err := s.Exists(ctx, "my data.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Open(ctx, "my data.csv")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))
	assert.NoError(t, s.Ping(ctx))
}

func TestLocalStoreKeepsKeysFlat(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	s := NewLocal(mem, "")

	u, err := s.Put(ctx, "../../etc/x.csv", strings.NewReader("a\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, "/media/x.csv", u)
	ok, _ := afero.Exists(mem, "/x.csv")
	assert.True(t, ok)
}

func TestLocalStoreMissing(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs(), "")
	_, err := s.Open(context.Background(), "nope.csv")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	ok, err := s.Exists(context.Background(), "nope.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}
