package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// LocalStore keeps uploads in a flat directory. Files are served back under
// /media/ so the returned URL ends with the stored filename.
type LocalStore struct {
	fs      afero.Fs
	baseURL string
}

var _ datasets.FileStore = (*LocalStore)(nil)

// NewLocalDisk stores files under root on the OS filesystem.
func NewLocalDisk(root, baseURL string) (*LocalStore, error) {
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return NewLocal(afero.NewBasePathFs(osfs, root), baseURL), nil
}

// NewLocal wraps any afero filesystem; tests pass afero.NewMemMapFs().
func NewLocal(fsys afero.Fs, baseURL string) *LocalStore {
	return &LocalStore{fs: fsys, baseURL: strings.TrimRight(baseURL, "/")}
}

func name(key string) string { return "/" + path.Base(key) }

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64) (string, error) {
	if err := afero.WriteReader(s.fs, name(key), r); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return s.baseURL + "/media/" + url.PathEscape(path.Base(key)), nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(name(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("File not found.")
	}
	return f, err
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	return afero.Exists(s.fs, name(key))
}

func (s *LocalStore) Ping(_ context.Context) error {
	_, err := s.fs.Stat("/")
	return err
}
