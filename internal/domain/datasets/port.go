package datasets

import (
	"context"
	"io"
	"time"
)

// Repository port for dataset records.
type Repository interface {
	Save(ctx context.Context, d *Dataset) error
	Get(ctx context.Context, id DatasetID) (*Dataset, error)
	GetByFilename(ctx context.Context, filename string) (*Dataset, error)
	List(ctx context.Context) ([]*Dataset, error)
}

// FileStore port for the raw uploaded files.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// PreviewCache port. Get reports ok=false on a miss.
type PreviewCache interface {
	Get(ctx context.Context, filename string) (*PreviewResponse, bool, error)
	Set(ctx context.Context, filename string, p *PreviewResponse, ttl time.Duration) error
	Delete(ctx context.Context, filename string) error
}
