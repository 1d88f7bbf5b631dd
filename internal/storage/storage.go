// Package storage abstracts the object store holding the parquet parts of
// the local warehouse tables.
package storage

import (
	"context"
	"errors"
	"io"
)

// ContentTypeParquet is the media type table parts are uploaded with.
const ContentTypeParquet = "application/vnd.apache.parquet"

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key  string
	Size int64
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns objects under prefix sorted by key. Keys are relative to
	// the store, so they can be passed back to Get.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
