package interfaces

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by object stores when a key does not exist.
var ErrObjectNotFound = errors.New("objectstore: object not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// ObjectStore persists export files and expense receipts. Implementations
// exist for the local filesystem, memory, AWS S3 and MinIO.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
}
