package storage

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore reads and overwrites whole named objects. Write replaces the object
// atomically; there is no compare-and-swap, the last writer wins.
type BlobStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, contentType string, data []byte) error
	// Type returns "gcs", "s3" or "local".
	Type() string
}
