// Package blobstore abstracts read access to provider source files.
//
// Providers parse their databases through a Store, so pointing a load at
// local files, S3 or MinIO needs no provider changes. Stores are read-only:
// the index itself is never persisted.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is a read-only source of named blobs.
type Store interface {
	// Open opens a blob for sequential reading. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
