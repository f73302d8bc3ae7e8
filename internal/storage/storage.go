// Package storage provides read access to the objects colgroup partitions,
// on the local filesystem or in S3.
package storage

import (
	"context"
	"io"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// Common errors for storage operations. Match them with errors.Is.
var (
	ErrObjectNotFound = cgerrors.NewStorageError(cgerrors.CodeObjectNotFound, "object not found", nil)
	ErrDownloadFailed = cgerrors.NewStorageError(cgerrors.CodeDownloadFailed, "download failed", nil)
)

// ObjectStorage abstracts read access to object storage.
// Implementations are S3 and the local filesystem.
type ObjectStorage interface {
	// Open returns a reader over the object's content. The caller must
	// close it.
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)

	// Download copies an object to a local file, for readers that need a
	// seekable path (SQLite).
	Download(ctx context.Context, objectPath, localPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)
}

func notFound(objectPath string) error {
	return cgerrors.NewStorageError(cgerrors.CodeObjectNotFound, "object not found", nil).
		WithDetails(map[string]interface{}{"path": objectPath})
}

func downloadFailed(objectPath string, cause error) error {
	return cgerrors.NewStorageError(cgerrors.CodeDownloadFailed, "download failed", cause).
		WithDetails(map[string]interface{}{"path": objectPath})
}
