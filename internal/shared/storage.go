// File: internal/shared/storage.go
package shared

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStore.Download when nothing is stored at the path.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore puts and gets opaque blobs by bucket and path. Uploading to an
// existing path overwrites it.
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, path, bucket, contentType string) error
	Download(ctx context.Context, path, bucket string) ([]byte, error)
}
