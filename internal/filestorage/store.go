// File: internal/filestorage/store.go
package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"user_account_backend/internal/config"
	"user_account_backend/internal/shared"
)

// NewObjectStore builds the driver selected by OBJECT_STORE_DRIVER. The
// Firebase app is only used by the gcs driver.
func NewObjectStore(ctx context.Context, cfg *config.Config, app *firebase.App, logger *zap.Logger) (shared.ObjectStore, error) {
	logger = logger.Named("objectstore").With(zap.String("driver", cfg.ObjectStoreDriver))

	switch cfg.ObjectStoreDriver {
	case config.ObjectStoreGCS:
		return NewGCSStore(ctx, app, logger)
	case config.ObjectStoreS3:
		return NewS3Store(ctx, cfg, logger)
	case config.ObjectStoreMinIO:
		return NewMinIOStore(ctx, cfg, logger)
	case config.ObjectStoreLocal:
		return NewLocalStore(cfg.LocalStoragePath, logger)
	default:
		return nil, fmt.Errorf("unsupported object store driver %q", cfg.ObjectStoreDriver)
	}
}

// cleanObjectPath normalises a slash-separated object path and rejects any
// path that is empty or escapes its bucket.
func cleanObjectPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("object path cannot be empty")
	}
	if strings.Contains(p, "\\") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}

// readAllSized buffers r so drivers that need a length or a seekable body
// can send it. Uploads are bounded by MAX_UPLOAD_SIZE_MB upstream.
func readAllSized(r io.Reader) (*bytes.Reader, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read upload: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
