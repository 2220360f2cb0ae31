package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbstorage "firebase.google.com/go/v4/storage"
	"go.uber.org/zap"

	"user_account_backend/internal/shared"
)

// GCSStore keeps objects in Cloud Storage through the Firebase Admin SDK.
type GCSStore struct {
	client *fbstorage.Client
	logger *zap.Logger
}

var _ shared.ObjectStore = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context, app *firebase.App, logger *zap.Logger) (*GCSStore, error) {
	if app == nil {
		return nil, errors.New("gcs object store requires a firebase app")
	}
	client, err := app.Storage(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Storage client", zap.Error(err))
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}
	return &GCSStore{client: client, logger: logger}, nil
}

func (s *GCSStore) object(objectPath, bucket string) (*gcs.ObjectHandle, error) {
	cleanPath, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	bh, err := s.client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("error getting bucket %s: %w", bucket, err)
	}
	return bh.Object(cleanPath), nil
}

func (s *GCSStore) Upload(ctx context.Context, r io.Reader, objectPath, bucket, contentType string) error {
	obj, err := s.object(objectPath, bucket)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to upload object", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize object upload", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("Object stored", zap.String("bucket", bucket), zap.String("path", objectPath))
	return nil
}

func (s *GCSStore) Download(ctx context.Context, objectPath, bucket string) ([]byte, error) {
	obj, err := s.object(objectPath, bucket)
	if err != nil {
		return nil, err
	}

	rc, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", shared.ErrObjectNotFound, bucket, objectPath)
		}
		s.logger.Error("Failed to open object", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}
