package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"user_account_backend/internal/config"
	"user_account_backend/internal/shared"
)

// MinIOStore keeps objects in a MinIO server.
type MinIOStore struct {
	client *minio.Client
	logger *zap.Logger
}

var _ shared.ObjectStore = (*MinIOStore)(nil)

// NewMinIOStore connects to MINIO_ENDPOINT and makes sure the configured
// bucket exists.
func NewMinIOStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*MinIOStore, error) {
	if cfg.MinIOEndpoint == "" {
		return nil, errors.New("minio object store requires MINIO_ENDPOINT")
	}
	mc, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, cfg.StorageBucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
		exists, xerr := mc.BucketExists(ctx, cfg.StorageBucket)
		if xerr != nil || !exists {
			logger.Error("Failed to ensure MinIO bucket", zap.String("bucket", cfg.StorageBucket), zap.Error(err))
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}

	logger.Info("MinIO object store initialized", zap.String("endpoint", cfg.MinIOEndpoint))
	return &MinIOStore{client: mc, logger: logger}, nil
}

func (s *MinIOStore) Upload(ctx context.Context, r io.Reader, objectPath, bucket, contentType string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	body, size, err := readAllSized(r)
	if err != nil {
		return err
	}

	if _, err := s.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		s.logger.Error("Failed to upload object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Info("Object stored", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

func (s *MinIOStore) Download(ctx context.Context, objectPath, bucket string) ([]byte, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.downloadError(bucket, key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		return nil, s.downloadError(bucket, key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *MinIOStore) downloadError(bucket, key string, err error) error {
	if isMinIONotFound(err) {
		return fmt.Errorf("%w: %s/%s", shared.ErrObjectNotFound, bucket, key)
	}
	s.logger.Error("Failed to download object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
	return fmt.Errorf("failed to download object: %w", err)
}

func isMinIONotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
