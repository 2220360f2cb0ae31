package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"user_account_backend/internal/shared"
)

// LocalStore keeps objects on the filesystem as {root}/{bucket}/{path}.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

var _ shared.ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates root if needed.
func NewLocalStore(root string, logger *zap.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", root), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", root, err)
	}
	logger.Info("Local object store initialized", zap.String("storagePath", root))
	return &LocalStore{root: root, logger: logger}, nil
}

func (s *LocalStore) resolve(objectPath, bucket string) (string, error) {
	cleanBucket, err := cleanObjectPath(bucket)
	if err != nil {
		return "", fmt.Errorf("invalid bucket: %w", err)
	}
	cleanPath, err := cleanObjectPath(objectPath)
	if err != nil {
		s.logger.Warn("Rejected object path", zap.String("path", objectPath), zap.Error(err))
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleanBucket), filepath.FromSlash(cleanPath)), nil
}

// Upload writes r to the object path, replacing any previous content.
func (s *LocalStore) Upload(_ context.Context, r io.Reader, objectPath, bucket, _ string) error {
	fullPath, err := s.resolve(objectPath, bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		s.logger.Error("Failed to create object directory", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to create directory for %s: %w", objectPath, err)
	}

	// Write to a temp file and rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.logger.Error("Failed to write object", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to save object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save object: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save object: %w", err)
	}

	s.logger.Info("Object stored", zap.String("bucket", bucket), zap.String("path", objectPath))
	return nil
}

// Download returns the stored bytes or shared.ErrObjectNotFound.
func (s *LocalStore) Download(_ context.Context, objectPath, bucket string) ([]byte, error) {
	fullPath, err := s.resolve(objectPath, bucket)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", shared.ErrObjectNotFound, bucket, objectPath)
		}
		s.logger.Error("Failed to read object", zap.String("path", fullPath), zap.Error(err))
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}
