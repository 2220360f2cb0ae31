// File: internal/platform/secrets/secrets.go
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"user_account_backend/internal/config"

	"go.uber.org/zap"
)

// Names of the secrets read at start-up.
const (
	FirebaseServiceAccountKey = "FIREBASE_SERVICE_ACCOUNT_KEY_FILE"
	FirebaseWebConfig         = "FIREBASE_CONFIG_FILE"
)

// ErrSecretNotFound is returned when a secret name has no value in the backend.
var ErrSecretNotFound = errors.New("secret not found")

// Source looks up secret payloads by name.
type Source interface {
	Lookup(ctx context.Context, name string) ([]byte, error)
}

// NewSource builds the backend selected by SECRETS_BACKEND.
func NewSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Source, func(), error) {
	switch cfg.SecretsBackend {
	case config.SecretsBackendGCP:
		src, err := NewSecretManagerSource(ctx, cfg.GoogleCloudProject, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn("Error closing Secret Manager client", zap.Error(err))
			}
		}, nil
	case config.SecretsBackendFile:
		return NewFileSource(map[string]string{
			FirebaseServiceAccountKey: cfg.FirebaseServiceAccountKeyPath,
			FirebaseWebConfig:         cfg.FirebaseConfigPath,
		}, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported secrets backend %q", cfg.SecretsBackend)
	}
}

// FileSource reads each secret from a file on disk.
type FileSource struct {
	paths  map[string]string
	logger *zap.Logger
}

func NewFileSource(paths map[string]string, logger *zap.Logger) *FileSource {
	return &FileSource{paths: paths, logger: logger}
}

func (s *FileSource) Lookup(_ context.Context, name string) ([]byte, error) {
	path := s.paths[name]
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrSecretNotFound, name, path)
		}
		s.logger.Error("Failed to read secret file", zap.String("secret", name), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	return data, nil
}
