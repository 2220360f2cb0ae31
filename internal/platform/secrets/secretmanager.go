package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// SecretManagerSource reads the latest version of each secret from Google
// Cloud Secret Manager.
type SecretManagerSource struct {
	client  versionAccessor
	project string
	logger  *zap.Logger
}

// NewSecretManagerSource uses Application Default Credentials.
func NewSecretManagerSource(ctx context.Context, project string, logger *zap.Logger) (*SecretManagerSource, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		logger.Error("Failed to create Secret Manager client", zap.Error(err))
		return nil, fmt.Errorf("error creating secret manager client: %w", err)
	}
	return &SecretManagerSource{client: client, project: project, logger: logger}, nil
}

func (s *SecretManagerSource) Lookup(ctx context.Context, name string) ([]byte, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name)
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, resource)
		}
		s.logger.Error("Failed to access secret version", zap.String("secret", resource), zap.Error(err))
		return nil, fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	s.logger.Debug("Secret fetched", zap.String("secret", resource))
	return resp.GetPayload().GetData(), nil
}

func (s *SecretManagerSource) Close() error {
	return s.client.Close()
}
