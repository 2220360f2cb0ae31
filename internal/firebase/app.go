package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"user_account_backend/internal/config"
	"user_account_backend/internal/platform/secrets"
)

// WebConfig is the subset of the Firebase web app configuration the backend needs.
type WebConfig struct {
	APIKey        string `json:"apiKey"`
	ProjectID     string `json:"projectId"`
	StorageBucket string `json:"storageBucket"`
}

// LoadWebConfig reads the web config secret and applies FIREBASE_API_KEY on top.
// A missing secret is tolerated when the API key is configured directly.
func LoadWebConfig(ctx context.Context, cfg *config.Config, src secrets.Source) (*WebConfig, error) {
	var wc WebConfig
	raw, err := src.Lookup(ctx, secrets.FirebaseWebConfig)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &wc); err != nil {
			return nil, fmt.Errorf("error parsing firebase web config: %w", err)
		}
	case errors.Is(err, secrets.ErrSecretNotFound) && cfg.FirebaseAPIKey != "":
	default:
		return nil, fmt.Errorf("error loading firebase web config: %w", err)
	}

	if cfg.FirebaseAPIKey != "" {
		wc.APIKey = cfg.FirebaseAPIKey
	}
	if wc.APIKey == "" {
		return nil, errors.New("firebase web config has no apiKey")
	}
	return &wc, nil
}

// NewApp initializes the Firebase Admin SDK from the service account secret.
func NewApp(ctx context.Context, cfg *config.Config, wc *WebConfig, src secrets.Source, logger *zap.Logger) (*firebase.App, error) {
	creds, err := src.Lookup(ctx, secrets.FirebaseServiceAccountKey)
	if err != nil {
		logger.Error("Firebase service account key is not available", zap.Error(err))
		return nil, fmt.Errorf("error loading firebase service account key: %w", err)
	}

	conf := &firebase.Config{
		ProjectID:     wc.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsJSON(creds))
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.", zap.String("projectID", wc.ProjectID))
	return app, nil
}
