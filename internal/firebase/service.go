package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"user_account_backend/internal/config"
	"user_account_backend/internal/shared"
)

// authClient is the part of *auth.Client the service uses.
type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
}

// Error classifiers from the Admin SDK. Replaced in tests, where SDK errors
// cannot be constructed.
var (
	isEmailAlreadyExists = auth.IsEmailAlreadyExists
	isIDTokenExpired     = auth.IsIDTokenExpired
)

// FirebaseService verifies identities against Firebase Authentication.
type FirebaseService struct {
	authClient   authClient
	relyingParty *identitytoolkit.RelyingpartyService
	checkRevoked bool
	logger       *zap.Logger
}

var _ shared.IdentityVerifier = (*FirebaseService)(nil)

// NewFirebaseService wires the Admin SDK auth client for account creation and
// token checks, and the Identity Toolkit API for password sign-in.
func NewFirebaseService(ctx context.Context, app *firebase.App, wc *WebConfig, cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(wc.APIKey))
	if err != nil {
		logger.Error("Failed to create Identity Toolkit client", zap.Error(err))
		return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}

	return newFirebaseService(client, toolkit, cfg.FirebaseCheckRevoked, logger), nil
}

func newFirebaseService(client authClient, toolkit *identitytoolkit.Service, checkRevoked bool, logger *zap.Logger) *FirebaseService {
	return &FirebaseService{
		authClient:   client,
		relyingParty: toolkit.Relyingparty,
		checkRevoked: checkRevoked,
		logger:       logger.Named("firebase"),
	}
}

// CreateAccount registers email/password upstream and returns the new uid.
func (s *FirebaseService) CreateAccount(ctx context.Context, email, password string) (shared.ExternalID, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	record, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		if isEmailAlreadyExists(err) {
			s.logger.Info("Account creation rejected, email already registered", zap.String("email", email))
			return "", fmt.Errorf("%w: %v", shared.ErrDuplicateAccount, err)
		}
		if isRejectedUserInput(err) {
			s.logger.Info("Account creation rejected by input validation", zap.Error(err))
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
		}
		s.logger.Error("Failed to create Firebase user", zap.Error(err))
		return "", fmt.Errorf("failed to create firebase user: %w", err)
	}

	s.logger.Info("Firebase user created", zap.String("uid", record.UID))
	return shared.ExternalID(record.UID), nil
}

// isRejectedUserInput reports the SDK's client-side checks on UserToCreate,
// which fail before any request is sent.
func isRejectedUserInput(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "password must be") || strings.Contains(msg, "malformed email")
}

// SignIn exchanges email and password for an ID token.
func (s *FirebaseService) SignIn(ctx context.Context, email, password string) (*shared.SignInResult, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := s.relyingParty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		return nil, s.classifySignInError(err)
	}
	if resp.IdToken == "" || resp.LocalId == "" {
		return nil, errors.New("identity toolkit returned an incomplete sign-in response")
	}

	s.logger.Debug("Password sign-in succeeded", zap.String("uid", resp.LocalId))
	return &shared.SignInResult{
		SessionToken: resp.IdToken,
		ExternalID:   shared.ExternalID(resp.LocalId),
	}, nil
}

func (s *FirebaseService) classifySignInError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		s.logger.Error("Password sign-in failed", zap.Error(err))
		return fmt.Errorf("failed to sign in: %w", err)
	}

	// Messages look like "INVALID_PASSWORD" or "INVALID_PASSWORD : detail".
	reason := strings.TrimSpace(strings.SplitN(apiErr.Message, ":", 2)[0])
	switch reason {
	case "EMAIL_NOT_FOUND":
		return fmt.Errorf("%w: %s", shared.ErrUnknownEmail, reason)
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, reason)
	default:
		s.logger.Error("Password sign-in failed", zap.Int("status", apiErr.Code), zap.String("reason", reason))
		return fmt.Errorf("failed to sign in: %w", err)
	}
}

// VerifyToken checks an ID token and returns its subject.
func (s *FirebaseService) VerifyToken(ctx context.Context, token string) (shared.ExternalID, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrTokenInvalid)
	}

	var (
		decoded *auth.Token
		err     error
	)
	if s.checkRevoked {
		decoded, err = s.authClient.VerifyIDTokenAndCheckRevoked(ctx, token)
	} else {
		decoded, err = s.authClient.VerifyIDToken(ctx, token)
	}
	if err != nil {
		if isIDTokenExpired(err) {
			return "", fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", shared.ErrTokenInvalid, err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", decoded.UID))
	return shared.ExternalID(decoded.UID), nil
}
