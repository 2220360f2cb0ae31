// File: internal/middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"user_account_backend/internal/common"
	"user_account_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	bearerChallenge       = common.AuthorizationTypeBearer
	invalidTokenChallenge = common.AuthorizationTypeBearer + ` error="invalid_token"`
)

var (
	errMissingToken = common.ErrUnauthorized.
			WithDetail("Sign in for access. Requires HTTP Bearer Token.").
			WithHeader(common.WWWAuthenticateHeader, bearerChallenge)
	errExpiredToken = common.ErrUnauthorized.
			WithDetail("Expired Token. Sign in again.").
			WithHeader(common.WWWAuthenticateHeader, invalidTokenChallenge)
	errInvalidToken = common.ErrUnauthorized.
			WithDetail("Invalid authentication credentials.").
			WithHeader(common.WWWAuthenticateHeader, invalidTokenChallenge)
)

// AuthFailureRecorder counts rejected requests by reason.
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// AuthMiddleware verifies the bearer token with the identity provider on
// every request and stores the subject under common.ExternalIDKey.
func AuthMiddleware(verifier shared.IdentityVerifier, recorder AuthFailureRecorder, logger *zap.Logger) gin.HandlerFunc {
	reject := func(c *gin.Context, reason string, apiErr *common.APIError) {
		if recorder != nil {
			recorder.RecordAuthFailure(reason)
		}
		common.RespondWithError(c, apiErr)
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeader))
		if !ok {
			logger.Debug("Bearer token missing", zap.String("path", c.Request.URL.Path))
			reject(c, "missing", errMissingToken)
			return
		}

		externalID, err := verifier.VerifyToken(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, shared.ErrTokenExpired):
			logger.Debug("Bearer token expired")
			reject(c, "expired", errExpiredToken)
			return
		case errors.Is(err, shared.ErrTokenInvalid):
			logger.Info("Bearer token rejected", zap.Error(err))
			reject(c, "invalid", errInvalidToken)
			return
		default:
			// Provider unreachable or similar; not the caller's fault.
			logger.Error("Token verification failed", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}

		c.Set(common.ExternalIDKey, externalID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.AuthorizationTypeBearer) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetExternalIDFromContext returns the verified subject, or "" outside AuthMiddleware.
func GetExternalIDFromContext(c *gin.Context) shared.ExternalID {
	val, exists := c.Get(common.ExternalIDKey)
	if !exists {
		return ""
	}
	id, _ := val.(shared.ExternalID)
	return id
}
