// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// WWWAuthenticateHeader is set on 401 responses
	WWWAuthenticateHeader = "WWW-Authenticate"
	// ExternalIDKey is the context key for the verified identity-provider subject id
	ExternalIDKey = "externalID"
	// LoggerKey is the context key for a request-scoped *zap.Logger
	LoggerKey = "logger"
)
