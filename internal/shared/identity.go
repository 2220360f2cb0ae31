// File: internal/shared/identity.go
package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ExternalID is the identity provider's subject identifier. It doubles as the
// primary key of the local user record and is never generated locally.
type ExternalID string

// maxExternalIDLength matches the Firebase Authentication uid limit.
const maxExternalIDLength = 128

func (id ExternalID) String() string {
	return string(id)
}

func (id ExternalID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Validate rejects ids that cannot have come from the identity provider.
func (id ExternalID) Validate() error {
	if id.IsZero() {
		return errors.New("external id is empty")
	}
	if len(id) > maxExternalIDLength {
		return fmt.Errorf("external id exceeds %d characters", maxExternalIDLength)
	}
	if strings.ContainsAny(string(id), "/\\") {
		return fmt.Errorf("external id %q contains a path separator", string(id))
	}
	return nil
}

// Identity provider failures. Implementations wrap the upstream error.
var (
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrUnknownEmail       = errors.New("no account is registered for this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// SignInResult is returned by a successful password sign-in.
type SignInResult struct {
	SessionToken string
	ExternalID   ExternalID
}

// IdentityVerifier creates accounts, exchanges credentials for session tokens
// and verifies those tokens. Every call goes to the provider.
type IdentityVerifier interface {
	CreateAccount(ctx context.Context, email, password string) (ExternalID, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	VerifyToken(ctx context.Context, token string) (ExternalID, error)
}
