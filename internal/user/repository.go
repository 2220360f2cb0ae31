// File: internal/user/repository.go
package user

import (
	"context"
	"fmt"
	"strings"

	"user_account_backend/internal/platform/database"
	"user_account_backend/internal/shared"

	"gorm.io/gorm"
)

// Repository defines the interface for user data operations. Errors are the
// database package sentinels.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id shared.ExternalID) (*User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, id shared.ExternalID, fields map[string]interface{}) (*User, error)
	Delete(ctx context.Context, id shared.ExternalID) error
}

type gormRepository struct {
	users *database.Gateway[User]
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) (Repository, error) {
	gw, err := database.NewGateway[User](db)
	if err != nil {
		return nil, fmt.Errorf("failed to create user gateway: %w", err)
	}
	return &gormRepository{users: gw}, nil
}

// Create inserts a new user record. The id must already be set.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	if err := user.ID.Validate(); err != nil {
		return fmt.Errorf("refusing to insert user: %w", err)
	}
	user.Email = normalizeEmail(user.Email)
	user.Username = strings.TrimSpace(user.Username)
	return r.users.Insert(ctx, user)
}

// FindByID retrieves the single user with the given id.
func (r *gormRepository) FindByID(ctx context.Context, id shared.ExternalID) (*User, error) {
	return r.users.GetUnique(ctx, "id", id)
}

func (r *gormRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	matches, err := r.users.GetByField(ctx, "username", strings.TrimSpace(username))
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// Update applies the given column values and returns the stored record.
func (r *gormRepository) Update(ctx context.Context, id shared.ExternalID, fields map[string]interface{}) (*User, error) {
	return r.users.Update(ctx, id, fields)
}

func (r *gormRepository) Delete(ctx context.Context, id shared.ExternalID) error {
	return r.users.Delete(ctx, id)
}
