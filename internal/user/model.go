// File: internal/user/model.go
package user

import (
	"io"
	"strings"

	"user_account_backend/internal/common"
	"user_account_backend/internal/shared"
)

// User is the locally stored account. ID is the identity provider's subject id.
type User struct {
	ID             shared.ExternalID `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Email          string            `gorm:"type:varchar(255);not null;uniqueIndex:users_email_key" json:"email"`
	Username       string            `gorm:"type:varchar(150);not null;uniqueIndex:users_username_key" json:"username"`
	Sex            string            `gorm:"type:varchar(32);not null" json:"sex"`
	Birthdate      common.Date       `gorm:"not null" json:"birthdate"`
	DateCreated    common.Date       `gorm:"not null" json:"date_created"`
	DateDeleted    *common.Date      `json:"date_deleted"` // never written; delete is physical
	ProfilePicture *string           `gorm:"type:text" json:"profile_picture"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// --- DTOs (Data Transfer Objects) for API requests ---

// SigninRequest is the JSON body of the signin endpoint.
type SigninRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required,max=4096"`
}

// SignupRequest is the multipart form of the signup endpoint. The profile
// picture travels separately as a file part.
type SignupRequest struct {
	SigninRequest
	Username  string `json:"username" form:"username" binding:"required,max=150"`
	Sex       string `json:"sex" form:"sex" binding:"required,max=32"`
	Birthdate string `json:"birthdate" form:"birthdate" binding:"required,datetime=2006-01-02"`
}

// UpdateRequest is a partial update. Nil and empty fields are left untouched.
type UpdateRequest struct {
	Username       *string `json:"username" binding:"omitempty,min=1,max=150"`
	Sex            *string `json:"sex" binding:"omitempty,min=1,max=32"`
	Birthdate      *string `json:"birthdate" binding:"omitempty,datetime=2006-01-02"`
	ProfilePicture *string `json:"profile_picture" binding:"omitempty,max=1024"`
}

// Upload is a file part received with a signup.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
