package user

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"user_account_backend/internal/common"
	"user_account_backend/internal/config"
	"user_account_backend/internal/platform/database"
	"user_account_backend/internal/shared"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Service defines the account operations behind the HTTP handlers. Every
// error it returns is a *common.APIError or an unexpected internal error.
type Service interface {
	Signup(ctx context.Context, req SignupRequest, picture *Upload) error
	Signin(ctx context.Context, req SigninRequest) (*shared.SignInResult, error)
	GetUser(ctx context.Context, id shared.ExternalID) (*User, error)
	GetProfilePicture(ctx context.Context, id shared.ExternalID) ([]byte, error)
	UpdateUser(ctx context.Context, id shared.ExternalID, req UpdateRequest) (*User, error)
	DeleteUser(ctx context.Context, id shared.ExternalID) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	verifier shared.IdentityVerifier
	store    shared.ObjectStore
	cfg      *config.Config
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

var (
	errUserNotFound           = common.ErrNotFound.WithDetail("User not found.")
	errProfilePictureNotFound = common.ErrNotFound.WithDetail("Profile picture not found.")
	errDuplicateAccount       = common.ErrBadRequest.WithDetail("User with this email already exists.")
	errUsernameTaken          = common.ErrBadRequest.WithDetail("Username already taken.")
	errAlreadyInUse           = common.ErrBadRequest.WithDetail("Email or username already in use.")
	errInvalidEmail           = common.ErrBadRequest.WithDetail("Invalid email.")
	errInvalidPassword        = common.ErrBadRequest.WithDetail("Invalid password.")
	errRejectedCredentials    = common.ErrBadRequest.WithDetail("Invalid email or password.")
)

// NewService creates a new user service.
func NewService(
	repo Repository,
	verifier shared.IdentityVerifier,
	store shared.ObjectStore,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		verifier: verifier,
		store:    store,
		cfg:      cfg,
		logger:   logger.Named("user"),
	}
}

// Signup creates the upstream account, stores the optional picture and then
// inserts the local record keyed by the upstream id.
func (s *ServiceImplementation) Signup(ctx context.Context, req SignupRequest, picture *Upload) error {
	username := strings.TrimSpace(req.Username)
	sex := strings.TrimSpace(req.Sex)

	invalid := make(map[string]string)
	requireNonBlank(invalid, "Username", username)
	requireNonBlank(invalid, "Sex", sex)
	birthdate, err := common.ParseDate(req.Birthdate)
	if err != nil {
		invalid["Birthdate"] = err.Error()
	}
	if len(invalid) > 0 {
		return common.NewValidationAPIError(invalid)
	}

	taken, err := s.repo.UsernameTaken(ctx, username)
	if err != nil {
		return s.recordError("check username", err)
	}
	if taken {
		return errUsernameTaken
	}

	externalID, err := s.verifier.CreateAccount(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicateAccount):
			return errDuplicateAccount
		case errors.Is(err, shared.ErrInvalidCredentials):
			return errRejectedCredentials
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	if err := externalID.Validate(); err != nil {
		s.logger.Error("Identity provider returned an unusable id", zap.Error(err))
		return fmt.Errorf("identity provider returned an unusable id: %w", err)
	}

	usr := &User{
		ID:          externalID,
		Email:       req.Email,
		Username:    username,
		Sex:         sex,
		Birthdate:   birthdate,
		DateCreated: common.Today(),
	}

	if picture != nil {
		objectPath := profilePicturePath(externalID, picture.Filename)
		if err := s.store.Upload(ctx, picture.Body, objectPath, s.cfg.StorageBucket, contentTypeFor(picture)); err != nil {
			s.logger.Error("Failed to upload profile picture", zap.String("userID", externalID.String()), zap.Error(err))
			return fmt.Errorf("failed to upload profile picture: %w", err)
		}
		usr.ProfilePicture = &objectPath
	}

	if err := s.repo.Create(ctx, usr); err != nil {
		s.logger.Error("Failed to create user in repository", zap.String("userID", externalID.String()), zap.Error(err))
		return s.recordError("create user", err)
	}

	s.logger.Info("User registered successfully", zap.String("userID", externalID.String()))
	return nil
}

// Signin exchanges credentials for a session token and checks that the local
// record still agrees with the provider about the email.
func (s *ServiceImplementation) Signin(ctx context.Context, req SigninRequest) (*shared.SignInResult, error) {
	res, err := s.verifier.SignIn(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrUnknownEmail):
			return nil, errInvalidEmail
		case errors.Is(err, shared.ErrInvalidCredentials):
			return nil, errInvalidPassword
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	usr, err := s.lookup(ctx, res.ExternalID)
	if err != nil {
		return nil, err
	}
	if usr.Email != normalizeEmail(req.Email) {
		s.logger.Error("Stored email does not match identity provider",
			zap.String("userID", usr.ID.String()),
			zap.String("storedEmail", usr.Email),
			zap.String("claimedEmail", req.Email),
		)
		return nil, common.ErrConsistency
	}

	return &shared.SignInResult{SessionToken: res.SessionToken, ExternalID: usr.ID}, nil
}

func (s *ServiceImplementation) GetUser(ctx context.Context, id shared.ExternalID) (*User, error) {
	return s.lookup(ctx, id)
}

func (s *ServiceImplementation) GetProfilePicture(ctx context.Context, id shared.ExternalID) ([]byte, error) {
	usr, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if usr.ProfilePicture == nil || *usr.ProfilePicture == "" {
		return nil, errProfilePictureNotFound
	}

	data, err := s.store.Download(ctx, *usr.ProfilePicture, s.cfg.StorageBucket)
	if err != nil {
		if errors.Is(err, shared.ErrObjectNotFound) {
			s.logger.Warn("Profile picture path set but object missing",
				zap.String("userID", id.String()), zap.String("path", *usr.ProfilePicture))
			return nil, errProfilePictureNotFound
		}
		return nil, fmt.Errorf("failed to download profile picture: %w", err)
	}
	return data, nil
}

// UpdateUser applies only the fields present in req.
func (s *ServiceImplementation) UpdateUser(ctx context.Context, id shared.ExternalID, req UpdateRequest) (*User, error) {
	usr, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, err := updateFields(usr.ID, req)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return usr, nil
	}

	updated, err := s.repo.Update(ctx, usr.ID, fields)
	if err != nil {
		return nil, s.recordError("update user", err)
	}
	s.logger.Info("User updated", zap.String("userID", id.String()), zap.Int("fields", len(fields)))
	return updated, nil
}

func (s *ServiceImplementation) DeleteUser(ctx context.Context, id shared.ExternalID) error {
	usr, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, usr.ID); err != nil {
		return s.recordError("delete user", err)
	}
	s.logger.Info("User deleted", zap.String("userID", id.String()))
	return nil
}

func (s *ServiceImplementation) lookup(ctx context.Context, id shared.ExternalID) (*User, error) {
	usr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.recordError("find user", err)
	}
	return usr, nil
}

// recordError maps record store sentinels onto API errors.
func (s *ServiceImplementation) recordError(op string, err error) error {
	switch {
	case errors.Is(err, database.ErrRecordNotFound):
		return errUserNotFound
	case errors.Is(err, database.ErrUniquenessViolation):
		return errAlreadyInUse
	case errors.Is(err, database.ErrAmbiguousMatch):
		s.logger.Error("Ambiguous user lookup", zap.String("op", op), zap.Error(err))
		return common.ErrInternalServer
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func updateFields(id shared.ExternalID, req UpdateRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	invalid := make(map[string]string)

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if requireNonBlank(invalid, "Username", username) {
			fields["username"] = username
		}
	}
	if req.Sex != nil {
		sex := strings.TrimSpace(*req.Sex)
		if requireNonBlank(invalid, "Sex", sex) {
			fields["sex"] = sex
		}
	}
	if req.Birthdate != nil {
		d, err := common.ParseDate(*req.Birthdate)
		if err != nil {
			invalid["Birthdate"] = err.Error()
		} else {
			fields["birthdate"] = d
		}
	}
	if req.ProfilePicture != nil {
		switch p := *req.ProfilePicture; {
		case p == "":
			// empty means absent, like any other omitted field
		case strings.HasPrefix(p, id.String()+"/") && !strings.Contains(p, ".."):
			fields["profile_picture"] = p
		default:
			invalid["ProfilePicture"] = "The profile_picture field must reference one of your own objects."
		}
	}

	if len(invalid) > 0 {
		return nil, common.NewValidationAPIError(invalid)
	}
	return fields, nil
}

// requireNonBlank records a validation message for field when value is empty
// and reports whether it was usable.
func requireNonBlank(invalid map[string]string, field, value string) bool {
	if value != "" {
		return true
	}
	invalid[field] = fmt.Sprintf("The %s field may not be blank.", strings.ToLower(field))
	return false
}

// profilePicturePath builds {id}/profile_picture/{name}, slugging the stem of
// the client-supplied filename.
func profilePicturePath(id shared.ExternalID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := path.Ext(base)
	stem := slug.Make(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "profile_picture"
	}
	if ext = slug.Make(ext); ext != "" {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/profile_picture/%s%s", id, stem, ext)
}

func contentTypeFor(u *Upload) string {
	if u.ContentType != "" {
		return u.ContentType
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(u.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
