package user

import (
	"context"
	"testing"

	"user_account_backend/internal/common"
	"user_account_backend/internal/config"
	"user_account_backend/internal/platform/database"
	"user_account_backend/internal/shared"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestDB opens a migrated in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DBDriver: config.DBDriverSQLite, DBSQLitePath: ":memory:", LogLevel: "silent"}
	db, cleanup, err := database.NewGORM(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	require.NoError(t, database.Migrate(context.Background(), db, cfg.DBDriver, zap.NewNop()))
	return db
}

type RepositoryTestSuite struct {
	suite.Suite
	repo Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := NewGORMRepository(newTestDB(s.T()))
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) newUser(id, email, username string) *User {
	birthdate, err := common.ParseDate("2000-01-01")
	s.Require().NoError(err)
	return &User{
		ID:          shared.ExternalID("uid-" + id),
		Email:       email,
		Username:    username,
		Sex:         "f",
		Birthdate:   birthdate,
		DateCreated: common.Today(),
	}
}

func (s *RepositoryTestSuite) TestCreateAndFind() {
	usr := s.newUser("1", " A@X.com ", "u1")
	s.Require().NoError(s.repo.Create(s.ctx, usr))

	got, err := s.repo.FindByID(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal("a@x.com", got.Email)
	s.Equal("u1", got.Username)
	s.Equal("2000-01-01", got.Birthdate.String())
	s.Nil(got.ProfilePicture)
	s.Nil(got.DateDeleted)
}

func (s *RepositoryTestSuite) TestCreate_RequiresID() {
	usr := s.newUser("1", "a@x.com", "u1")
	usr.ID = ""
	s.Error(s.repo.Create(s.ctx, usr))
}

func (s *RepositoryTestSuite) TestCreate_Uniqueness() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("1", "a@x.com", "u1")))

	err := s.repo.Create(s.ctx, s.newUser("2", "a@x.com", "u2"))
	s.ErrorIs(err, database.ErrUniquenessViolation)

	err = s.repo.Create(s.ctx, s.newUser("3", "b@x.com", "u1"))
	s.ErrorIs(err, database.ErrUniquenessViolation)
}

func (s *RepositoryTestSuite) TestFindByID_NotFound() {
	_, err := s.repo.FindByID(s.ctx, "uid-missing")
	s.ErrorIs(err, database.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestUsernameTaken() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("1", "a@x.com", "u1")))

	taken, err := s.repo.UsernameTaken(s.ctx, " u1 ")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.repo.UsernameTaken(s.ctx, "u2")
	s.Require().NoError(err)
	s.False(taken)
}

func (s *RepositoryTestSuite) TestUpdate() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("1", "a@x.com", "u1")))
	birthdate, _ := common.ParseDate("1999-12-31")

	updated, err := s.repo.Update(s.ctx, "uid-1", map[string]interface{}{
		"sex":             "m",
		"birthdate":       birthdate,
		"profile_picture": "uid-1/profile_picture/me.png",
	})
	s.Require().NoError(err)
	s.Equal("m", updated.Sex)
	s.Equal("1999-12-31", updated.Birthdate.String())
	s.Require().NotNil(updated.ProfilePicture)
	s.Equal("uid-1/profile_picture/me.png", *updated.ProfilePicture)
	s.Equal("u1", updated.Username)

	cleared, err := s.repo.Update(s.ctx, "uid-1", map[string]interface{}{"profile_picture": nil})
	s.Require().NoError(err)
	s.Nil(cleared.ProfilePicture)
}

func (s *RepositoryTestSuite) TestUpdate_Conflicts() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("1", "a@x.com", "u1")))
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("2", "b@x.com", "u2")))

	_, err := s.repo.Update(s.ctx, "uid-2", map[string]interface{}{"username": "u1"})
	s.ErrorIs(err, database.ErrUniquenessViolation)

	_, err = s.repo.Update(s.ctx, "uid-missing", map[string]interface{}{"sex": "m"})
	s.ErrorIs(err, database.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestDelete() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newUser("1", "a@x.com", "u1")))
	s.Require().NoError(s.repo.Delete(s.ctx, "uid-1"))

	_, err := s.repo.FindByID(s.ctx, "uid-1")
	s.ErrorIs(err, database.ErrRecordNotFound)

	s.ErrorIs(s.repo.Delete(s.ctx, "uid-1"), database.ErrRecordNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
