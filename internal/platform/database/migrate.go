package database

import (
	"context"
	"fmt"

	"user_account_backend/internal/config"
	"user_account_backend/internal/platform/database/migrations"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate applies every pending goose migration to db.
func Migrate(ctx context.Context, db *gorm.DB, driver string, logger *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	dialect := "postgres"
	if driver == config.DBDriverSQLite {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(zap.NewStdLog(logger.Named("goose")))
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied", zap.String("dialect", dialect))
	return nil
}
