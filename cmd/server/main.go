// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user_account_backend/internal/config"
	"user_account_backend/internal/platform/database"
	"user_account_backend/internal/platform/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Logs until configuration is loaded.
	bootLogger := logger.NewDefaultLogger()
	defer func() { _ = bootLogger.Sync() }()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
		timeout := migrateCmd.Duration("timeout", 2*time.Minute, "Maximum time to spend applying migrations")
		if err := migrateCmd.Parse(os.Args[2:]); err != nil {
			bootLogger.Fatal("Invalid migrate arguments", zap.Error(err))
		}
		if err := runMigrations(bootLogger, *timeout); err != nil {
			bootLogger.Fatal("Migration failed", zap.Error(err))
		}
		return
	}

	// Default: Start server
	startServer(bootLogger)
}

func runMigrations(bootLogger *zap.Logger, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootLogger.Info("Configuration loaded", zap.String("db_driver", cfg.DBDriver))
	appLogger, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	db, closeDB, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return database.Migrate(ctx, db, cfg.DBDriver, appLogger)
}

func startServer(bootLogger *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), time.Minute)
	server, cleanup, err := initializeServer(initCtx, cfg)
	cancelInit()
	if err != nil {
		bootLogger.Fatal("Failed to initialize server", zap.Error(err))
	}
	defer cleanup()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		bootLogger.Info("Received signal, shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			bootLogger.Error("Server failed", zap.Error(err))
			return
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		bootLogger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		bootLogger.Info("Server shutdown complete.")
	}
	bootLogger.Info("Application exiting.")
}

// provideLogger builds the application logger and flushes it on cleanup.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	appLogger, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return appLogger, func() { _ = appLogger.Sync() }, nil
}

// provideDatabase opens the database and, when DB_RUN_MIGRATIONS is set,
// brings the schema up to date before anything else uses it.
func provideDatabase(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (*gorm.DB, func(), error) {
	db, closeDB, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBRunMigrations {
		if err := database.Migrate(ctx, db, cfg.DBDriver, appLogger); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return db, closeDB, nil
}
