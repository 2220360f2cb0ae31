// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"user_account_backend/internal/app"
	"user_account_backend/internal/config"
	"user_account_backend/internal/filestorage"
	"user_account_backend/internal/firebase"
	"user_account_backend/internal/platform/metrics"
	"user_account_backend/internal/platform/secrets"
	"user_account_backend/internal/shared"
	"user_account_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(ctx context.Context, cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDatabase,
		secrets.NewSource,
		metrics.New,

		// Identity provider and object storage
		firebase.LoadWebConfig,
		firebase.NewApp,
		firebase.NewFirebaseService,
		wire.Bind(new(shared.IdentityVerifier), new(*firebase.FirebaseService)),
		filestorage.NewObjectStore,

		// User module
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		user.NewHandler,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
