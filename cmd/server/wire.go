// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"teknigo_backend/internal/app"
	"teknigo_backend/internal/auth"
	"teknigo_backend/internal/config"
	"teknigo_backend/internal/directory"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/jobs"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/middleware"
	"teknigo_backend/internal/platform/database"
	"teknigo_backend/internal/platform/elasticsearch"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/review"
	"teknigo_backend/internal/sanitizer"
	"teknigo_backend/internal/servicerequest"
	"teknigo_backend/internal/settings"
	"teknigo_backend/internal/user"
	"teknigo_backend/internal/validation"
)

var platformSet = wire.NewSet(
	provideLogger,
	metrics.New,
	firebase.NewFirebaseService,
	provideFirestore,
)

var settingsSet = wire.NewSet(
	settings.NewFirestoreRepository,
	settings.NewService,
)

// initializeApp is the main Wire injector.
func initializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		platformSet,
		settingsSet,
		database.NewGORM,
		elasticsearch.NewClient,
		sanitizer.NewDefault,
		validation.NewRules,

		// Login security
		loginsecurity.NewGORMRepository,
		loginsecurity.NewGuard,
		loginsecurity.NewRateLimiter,

		// Users
		user.NewFirestoreRepository,
		user.NewService,
		user.NewHandler,
		wire.Bind(new(user.AuthProvider), new(*firebase.FirebaseService)),
		wire.Bind(new(user.SettingsReader), new(*settings.Service)),
		wire.Bind(new(user.DirectoryIndexer), new(*directory.Service)),

		// Auth
		auth.NewService,
		auth.NewHandler,
		wire.Bind(new(auth.IdentityProvider), new(*firebase.FirebaseService)),
		wire.Bind(new(auth.ProfileService), new(*user.Service)),

		// Service requests
		servicerequest.NewFirestoreRepository,
		servicerequest.NewService,
		servicerequest.NewHandler,
		wire.Bind(new(servicerequest.ProfileLookup), new(*user.Service)),
		wire.Bind(new(servicerequest.Limiter), new(*loginsecurity.RateLimiter)),

		// Reviews
		review.NewFirestoreRepository,
		review.NewService,
		review.NewHandler,
		wire.Bind(new(review.RatingUpdater), new(*user.Service)),

		// Directory
		directory.NewService,
		directory.NewHandler,
		wire.Bind(new(directory.FallbackLister), new(*user.Service)),

		settings.NewHandler,

		// Middleware
		middleware.NewAuthenticator,
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),
		wire.Bind(new(middleware.RoleResolver), new(*user.Service)),

		// Jobs
		jobs.NewLoginSecurityCleanupJob,
		wire.Bind(new(jobs.Purger), new(*loginsecurity.Guard)),

		// Application Layer
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
		app.NewApp,
	)
	return nil, nil, nil
}

// initializeSettings builds only what init-config needs.
func initializeSettings(cfg *config.Config) (*settings.Service, func(), error) {
	wire.Build(
		provideLogger,
		firebase.NewFirebaseService,
		provideFirestore,
		settingsSet,
	)
	return nil, nil, nil
}
