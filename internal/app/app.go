package app

import (
	"go.uber.org/zap"

	"teknigo_backend/internal/directory"
	"teknigo_backend/internal/settings"
	"teknigo_backend/internal/user"
)

// App bundles what the CLI commands need besides the HTTP server.
type App struct {
	Server    *Server
	Settings  *settings.Service
	Directory *directory.Service
	Users     *user.Service
	Logger    *zap.Logger
}

// NewApp creates an App.
func NewApp(server *Server, settingsService *settings.Service, directoryService *directory.Service, users *user.Service, logger *zap.Logger) *App {
	return &App{
		Server:    server,
		Settings:  settingsService,
		Directory: directoryService,
		Users:     users,
		Logger:    logger,
	}
}
