// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/auth"
	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
	"teknigo_backend/internal/directory"
	"teknigo_backend/internal/jobs"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/middleware"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/review"
	"teknigo_backend/internal/servicerequest"
	"teknigo_backend/internal/settings"
	"teknigo_backend/internal/user"
	"teknigo_backend/internal/validation"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth      *auth.Handler
	User      *user.Handler
	Settings  *settings.Handler
	Service   *servicerequest.Handler
	Review    *review.Handler
	Directory *directory.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	directory  *directory.Service
	cleanupJob *jobs.LoginSecurityCleanupJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	authenticator *middleware.Authenticator,
	maintenance *settings.Service,
	limiter *loginsecurity.RateLimiter,
	rules *validation.Rules,
	m *metrics.Metrics,
	directoryService *directory.Service,
	cleanupJob *jobs.LoginSecurityCleanupJob,
) (*Server, error) {
	if err := rules.RegisterWithGin(); err != nil {
		return nil, err
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders(logger))
	router.Use(middleware.Metrics(m))

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Retry-After", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.MaintenanceGate(maintenance, authenticator, logger.Named("maintenance")))

	authMW := authenticator.Required()
	optionalAuthMW := authenticator.Optional()
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Teknigo API is healthy!"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1", middleware.RateLimit(limiter, cfg.IdentifierHashSalt, loginsecurity.CategoryAPI))

	handlers.Auth.RegisterRoutes(v1, authMW)
	handlers.User.RegisterRoutes(v1, authMW, optionalAuthMW, adminRoleMW)
	handlers.Settings.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Service.RegisterRoutes(v1, authMW)
	handlers.Review.RegisterRoutes(v1, authMW, optionalAuthMW)
	handlers.Directory.RegisterRoutes(v1, optionalAuthMW)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		directory:  directoryService,
		cleanupJob: cleanupJob,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start prepares the search index, schedules background jobs and serves HTTP until Shutdown.
func (s *Server) Start() error {
	if err := s.directory.EnsureIndex(context.Background()); err != nil {
		s.logger.Error("Failed to create technicians index; directory search will fall back to Firestore", zap.Error(err))
	}

	if s.cleanupJob != nil {
		if err := s.cleanupJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start login security cleanup job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops background jobs and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.cleanupJob != nil {
		s.cleanupJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
