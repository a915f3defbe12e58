package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// MaintenanceChecker reports whether maintenance mode is on. Implemented by settings.Service.
type MaintenanceChecker interface {
	MaintenanceEnabled(ctx context.Context) bool
}

// MaintenanceAllowlist holds the paths served while maintenance mode is on.
var MaintenanceAllowlist = []string{
	"/health",
	"/metrics",
	"/api/v1/auth/login",
	"/api/v1/auth/password-reset",
	"/api/v1/settings/public",
}

// MaintenanceGate answers 503 to everyone but admins while maintenance mode is on. Admins are
// identified from their token so they can switch the mode off again.
func MaintenanceGate(checker MaintenanceChecker, auth *Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.MaintenanceEnabled(c.Request.Context()) || allowedDuringMaintenance(c.Request.URL.Path) {
			c.Next()
			return
		}
		if auth != nil && auth.Identify(c).IsAdmin() {
			c.Next()
			return
		}
		logger.Debug("Request rejected by maintenance mode", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails(gin.H{
			"maintenance": true,
			"message":     "The application is under maintenance. Please try again later.",
		}))
	}
}

func allowedDuringMaintenance(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range MaintenanceAllowlist {
		if path == p {
			return true
		}
	}
	return false
}
