// File: internal/middleware/auth.go
package middleware

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// TokenVerifier verifies Firebase ID tokens. Implemented by firebase.FirebaseService.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// RoleResolver maps a UID to its stored role. Implemented by user.Service.
type RoleResolver interface {
	ResolveRole(ctx context.Context, uid string) (common.Role, error)
}

// Authenticator identifies callers from their Firebase ID token.
type Authenticator struct {
	verifier TokenVerifier
	roles    RoleResolver
	logger   *zap.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(verifier TokenVerifier, roles RoleResolver, logger *zap.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, roles: roles, logger: logger.Named("auth_middleware")}
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			a.logger.Debug("Authorization header missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}
		if err := a.authenticate(c, tokenString); err != nil {
			common.RespondWithError(c, err)
			return
		}
		c.Next()
	}
}

// Optional identifies the caller when a token is present and otherwise continues anonymously.
// An invalid token is treated as no token.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := common.GetTokenFromContext(c); tokenString != "" {
			if err := a.authenticate(c, tokenString); err != nil {
				a.logger.Debug("Ignoring invalid optional token", zap.Error(err))
			}
		}
		c.Next()
	}
}

// Identify returns the caller without writing a response. Used by the maintenance gate.
func (a *Authenticator) Identify(c *gin.Context) common.Requester {
	if _, done := c.Get(common.UserIDKey); !done {
		if tokenString := common.GetTokenFromContext(c); tokenString != "" {
			_ = a.authenticate(c, tokenString)
		}
	}
	return common.GetRequesterFromContext(c)
}

func (a *Authenticator) authenticate(c *gin.Context, tokenString string) error {
	ctx := c.Request.Context()
	token, err := a.verifier.VerifyIDToken(ctx, tokenString)
	if err != nil {
		a.logger.Warn("Token validation failed", zap.Error(err))
		return common.ErrUnauthorized.WithDetails("Invalid or expired token.")
	}
	role, err := a.roles.ResolveRole(ctx, token.UID)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return apiErr
		}
		a.logger.Error("Failed to resolve user role", zap.Error(err), zap.String("uid", token.UID))
		return common.ErrInternalServer
	}
	email, _ := token.Claims["email"].(string)

	c.Set(common.UserIDKey, token.UID)
	c.Set(common.UserEmailKey, email)
	c.Set(common.UserRoleKey, role)

	a.logger.Debug("User authenticated successfully",
		zap.String("userID", token.UID),
		zap.String("role", role.String()),
	)
	return nil
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...common.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == common.RoleAnonymous {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
