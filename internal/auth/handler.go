// File: internal/auth/handler.go
package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/user"
	"teknigo_backend/internal/validation"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for authentication operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/oauth", h.oauth)
		authGroup.POST("/password-reset", h.passwordReset)
		authGroup.GET("/password-requirements", h.passwordRequirements)

		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req user.RegisterRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.Register(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User registered successfully.", res)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", res)
}

func (h *Handler) oauth(c *gin.Context) {
	var req OAuthRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.OAuth(c.Request.Context(), req.IDToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if res.Created {
		common.RespondCreated(c, "Account created successfully.", res)
		return
	}
	common.RespondOK(c, "Login successful.", res)
}

func (h *Handler) passwordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "If an account exists for this email, a password reset link has been sent.", nil)
}

func (h *Handler) passwordRequirements(c *gin.Context) {
	common.RespondOK(c, "", gin.H{"requirements": validation.PasswordRequirements()})
}

func (h *Handler) logout(c *gin.Context) {
	uid := common.GetUserIDFromContext(c)
	if err := h.service.Logout(c.Request.Context(), uid); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Logged out successfully.", nil)
}

func (h *Handler) me(c *gin.Context) {
	res, err := h.service.Me(c.Request.Context(), common.GetRequesterFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Current user retrieved successfully.", res)
}
