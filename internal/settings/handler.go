package settings

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// Handler exposes the settings endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new settings handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /settings. Everything but /settings/public requires an admin.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	group := router.Group("/settings")
	group.GET("/public", h.getPublic)

	admin := group.Group("", authMW, adminMW)
	{
		admin.GET("", h.get)
		admin.PATCH("", h.update)
		admin.POST("/maintenance/disable", h.disableMaintenance)
	}
}

func (h *Handler) getPublic(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Settings retrieved successfully.", s.Public())
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Settings retrieved successfully.", s)
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	s, err := h.service.Update(c.Request.Context(), req, common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Settings updated successfully.", s)
}

func (h *Handler) disableMaintenance(c *gin.Context) {
	uid := common.GetUserIDFromContext(c)
	s, err := h.service.DisableMaintenance(c.Request.Context(), uid)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Warn("Maintenance mode disabled through emergency toggle", zap.String("uid", uid))
	common.RespondOK(c, "Maintenance mode disabled.", s)
}
