package user

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the profile routes. optionalAuthMW identifies the caller when a token
// is present without requiring one.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, optionalAuthMW, adminMW gin.HandlerFunc) {
	users := router.Group("/users")
	{
		me := users.Group("/me", authMW)
		me.GET("", h.getMe)
		me.PATCH("", h.updateMe)

		users.GET("/:id", optionalAuthMW, h.getUserByID)
	}

	router.GET("/technicians", optionalAuthMW, h.listTechnicians)

	admin := router.Group("/admin/users", authMW, adminMW)
	{
		admin.GET("", h.listUsers)
		admin.PATCH("/:id/disabled", h.setDisabled)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	requester := common.GetRequesterFromContext(c)
	res, err := h.service.GetProfile(c.Request.Context(), requester, requester.UID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", res)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.UpdateProfile(c.Request.Context(), common.GetRequesterFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", res)
}

func (h *Handler) getUserByID(c *gin.Context) {
	res, err := h.service.GetProfile(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", res)
}

func (h *Handler) listTechnicians(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.ListTechnicians(c.Request.Context(), common.GetRequesterFromContext(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Technicians retrieved successfully.", items, pagination)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.ListUsers(c.Request.Context(), common.GetRequesterFromContext(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Users retrieved successfully.", items, pagination)
}

func (h *Handler) setDisabled(c *gin.Context) {
	var req SetDisabledRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.SetDisabled(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"), *req.Disabled)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User updated successfully.", res)
}
