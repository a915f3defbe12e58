package servicerequest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// Handler serves the service request endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new service request handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the service request routes. Every route requires authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	services := router.Group("/services", authMW)
	{
		services.POST("", h.create)
		services.GET("/mine", h.listMine)
		services.GET("/open", h.listOpen)
		services.GET("/:id", h.get)
		services.POST("/:id/accept", h.accept)
		services.PATCH("/:id/status", h.updateStatus)
	}
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.Create(c.Request.Context(), common.GetRequesterFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Service request created successfully.", res)
}

func (h *Handler) get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service request retrieved successfully.", res)
}

func (h *Handler) listMine(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.ListMine(c.Request.Context(), common.GetRequesterFromContext(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Service requests retrieved successfully.", items, pagination)
}

func (h *Handler) listOpen(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.ListOpen(c.Request.Context(), common.GetRequesterFromContext(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Open service requests retrieved successfully.", items, pagination)
}

func (h *Handler) accept(c *gin.Context) {
	res, err := h.service.Accept(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service request accepted.", res)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !common.BindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.UpdateStatus(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"), Status(req.Status))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service request status updated.", res)
}
