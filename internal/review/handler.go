package review

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// Handler serves the review endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new review handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the review routes. Reading is open to anonymous callers.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, optionalAuthMW gin.HandlerFunc) {
	router.POST("/reviews", authMW, h.create)
	router.GET("/reviews/:id", optionalAuthMW, h.get)
	router.GET("/technicians/:id/reviews", optionalAuthMW, h.listForTechnician)
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
	common.RespondCreated(c, "Review created successfully.", res)
}

func (h *Handler) get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Review retrieved successfully.", res)
}

func (h *Handler) listForTechnician(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.ListForTechnician(c.Request.Context(), common.GetRequesterFromContext(c), c.Param("id"), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reviews retrieved successfully.", items, pagination)
}
