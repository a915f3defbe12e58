package directory

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// FallbackLister lists technicians from the primary store. Implemented by user.Service.
type FallbackLister interface {
	ListTechnicians(ctx context.Context, requester common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error)
}

// Handler serves the directory search endpoint.
type Handler struct {
	service  *Service
	fallback FallbackLister
	logger   *zap.Logger
}

// NewHandler creates a new directory handler.
func NewHandler(service *Service, fallback FallbackLister, logger *zap.Logger) *Handler {
	return &Handler{service: service, fallback: fallback, logger: logger}
}

// RegisterRoutes mounts GET /technicians/search.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, optionalAuthMW gin.HandlerFunc) {
	router.GET("/technicians/search", optionalAuthMW, h.search)
}

func (h *Handler) search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)

	if !h.service.Enabled() {
		// Without an index, filters cannot be applied; return the plain listing instead.
		items, pagination, err := h.fallback.ListTechnicians(c.Request.Context(), common.GetRequesterFromContext(c), q.Page, q.PageSize)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondPaginated(c, "Technicians retrieved successfully.", items, pagination)
		return
	}

	items, pagination, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Technician search failed", zap.Error(err))
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Technicians retrieved successfully.", items, pagination)
}
