package common

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BindJSON binds the request body into req. On failure it writes a validation or bad request
// response and returns false.
func BindJSON(c *gin.Context, logger *zap.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			RespondWithError(c, NewValidationAPIError(FormatValidationErrors(ve)))
			return false
		}
		RespondWithError(c, ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}
