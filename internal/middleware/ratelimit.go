package middleware

import (
	"context"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/platform/crypto"
)

// Limiter is implemented by loginsecurity.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, identifier string, category loginsecurity.Category) loginsecurity.Decision
}

// RateLimit counts requests per hashed client IP in category and answers 429 with Retry-After
// once the limit is exhausted.
func RateLimit(limiter Limiter, salt string, category loginsecurity.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(c.Request.Context(), crypto.HashIdentifier(salt, c.ClientIP()), category)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			c.Next()
			return
		}
		seconds := int64(math.Ceil(d.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		common.RespondWithError(c, common.ErrTooManyRequests.WithDetails(gin.H{
			"message":           "Too many requests. Please try again in " + loginsecurity.FormatBlockTime(d.RetryAfter) + ".",
			"retryAfterSeconds": seconds,
		}))
	}
}
