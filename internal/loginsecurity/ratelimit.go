package loginsecurity

import (
	"context"
	"time"

	"teknigo_backend/internal/platform/metrics"

	"go.uber.org/zap"
)

// Category selects the limit applied to a request.
type Category string

const (
	CategoryLogin          Category = "login"
	CategoryRegister       Category = "register"
	CategoryServiceRequest Category = "serviceRequest"
	CategoryAPI            Category = "api"
	CategoryContactForm    Category = "contactForm"
)

// Limit allows MaxAttempts requests per Window. Once exhausted, requests are rejected until Window
// has passed since the last accepted one.
type Limit struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLimits holds the per-category limits.
var DefaultLimits = map[Category]Limit{
	CategoryLogin:          {MaxAttempts: 5, Window: 15 * time.Minute},
	CategoryRegister:       {MaxAttempts: 3, Window: 60 * time.Minute},
	CategoryServiceRequest: {MaxAttempts: 10, Window: 60 * time.Minute},
	CategoryAPI:            {MaxAttempts: 100, Window: 5 * time.Minute},
	CategoryContactForm:    {MaxAttempts: 5, Window: 60 * time.Minute},
}

// RateLimiter counts requests per identifier and category in the database.
type RateLimiter struct {
	repo    Repository
	limits  map[Category]Limit
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRateLimiter creates a limiter using DefaultLimits.
func NewRateLimiter(repo Repository, logger *zap.Logger, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		repo:    repo,
		limits:  DefaultLimits,
		logger:  logger.Named("rate_limiter"),
		metrics: m,
		now:     time.Now,
	}
}

// LimitFor returns the limit of category. Unknown categories get the api limit.
func (l *RateLimiter) LimitFor(category Category) (Category, Limit) {
	if lim, ok := l.limits[category]; ok {
		return category, lim
	}
	return CategoryAPI, l.limits[CategoryAPI]
}

// Allow records one request from identifier and decides whether it may proceed.
// Store failures are logged and the request is allowed.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, category Category) Decision {
	category, limit := l.LimitFor(category)
	key := string(category) + "_" + identifier
	now := l.now()
	log := l.logger.With(zap.String("category", string(category)))

	var decision Decision
	err := l.repo.UpdateRateLimit(ctx, key, category, func(rl *RateLimit) bool {
		exhausted := rl.Attempts >= limit.MaxAttempts
		switch {
		case rl.Attempts == 0,
			exhausted && now.Sub(rl.LastAttemptAt) >= limit.Window,
			!exhausted && now.Sub(rl.FirstAttemptAt) >= limit.Window:
			*rl = RateLimit{Key: key, Category: category, Attempts: 1, FirstAttemptAt: now, LastAttemptAt: now}
		case exhausted:
			decision = Decision{Allowed: false, Remaining: 0, RetryAfter: limit.Window - now.Sub(rl.LastAttemptAt)}
			return false
		default:
			rl.Attempts++
			rl.LastAttemptAt = now
		}
		decision = Decision{Allowed: true, Remaining: limit.MaxAttempts - rl.Attempts}
		return true
	})
	if err != nil {
		log.Error("Rate limit update failed; allowing request", zap.Error(err))
		return Decision{Allowed: true, Remaining: 1}
	}
	if !decision.Allowed {
		l.metrics.RateLimitRejected(string(category))
		log.Debug("Rate limit exceeded", zap.Duration("retry_after", decision.RetryAfter))
	}
	return decision
}
