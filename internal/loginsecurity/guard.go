// Package loginsecurity implements progressive sign-in lockout and per-category rate limiting.
package loginsecurity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/platform/metrics"

	"go.uber.org/zap"
)

const (
	// MaxAttempts is the number of consecutive failures that triggers the first lockout.
	MaxAttempts = 5
	// SuggestResetAfter is the failure count from which a password reset is suggested.
	SuggestResetAfter = 7
	// AnonymousMaxAttempts applies to failures counted per client IP.
	AnonymousMaxAttempts = 10
)

// BlockDurations is the lockout schedule. The last entry repeats for further failures.
var BlockDurations = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	1 * time.Hour,
	2 * time.Hour,
	24 * time.Hour,
}

// Guard tracks failed sign-ins per email and per hashed client IP.
type Guard struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGuard creates a Guard. All methods fail open: store errors are logged and the caller is
// treated as not blocked.
func NewGuard(repo Repository, logger *zap.Logger, m *metrics.Metrics) *Guard {
	return &Guard{
		repo:    repo,
		logger:  logger.Named("login_guard"),
		metrics: m,
		now:     time.Now,
	}
}

// NormalizeEmail lower-cases and trims an email before it is used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BlockDuration returns the lockout for the given failure count, or zero below threshold.
// Anonymous (per-IP) lockouts are twice as long.
func BlockDuration(failures, threshold int, anonymous bool) time.Duration {
	if failures < threshold {
		return 0
	}
	idx := failures - threshold
	if idx > len(BlockDurations)-1 {
		idx = len(BlockDurations) - 1
	}
	d := BlockDurations[idx]
	if anonymous {
		d *= 2
	}
	return d
}

// Check reports whether email is currently locked out. It does not count as an attempt.
func (g *Guard) Check(ctx context.Context, email string) Status {
	return g.check(ctx, KindEmail, NormalizeEmail(email))
}

// CheckAnonymous reports whether a hashed client IP is currently locked out.
func (g *Guard) CheckAnonymous(ctx context.Context, ipHash string) Status {
	return g.check(ctx, KindIP, ipHash)
}

func (g *Guard) check(ctx context.Context, kind IdentifierKind, id string) Status {
	attempt, err := g.repo.FindAttempt(ctx, kind, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			g.logger.Error("Failed to read login attempts", zap.Error(err), zap.String("kind", string(kind)))
		}
		return Status{}
	}
	now := g.now()
	st := Status{SuggestReset: kind == KindEmail && attempt.FailedAttempts >= SuggestResetAfter}
	if attempt.BlockUntil != nil && attempt.BlockUntil.After(now) {
		st.Blocked = true
		st.Remaining = attempt.BlockUntil.Sub(now)
		g.metrics.LoginBlockHit()
	}
	return st
}

// RecordFailure counts a failed sign-in for email and returns the resulting lockout state.
func (g *Guard) RecordFailure(ctx context.Context, email string) Status {
	g.metrics.LoginFailure(string(KindEmail))
	return g.record(ctx, KindEmail, NormalizeEmail(email), MaxAttempts, false)
}

// RecordAnonymousFailure counts a failed sign-in for a hashed client IP.
func (g *Guard) RecordAnonymousFailure(ctx context.Context, ipHash string) Status {
	g.metrics.LoginFailure(string(KindIP))
	return g.record(ctx, KindIP, ipHash, AnonymousMaxAttempts, true)
}

func (g *Guard) record(ctx context.Context, kind IdentifierKind, id string, threshold int, anonymous bool) Status {
	now := g.now()
	log := g.logger.With(zap.String("kind", string(kind)))

	var (
		st       Status
		failures int
		locked   bool
	)
	err := g.repo.UpdateAttempt(ctx, kind, id, func(attempt *LoginAttempt) bool {
		// Still blocked: the attempt does not count.
		if attempt.BlockUntil != nil && attempt.BlockUntil.After(now) {
			st = Status{
				Blocked:      true,
				Remaining:    attempt.BlockUntil.Sub(now),
				SuggestReset: !anonymous && attempt.FailedAttempts >= SuggestResetAfter,
			}
			return false
		}

		if attempt.BlockUntil != nil {
			// The previous block expired; this failure starts a fresh count.
			attempt.FailedAttempts = 1
			attempt.BlockUntil = nil
			attempt.LastAttemptAt = now
			st = Status{SuggestReset: !anonymous && attempt.PasswordResetSent}
			return true
		}

		attempt.FailedAttempts++
		attempt.LastAttemptAt = now
		suggest := !anonymous && attempt.FailedAttempts >= SuggestResetAfter
		if suggest {
			attempt.PasswordResetSent = true
		}

		st = Status{SuggestReset: suggest}
		if d := BlockDuration(attempt.FailedAttempts, threshold, anonymous); d > 0 {
			until := now.Add(d)
			attempt.BlockUntil = &until
			st.Blocked = true
			st.Remaining = d
			locked = true
		}
		failures = attempt.FailedAttempts
		return true
	})
	if err != nil {
		log.Error("Failed to record login attempt", zap.Error(err))
		return Status{}
	}
	if locked {
		log.Warn("Identifier locked out",
			zap.Int("failed_attempts", failures),
			zap.Duration("duration", st.Remaining),
		)
	}
	return st
}

// Reset clears the failure history of email after a successful sign-in.
func (g *Guard) Reset(ctx context.Context, email string) {
	if err := g.repo.DeleteAttempt(ctx, KindEmail, NormalizeEmail(email)); err != nil {
		g.logger.Error("Failed to reset login attempts", zap.Error(err))
	}
}

// MarkPasswordResetSent records that a reset email went out for email.
func (g *Guard) MarkPasswordResetSent(ctx context.Context, email string) {
	now := g.now()
	err := g.repo.UpdateAttempt(ctx, KindEmail, NormalizeEmail(email), func(attempt *LoginAttempt) bool {
		if attempt.LastAttemptAt.IsZero() {
			attempt.LastAttemptAt = now
		}
		attempt.PasswordResetSent = true
		return true
	})
	if err != nil {
		g.logger.Error("Failed to mark password reset as sent", zap.Error(err))
	}
}

// Purge removes history older than retention. Used by the cleanup job.
func (g *Guard) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	now := g.now()
	n, err := g.repo.Purge(ctx, now.Add(-retention), now)
	if err != nil {
		return 0, fmt.Errorf("purge login security rows: %w", err)
	}
	return n, nil
}

// FormatBlockTime renders a lockout duration for people, rounding up to the largest whole unit.
func FormatBlockTime(d time.Duration) string {
	unit := func(n float64, name string) string {
		v := int(math.Ceil(n))
		if v == 1 {
			return fmt.Sprintf("1 %s", name)
		}
		return fmt.Sprintf("%d %ss", v, name)
	}
	switch {
	case d < time.Minute:
		return unit(d.Seconds(), "second")
	case d < time.Hour:
		return unit(d.Minutes(), "minute")
	case d < 24*time.Hour:
		return unit(d.Hours(), "hour")
	default:
		return unit(d.Hours()/24, "day")
	}
}
