// File: internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/platform/crypto"
	"teknigo_backend/internal/user"
)

// Service implements the sign-in flows on top of Firebase and the login guard.
type Service struct {
	identity IdentityProvider
	profiles ProfileService
	guard    *loginsecurity.Guard
	limiter  *loginsecurity.RateLimiter
	ipSalt   string
	resetURL string
	logger   *zap.Logger
}

// NewService creates a new auth service.
func NewService(
	identity IdentityProvider,
	profiles ProfileService,
	guard *loginsecurity.Guard,
	limiter *loginsecurity.RateLimiter,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		identity: identity,
		profiles: profiles,
		guard:    guard,
		limiter:  limiter,
		ipSalt:   cfg.IdentifierHashSalt,
		resetURL: cfg.PasswordResetURL,
		logger:   logger.Named("auth_service"),
	}
}

// Register rate-limits registrations per client and delegates to the profile service.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest, clientIP string) (*common.Resource, error) {
	if err := s.allow(ctx, clientIP, loginsecurity.CategoryRegister); err != nil {
		return nil, err
	}
	return s.profiles.Register(ctx, req)
}

// Login signs email in with a password. Locked-out accounts and clients are rejected before
// Firebase is contacted, so a blocked caller cannot probe passwords.
func (s *Service) Login(ctx context.Context, req LoginRequest, clientIP string) (*LoginResponse, error) {
	ipHash := crypto.HashIdentifier(s.ipSalt, clientIP)
	email := loginsecurity.NormalizeEmail(req.Email)

	if err := s.allow(ctx, clientIP, loginsecurity.CategoryLogin); err != nil {
		return nil, err
	}
	if st := s.guard.CheckAnonymous(ctx, ipHash); st.Blocked {
		return nil, blockedError(st)
	}
	if st := s.guard.Check(ctx, email); st.Blocked {
		return nil, blockedError(st)
	}

	result, err := s.identity.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, firebase.ErrInvalidCredentials), errors.Is(err, firebase.ErrUserNotFound):
			s.guard.RecordAnonymousFailure(ctx, ipHash)
			st := s.guard.RecordFailure(ctx, email)
			if st.Blocked {
				return nil, blockedError(st)
			}
			return nil, common.ErrUnauthorized.WithDetails(map[string]interface{}{
				"message":              "Invalid email or password.",
				"suggestPasswordReset": st.SuggestReset,
			})
		case errors.Is(err, firebase.ErrUserDisabled):
			return nil, common.ErrForbidden.WithDetails("This account has been disabled.")
		case errors.Is(err, firebase.ErrTooManyAttempts):
			return nil, common.ErrTooManyRequests.WithDetails("Too many sign-in attempts. Please try again later.")
		}
		return nil, fmt.Errorf("sign in with password: %w", err)
	}
	s.guard.Reset(ctx, email)

	role, err := s.profiles.ResolveRole(ctx, result.UID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.TouchLastLogin(ctx, result.UID); err != nil {
		s.logger.Warn("Failed to record last login", zap.Error(err), zap.String("uid", result.UID))
	}
	profile, err := s.profiles.GetProfile(ctx, common.Requester{UID: result.UID, Email: email, Role: role}, result.UID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("uid", result.UID), zap.String("role", role.String()))
	return &LoginResponse{
		User: profile,
		Role: role,
		Token: TokenResponse{
			IDToken:      result.IDToken,
			RefreshToken: result.RefreshToken,
			TokenType:    common.AuthorizationTypeBearer,
			ExpiresIn:    result.ExpiresIn,
		},
	}, nil
}

// OAuth verifies a Firebase ID token from a federated sign-in and returns the caller's profile,
// creating it on first sign-in.
func (s *Service) OAuth(ctx context.Context, idToken string) (*OAuthResponse, error) {
	token, err := s.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired ID token.")
	}
	profile, created, err := s.profiles.SyncFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &OAuthResponse{User: profile, Created: created}, nil
}

// RequestPasswordReset sends a reset email. The outcome never reveals whether email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email, clientIP string) error {
	if err := s.allow(ctx, "reset:"+clientIP, loginsecurity.CategoryLogin); err != nil {
		return err
	}
	email = loginsecurity.NormalizeEmail(email)

	err := s.identity.SendPasswordResetEmail(ctx, email, s.resetURL)
	switch {
	case err == nil:
		s.guard.MarkPasswordResetSent(ctx, email)
		s.logger.Info("Password reset email sent")
	case errors.Is(err, firebase.ErrUserNotFound), errors.Is(err, firebase.ErrInvalidCredentials):
		s.logger.Debug("Password reset requested for unknown email")
	case errors.Is(err, firebase.ErrTooManyAttempts):
		return common.ErrTooManyRequests.WithDetails("Too many reset requests. Please try again later.")
	default:
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

// Logout revokes every refresh token of uid.
func (s *Service) Logout(ctx context.Context, uid string) error {
	return s.identity.RevokeRefreshTokens(ctx, uid)
}

// Me returns the requester's own profile.
func (s *Service) Me(ctx context.Context, requester common.Requester) (*MeResponse, error) {
	profile, err := s.profiles.GetProfile(ctx, requester, requester.UID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: profile, Role: requester.Role}, nil
}

func (s *Service) allow(ctx context.Context, clientIP string, category loginsecurity.Category) error {
	d := s.limiter.Allow(ctx, crypto.HashIdentifier(s.ipSalt, clientIP), category)
	if d.Allowed {
		return nil
	}
	return common.ErrTooManyRequests.WithDetails(map[string]interface{}{
		"message":           "Too many requests. Please try again in " + loginsecurity.FormatBlockTime(d.RetryAfter) + ".",
		"retryAfterSeconds": int64(math.Ceil(d.RetryAfter.Seconds())),
	})
}

func blockedError(st loginsecurity.Status) error {
	return common.ErrTooManyRequests.WithDetails(map[string]interface{}{
		"message":              "Too many failed attempts. Please try again in " + loginsecurity.FormatBlockTime(st.Remaining) + ".",
		"retryAfterSeconds":    int64(math.Ceil(st.Remaining.Seconds())),
		"suggestPasswordReset": st.SuggestReset,
	})
}
