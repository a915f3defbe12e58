package firebase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserDisabled is returned when the account has been disabled by an admin.
	ErrUserDisabled = errors.New("user account is disabled")
	// ErrEmailExists is returned by CreateUser for an address already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrTooManyAttempts is Identity Toolkit's own throttling.
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
)

// SignInResult is returned by a successful email/password sign-in.
type SignInResult struct {
	UID          string `json:"uid"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// FirebaseService wraps the Firebase Admin SDK clients used by the application.
type FirebaseService struct {
	authClient *auth.Client
	firestore  *firestore.Client
	toolkit    *identitytoolkit.Service
	logger     *zap.Logger
}

// NewFirebaseService initializes the Admin SDK, Firestore and the Identity Toolkit client.
// The returned cleanup closes the Firestore connection.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, func(), error) {
	ctx := context.Background()
	logger = logger.Named("firebase")

	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, nil, fmt.Errorf("firebase service account key path is required")
	}
	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, nil, fmt.Errorf("error getting Firestore client: %w", err)
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.FirebaseWebAPIKey))
	if err != nil {
		_ = fs.Close()
		logger.Error("Failed to create Identity Toolkit client", zap.Error(err))
		return nil, nil, fmt.Errorf("error creating Identity Toolkit client: %w", err)
	}

	cleanup := func() {
		if err := fs.Close(); err != nil {
			logger.Error("Error closing Firestore client", zap.Error(err))
		}
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		authClient: authClient,
		firestore:  fs,
		toolkit:    toolkit,
		logger:     logger,
	}, cleanup, nil
}

// Firestore returns the shared Firestore client.
func (s *FirebaseService) Firestore() *firestore.Client {
	return s.firestore
}

// VerifyIDToken verifies a Firebase ID token and returns its claims.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}
	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}
	return token, nil
}

// SignInWithPassword exchanges email and password for Firebase tokens.
func (s *FirebaseService) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, classifyToolkitError(err)
	}
	return &SignInResult{
		UID:          resp.LocalId,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// SendPasswordResetEmail asks Firebase to mail a reset link to email.
func (s *FirebaseService) SendPasswordResetEmail(ctx context.Context, email, continueURL string) error {
	_, err := s.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
		ContinueUrl: continueURL,
	}).Context(ctx).Do()
	if err != nil {
		return classifyToolkitError(err)
	}
	return nil
}

// CreateUser creates an email/password account and returns its UID.
func (s *FirebaseService) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName).
		EmailVerified(false)
	rec, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("failed to create Firebase user: %w", err)
	}
	return rec.UID, nil
}

// SetDisabled enables or disables the account and revokes its sessions when disabling.
func (s *FirebaseService) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	if _, err := s.authClient.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Disabled(disabled)); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update Firebase user: %w", err)
	}
	if disabled {
		return s.RevokeRefreshTokens(ctx, uid)
	}
	return nil
}

// SetRoleClaim stores the role as a custom claim so it is present in future ID tokens.
func (s *FirebaseService) SetRoleClaim(ctx context.Context, uid string, role common.Role) error {
	if err := s.authClient.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": role.String()}); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	return nil
}

// DeleteUser removes the account. A missing account is not an error.
func (s *FirebaseService) DeleteUser(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete Firebase user: %w", err)
	}
	return nil
}

// RevokeRefreshTokens revokes all refresh tokens for a given user.
func (s *FirebaseService) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}

// classifyToolkitError maps Identity Toolkit error codes onto package errors.
func classifyToolkitError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("identity toolkit request failed: %w", err)
	}
	msg := gerr.Message
	for _, item := range gerr.Errors {
		msg += " " + item.Message
	}
	switch {
	case strings.Contains(msg, "USER_DISABLED"):
		return ErrUserDisabled
	case strings.Contains(msg, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return ErrTooManyAttempts
	case strings.Contains(msg, "EMAIL_NOT_FOUND"):
		return ErrUserNotFound
	case strings.Contains(msg, "INVALID_PASSWORD"),
		strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.Contains(msg, "INVALID_EMAIL"),
		strings.Contains(msg, "MISSING_PASSWORD"):
		return ErrInvalidCredentials
	}
	return fmt.Errorf("identity toolkit request failed (%d): %w", gerr.Code, err)
}
