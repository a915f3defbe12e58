// File: internal/auth/interfaces.go
package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/user"
)

// IdentityProvider is the part of Firebase Authentication the auth endpoints call.
// Implemented by firebase.FirebaseService.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*firebase.SignInResult, error)
	SendPasswordResetEmail(ctx context.Context, email, continueURL string) error
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// ProfileService is implemented by user.Service.
type ProfileService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*common.Resource, error)
	SyncFromToken(ctx context.Context, token *fbauth.Token) (*common.Resource, bool, error)
	TouchLastLogin(ctx context.Context, uid string) error
	ResolveRole(ctx context.Context, uid string) (common.Role, error)
	GetProfile(ctx context.Context, requester common.Requester, uid string) (*common.Resource, error)
}
