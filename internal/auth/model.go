// File: internal/auth/model.go
package auth

import "teknigo_backend/internal/common"

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OAuthRequest carries the Firebase ID token obtained by the client from a Google or Facebook popup.
type OAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// PasswordResetRequest defines the structure for password reset requests.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TokenResponse holds the Firebase tokens returned by a password sign-in.
type TokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	User  *common.Resource `json:"user"`
	Role  common.Role      `json:"role"`
	Token TokenResponse    `json:"token"`
}

// OAuthResponse is returned by POST /auth/oauth.
type OAuthResponse struct {
	User    *common.Resource `json:"user"`
	Created bool             `json:"created"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	User *common.Resource `json:"user"`
	Role common.Role      `json:"role"`
}
