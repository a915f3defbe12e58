package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/sanitizer"
	"teknigo_backend/internal/user"
)

// MockIdentity is a mock type for IdentityProvider
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) SignInWithPassword(ctx context.Context, email, password string) (*firebase.SignInResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firebase.SignInResult), args.Error(1)
}

func (m *MockIdentity) SendPasswordResetEmail(ctx context.Context, email, continueURL string) error {
	return m.Called(ctx, email, continueURL).Error(0)
}

func (m *MockIdentity) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fbauth.Token), args.Error(1)
}

func (m *MockIdentity) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

// MockProfiles is a mock type for ProfileService
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Register(ctx context.Context, req user.RegisterRequest) (*common.Resource, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*common.Resource), args.Error(1)
}

func (m *MockProfiles) SyncFromToken(ctx context.Context, token *fbauth.Token) (*common.Resource, bool, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*common.Resource), args.Bool(1), args.Error(2)
}

func (m *MockProfiles) TouchLastLogin(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *MockProfiles) ResolveRole(ctx context.Context, uid string) (common.Role, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(common.Role), args.Error(1)
}

func (m *MockProfiles) GetProfile(ctx context.Context, requester common.Requester, uid string) (*common.Resource, error) {
	args := m.Called(ctx, requester, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*common.Resource), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *MockIdentity, *MockProfiles) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo, err := loginsecurity.NewGORMRepository(db)
	require.NoError(t, err)

	identity := new(MockIdentity)
	profiles := new(MockProfiles)
	cfg := &config.Config{IdentifierHashSalt: "test-salt", PasswordResetURL: "https://teknigo.test/login"}
	svc := NewService(identity, profiles,
		loginsecurity.NewGuard(repo, zap.NewNop(), nil),
		loginsecurity.NewRateLimiter(repo, zap.NewNop(), nil),
		cfg, zap.NewNop())
	return svc, identity, profiles
}

func TestService_Login_Success(t *testing.T) {
	ctx := context.Background()
	svc, identity, profiles := newTestService(t)
	profile := &common.Resource{ID: "u1", Attributes: sanitizer.Record{"displayName": "Ana"}}

	identity.On("SignInWithPassword", ctx, "ana@gmail.com", "Secr3t!pw").
		Return(&firebase.SignInResult{UID: "u1", IDToken: "id", RefreshToken: "refresh", ExpiresIn: 3600}, nil)
	profiles.On("ResolveRole", ctx, "u1").Return(common.RoleClient, nil)
	profiles.On("TouchLastLogin", ctx, "u1").Return(nil)
	profiles.On("GetProfile", ctx, common.Requester{UID: "u1", Email: "ana@gmail.com", Role: common.RoleClient}, "u1").
		Return(profile, nil)

	res, err := svc.Login(ctx, LoginRequest{Email: " Ana@Gmail.com ", Password: "Secr3t!pw"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, profile, res.User)
	assert.Equal(t, common.RoleClient, res.Role)
	assert.Equal(t, TokenResponse{IDToken: "id", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 3600}, res.Token)
	identity.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestService_Login_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	svc, identity, _ := newTestService(t)
	identity.On("SignInWithPassword", ctx, "ana@gmail.com", "wrong").Return(nil, firebase.ErrInvalidCredentials)

	for i := 1; i < loginsecurity.MaxAttempts; i++ {
		_, err := svc.Login(ctx, LoginRequest{Email: "ana@gmail.com", Password: "wrong"}, "10.0.0.1")
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, "UNAUTHORIZED", apiErr.Code, "attempt %d", i)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "ana@gmail.com", Password: "wrong"}, "10.0.0.1")
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "TOO_MANY_REQUESTS", apiErr.Code)
	details := apiErr.Details.(map[string]interface{})
	assert.Equal(t, "Too many failed attempts. Please try again in 1 minute.", details["message"])
	identity.AssertNumberOfCalls(t, "SignInWithPassword", loginsecurity.MaxAttempts)

	// A blocked account is rejected before Firebase is contacted, from any client.
	_, err = svc.Login(ctx, LoginRequest{Email: "ana@gmail.com", Password: "right"}, "10.0.0.2")
	assert.ErrorIs(t, err, common.ErrTooManyRequests)
	identity.AssertNumberOfCalls(t, "SignInWithPassword", loginsecurity.MaxAttempts)
}

func TestService_Login_FirebaseErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		svc, identity, _ := newTestService(t)
		identity.On("SignInWithPassword", ctx, "ana@gmail.com", "pw").Return(nil, firebase.ErrUserDisabled)
		_, err := svc.Login(ctx, LoginRequest{Email: "ana@gmail.com", Password: "pw"}, "10.0.0.1")
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("unexpected", func(t *testing.T) {
		svc, identity, _ := newTestService(t)
		identity.On("SignInWithPassword", ctx, "ana@gmail.com", "pw").Return(nil, errors.New("boom"))
		_, err := svc.Login(ctx, LoginRequest{Email: "ana@gmail.com", Password: "pw"}, "10.0.0.1")
		require.Error(t, err)
		_, isAPI := common.IsAPIError(err)
		assert.False(t, isAPI)
	})
}

func TestService_Register_RateLimited(t *testing.T) {
	ctx := context.Background()
	svc, _, profiles := newTestService(t)
	req := user.RegisterRequest{Email: "a@gmail.com", Password: "Str0ng!pw", DisplayName: "Ana", UserType: "client"}
	profiles.On("Register", ctx, req).Return(&common.Resource{ID: "u1"}, nil)

	limit := loginsecurity.DefaultLimits[loginsecurity.CategoryRegister].MaxAttempts
	for i := 0; i < limit; i++ {
		_, err := svc.Register(ctx, req, "10.0.0.1")
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, req, "10.0.0.1")
	assert.ErrorIs(t, err, common.ErrTooManyRequests)
	profiles.AssertNumberOfCalls(t, "Register", limit)

	_, err = svc.Register(ctx, req, "10.0.0.9")
	assert.NoError(t, err)
}

func TestService_RequestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is not revealed", func(t *testing.T) {
		svc, identity, _ := newTestService(t)
		identity.On("SendPasswordResetEmail", ctx, "ghost@gmail.com", "https://teknigo.test/login").Return(firebase.ErrUserNotFound)
		assert.NoError(t, svc.RequestPasswordReset(ctx, "Ghost@gmail.com", "10.0.0.1"))
	})

	t.Run("sent", func(t *testing.T) {
		svc, identity, _ := newTestService(t)
		identity.On("SendPasswordResetEmail", ctx, "ana@gmail.com", "https://teknigo.test/login").Return(nil)
		assert.NoError(t, svc.RequestPasswordReset(ctx, "ana@gmail.com", "10.0.0.1"))
		identity.AssertExpectations(t)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc, identity, _ := newTestService(t)
		identity.On("SendPasswordResetEmail", ctx, "ana@gmail.com", mock.Anything).Return(errors.New("unavailable"))
		assert.Error(t, svc.RequestPasswordReset(ctx, "ana@gmail.com", "10.0.0.1"))
	})
}

func TestService_OAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid token", func(t *testing.T) {
		svc, identity, profiles := newTestService(t)
		identity.On("VerifyIDToken", ctx, "bad").Return(nil, errors.New("expired"))
		_, err := svc.OAuth(ctx, "bad")
		assert.ErrorIs(t, err, common.ErrUnauthorized)
		profiles.AssertNotCalled(t, "SyncFromToken", mock.Anything, mock.Anything)
	})

	t.Run("first sign-in", func(t *testing.T) {
		svc, identity, profiles := newTestService(t)
		token := &fbauth.Token{UID: "g1"}
		identity.On("VerifyIDToken", ctx, "good").Return(token, nil)
		profiles.On("SyncFromToken", ctx, token).Return(&common.Resource{ID: "g1"}, true, nil)

		res, err := svc.OAuth(ctx, "good")
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "g1", res.User.ID)
	})
}

func TestHandler_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, identity, profiles := newTestService(t)
	fakeAuth := func(c *gin.Context) {
		c.Set(common.UserIDKey, "u1")
		c.Set(common.UserRoleKey, common.RoleTechnician)
		c.Next()
	}
	router := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), fakeAuth)

	t.Run("password requirements", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/password-requirements", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "requirements")
	})

	t.Run("login with invalid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("me", func(t *testing.T) {
		profiles.On("GetProfile", mock.Anything, common.Requester{UID: "u1", Role: common.RoleTechnician}, "u1").
			Return(&common.Resource{ID: "u1", Attributes: sanitizer.Record{"displayName": "Tec"}}, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data MeResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "u1", body.Data.User.ID)
		assert.Equal(t, common.RoleTechnician, body.Data.Role)
	})

	t.Run("logout", func(t *testing.T) {
		identity.On("RevokeRefreshTokens", mock.Anything, "u1").Return(nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		identity.AssertExpectations(t)
	})
}
