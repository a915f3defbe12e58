package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	args := m.Called(ctx, idToken)
	if tok := args.Get(0); tok != nil {
		return tok.(*fbauth.Token), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) ResolveRole(ctx context.Context, uid string) (common.Role, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(common.Role), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func whoAmI(c *gin.Context) {
	r := common.GetRequesterFromContext(c)
	c.JSON(http.StatusOK, gin.H{"uid": r.UID, "email": r.Email, "role": string(r.Role)})
}

func newAuthRouter(t *testing.T) (*gin.Engine, *MockVerifier, *MockRoles) {
	t.Helper()
	verifier := &MockVerifier{}
	roles := &MockRoles{}
	auth := NewAuthenticator(verifier, roles, zap.NewNop())

	r := gin.New()
	r.GET("/required", auth.Required(), whoAmI)
	r.GET("/optional", auth.Optional(), whoAmI)
	r.GET("/admin", auth.Required(), RoleAuthMiddleware(common.RoleAdmin), whoAmI)
	return r, verifier, roles
}

func doRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequired_MissingHeader(t *testing.T) {
	r, verifier, _ := newAuthRouter(t)

	w := doRequest(r, http.MethodGet, "/required", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	verifier.AssertNotCalled(t, "VerifyIDToken", mock.Anything, mock.Anything)
}

func TestRequired_MalformedHeader(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set(common.AuthorizationHeader, "Token abc")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequired_InvalidToken(t *testing.T) {
	r, verifier, roles := newAuthRouter(t)
	verifier.On("VerifyIDToken", mock.Anything, "bad").Return(nil, errors.New("expired"))

	w := doRequest(r, http.MethodGet, "/required", "bad")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token.")
	roles.AssertNotCalled(t, "ResolveRole", mock.Anything, mock.Anything)
}

func TestRequired_SetsRequester(t *testing.T) {
	r, verifier, roles := newAuthRouter(t)
	verifier.On("VerifyIDToken", mock.Anything, "good").
		Return(&fbauth.Token{UID: "u1", Claims: map[string]interface{}{"email": "ana@example.com"}}, nil)
	roles.On("ResolveRole", mock.Anything, "u1").Return(common.RoleTechnician, nil)

	w := doRequest(r, http.MethodGet, "/required", "good")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","email":"ana@example.com","role":"technician"}`, w.Body.String())
}

func TestRequired_DisabledAccount(t *testing.T) {
	r, verifier, roles := newAuthRouter(t)
	verifier.On("VerifyIDToken", mock.Anything, "good").Return(&fbauth.Token{UID: "u1"}, nil)
	roles.On("ResolveRole", mock.Anything, "u1").Return(common.RoleAnonymous, common.ErrForbidden.WithDetails("Account disabled."))

	w := doRequest(r, http.MethodGet, "/required", "good")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequired_RoleLookupFailure(t *testing.T) {
	r, verifier, roles := newAuthRouter(t)
	verifier.On("VerifyIDToken", mock.Anything, "good").Return(&fbauth.Token{UID: "u1"}, nil)
	roles.On("ResolveRole", mock.Anything, "u1").Return(common.RoleAnonymous, errors.New("firestore down"))

	w := doRequest(r, http.MethodGet, "/required", "good")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOptional(t *testing.T) {
	t.Run("no token continues anonymously", func(t *testing.T) {
		r, _, _ := newAuthRouter(t)

		w := doRequest(r, http.MethodGet, "/optional", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"uid":"","email":"","role":""}`, w.Body.String())
	})

	t.Run("invalid token continues anonymously", func(t *testing.T) {
		r, verifier, _ := newAuthRouter(t)
		verifier.On("VerifyIDToken", mock.Anything, "bad").Return(nil, errors.New("expired"))

		w := doRequest(r, http.MethodGet, "/optional", "bad")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"uid":"","email":"","role":""}`, w.Body.String())
	})

	t.Run("valid token identifies caller", func(t *testing.T) {
		r, verifier, roles := newAuthRouter(t)
		verifier.On("VerifyIDToken", mock.Anything, "good").Return(&fbauth.Token{UID: "c1"}, nil)
		roles.On("ResolveRole", mock.Anything, "c1").Return(common.RoleClient, nil)

		w := doRequest(r, http.MethodGet, "/optional", "good")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"uid":"c1","email":"","role":"client"}`, w.Body.String())
	})
}

func TestRoleAuthMiddleware(t *testing.T) {
	r, verifier, roles := newAuthRouter(t)
	verifier.On("VerifyIDToken", mock.Anything, "client").Return(&fbauth.Token{UID: "c1"}, nil)
	verifier.On("VerifyIDToken", mock.Anything, "admin").Return(&fbauth.Token{UID: "a1"}, nil)
	roles.On("ResolveRole", mock.Anything, "c1").Return(common.RoleClient, nil)
	roles.On("ResolveRole", mock.Anything, "a1").Return(common.RoleAdmin, nil)

	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/admin", "client").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/admin", "admin").Code)
}

func TestRoleAuthMiddleware_NoRole(t *testing.T) {
	r := gin.New()
	r.GET("/x", RoleAuthMiddleware(common.RoleClient), whoAmI)

	w := doRequest(r, http.MethodGet, "/x", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}
