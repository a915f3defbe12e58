// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Requester describes who is asking for a record. The zero value is an anonymous caller.
type Requester struct {
	UID   string
	Email string
	Role  Role
}

// IsAuthenticated reports whether the requester carries a Firebase UID.
func (r Requester) IsAuthenticated() bool {
	return r.UID != ""
}

// IsAdmin reports whether the requester has the admin role.
func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}

// GetTokenFromContext retrieves the bearer token string from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetUserIDFromContext retrieves the Firebase UID from the Gin context.
func GetUserIDFromContext(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUserRoleFromContext retrieves the user role from the Gin context.
func GetUserRoleFromContext(c *gin.Context) Role {
	val, exists := c.Get(UserRoleKey)
	if !exists {
		return RoleAnonymous
	}
	role, ok := val.(Role)
	if !ok {
		return RoleAnonymous
	}
	return role
}

// GetRequesterFromContext assembles the Requester set by the auth middleware.
func GetRequesterFromContext(c *gin.Context) Requester {
	return Requester{
		UID:   GetUserIDFromContext(c),
		Email: c.GetString(UserEmailKey),
		Role:  GetUserRoleFromContext(c),
	}
}
