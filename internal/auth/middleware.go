package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/entities"
)

// Context keys for principal data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// Middleware authenticates requests from the Authorization bearer header.
type Middleware struct {
	tokens *TokenService
}

func NewMiddleware(tokens *TokenService) *Middleware {
	return &Middleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid access token and stores the
// principal in the context.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.bearerClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequirePermission layers a role-predicate gate on top of RequireAuth,
// e.g. RequirePermission(entities.Role.CanManageCatalog). The denial body is
// constant so a 403 never confirms what it protects.
func (m *Middleware) RequirePermission(allowed func(entities.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(GetUserRole(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied",
			})
			return
		}
		c.Next()
	}
}

func (m *Middleware) bearerClaims(c *gin.Context) *Claims {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}
	claims, err := m.tokens.VerifyAccess(parts[1])
	if err != nil {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user's ID from the context.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.Role {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.Role); ok {
			return role
		}
	}
	return ""
}
