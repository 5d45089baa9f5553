// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"github.com/your-org/hospital-backend/internal/pkg/auth"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		// Every downstream query is scoped by the tenant set here,
		// never by a client-sent value.
		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("user_role", claims.Role)
		c.Set("token_claims", claims)

		c.Next()
	}
}

// AdminMiddleware ensures the user holds the ADMIN role
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRoleFromContext(c)
		if !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}

		if role != user.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}

		c.Next()
	}
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(uint), true
	}
	return 0, false
}

// GetTenantIDFromContext extracts tenant ID from gin context
func GetTenantIDFromContext(c *gin.Context) (uint, bool) {
	if tenantID, exists := c.Get("tenant_id"); exists {
		return tenantID.(uint), true
	}
	return 0, false
}

// GetRoleFromContext extracts the staff role from gin context
func GetRoleFromContext(c *gin.Context) (user.Role, bool) {
	if role, exists := c.Get("user_role"); exists {
		return user.Role(role.(string)), true
	}
	return "", false
}
