// internal/interfaces/http/middleware/permission.go
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"gorm.io/gorm"
)

// cachedPermissionSet is the per-user entry stored in redis. It carries
// the role read from the database, not the one baked into the JWT, so
// role changes take effect within the cache TTL instead of waiting for
// token expiry.
type cachedPermissionSet struct {
	Role        string   `json:"role"`
	IsActive    bool     `json:"is_active"`
	Permissions []string `json:"permissions"`
}

func permissionCacheKey(tenantID, userID uint) string {
	return fmt.Sprintf("pharmacy:permissions:%d:%d", tenantID, userID)
}

// RequirePermission guards a route with a single permission string
func RequirePermission(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, tenantOK := GetTenantIDFromContext(c)
		userID, userOK := GetUserIDFromContext(c)
		if !tenantOK || !userOK {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		set, err := loadPermissionSet(db, redisClient, cfg, tenantID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve permissions",
			})
			c.Abort()
			return
		}

		if !set.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Account is deactivated",
			})
			c.Abort()
			return
		}

		for _, p := range set.Permissions {
			if p == permission {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("Missing permission: %s", permission),
		})
		c.Abort()
	}
}

// loadPermissionSet resolves a user's permission set, redis first, the
// database on a miss. A redis outage degrades to a database read per
// request rather than blocking logins.
func loadPermissionSet(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, tenantID, userID uint) (*cachedPermissionSet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	key := permissionCacheKey(tenantID, userID)

	if redisClient != nil {
		if data, err := redisClient.Get(ctx, key).Bytes(); err == nil {
			var cached cachedPermissionSet
			if unmarshalErr := json.Unmarshal(data, &cached); unmarshalErr == nil {
				return &cached, nil
			}
		}
	}

	var staff user.User
	err := db.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&staff).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user for permission check: %w", err)
	}

	set := &cachedPermissionSet{
		Role:        string(staff.Role),
		IsActive:    staff.IsActive,
		Permissions: user.PermissionsForRole(staff.Role),
	}

	if redisClient != nil {
		if data, err := json.Marshal(set); err == nil {
			redisClient.Set(ctx, key, data, cfg.Security.PermissionCacheTTL)
		}
	}

	return set, nil
}

// InvalidatePermissionCache drops a user's cached permission set. The
// staff handlers call this after role or status changes so the change
// lands immediately instead of after the TTL.
func InvalidatePermissionCache(redisClient *redis.Client, tenantID, userID uint) {
	if redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	redisClient.Del(ctx, permissionCacheKey(tenantID, userID))
}
