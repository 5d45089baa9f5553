// internal/interfaces/http/handlers/staff.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"github.com/your-org/hospital-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// StaffHandler handles staff account administration endpoints
type StaffHandler struct {
	adminService *user.AdminService
	redisClient  *redis.Client
	config       *config.Config
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *StaffHandler {
	return &StaffHandler{
		adminService: user.NewAdminService(db, cfg),
		redisClient:  redisClient,
		config:       cfg,
	}
}

// CreateStaff handles POST /admin/users
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	tenantID, adminID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req user.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	staff, err := h.adminService.CreateStaff(tenantID, adminID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Staff account created, temporary password sent by email",
		"data":    staff,
	})
}

// GetStaff handles GET /admin/users/:id
func (h *StaffHandler) GetStaff(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	staff, err := h.adminService.GetStaff(tenantID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Staff member retrieved successfully",
		"data":    staff,
	})
}

// UpdateStaffStatus handles PUT /admin/users/:id/status
func (h *StaffHandler) UpdateStaffStatus(c *gin.Context) {
	tenantID, adminID, ok := requestIdentity(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req user.StaffStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.adminService.UpdateStaffStatus(tenantID, adminID, userID, &req); err != nil {
		respondError(c, err)
		return
	}

	// Drop the cached permission set so a deactivation bites now, not
	// when the cache expires
	middleware.InvalidatePermissionCache(h.redisClient, tenantID, userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Staff status updated successfully",
	})
}

// UpdateStaffRole handles PUT /admin/users/:id/role
func (h *StaffHandler) UpdateStaffRole(c *gin.Context) {
	tenantID, adminID, ok := requestIdentity(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req user.StaffRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.adminService.UpdateStaffRole(tenantID, adminID, userID, &req); err != nil {
		respondError(c, err)
		return
	}

	middleware.InvalidatePermissionCache(h.redisClient, tenantID, userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Staff role updated successfully",
	})
}

// ResetStaffPassword handles POST /admin/users/:id/reset-password
func (h *StaffHandler) ResetStaffPassword(c *gin.Context) {
	tenantID, adminID, ok := requestIdentity(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.ResetStaffPassword(tenantID, adminID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset, temporary password sent by email",
	})
}
