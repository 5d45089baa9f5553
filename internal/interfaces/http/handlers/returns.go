// internal/interfaces/http/handlers/returns.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/returns"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"gorm.io/gorm"
)

// ReturnHandler handles sale return endpoints
type ReturnHandler struct {
	returnService *returns.Service
	config        *config.Config
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ReturnHandler {
	locks := lock.NewManager(redisClient, cfg.Pharmacy.StockLockTTL)

	return &ReturnHandler{
		returnService: returns.NewService(db, cfg, locks),
		config:        cfg,
	}
}

// Create handles POST /pharmacy/returns
func (h *ReturnHandler) Create(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req returns.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.returnService.Create(tenantID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Return created successfully, awaiting approval",
		"data":    created,
	})
}

// Get handles GET /pharmacy/returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ret, err := h.returnService.GetByID(tenantID, returnID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return retrieved successfully",
		"data":    ret,
	})
}

// Approve handles POST /pharmacy/returns/:id/approve
func (h *ReturnHandler) Approve(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	approved, err := h.returnService.Approve(tenantID, userID, returnID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return approved successfully",
		"data":    approved,
	})
}

// Cancel handles POST /pharmacy/returns/:id/cancel
func (h *ReturnHandler) Cancel(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.returnService.Cancel(tenantID, userID, returnID, req.ExpectedVersion); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return cancelled successfully",
	})
}
