// internal/interfaces/http/handlers/procurement.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/procurement"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"gorm.io/gorm"
)

// ProcurementHandler handles purchase order and goods receipt endpoints
type ProcurementHandler struct {
	procurementService *procurement.Service
	config             *config.Config
}

// NewProcurementHandler creates a new procurement handler
func NewProcurementHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ProcurementHandler {
	locks := lock.NewManager(redisClient, cfg.Pharmacy.StockLockTTL)

	return &ProcurementHandler{
		procurementService: procurement.NewService(db, cfg, locks),
		config:             cfg,
	}
}

// CreatePurchaseOrder handles POST /procurement/purchase-orders
func (h *ProcurementHandler) CreatePurchaseOrder(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req procurement.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	po, err := h.procurementService.CreatePurchaseOrder(tenantID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase order created successfully",
		"data":    po,
	})
}

// GetPurchaseOrder handles GET /procurement/purchase-orders/:id
func (h *ProcurementHandler) GetPurchaseOrder(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	poID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	po, err := h.procurementService.GetPurchaseOrder(tenantID, poID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order retrieved successfully",
		"data":    po,
	})
}

// ApprovePurchaseOrder handles POST /procurement/purchase-orders/:id/approve
func (h *ProcurementHandler) ApprovePurchaseOrder(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	poID, ok := parseIDParam(c, "id")
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

	po, err := h.procurementService.ApprovePurchaseOrder(tenantID, userID, poID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order approved successfully",
		"data":    po,
	})
}

// SendPurchaseOrder handles POST /procurement/purchase-orders/:id/send
func (h *ProcurementHandler) SendPurchaseOrder(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	poID, ok := parseIDParam(c, "id")
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

	po, err := h.procurementService.SendPurchaseOrder(tenantID, userID, poID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order sent to vendor",
		"data":    po,
	})
}

// CancelPurchaseOrder handles POST /procurement/purchase-orders/:id/cancel
func (h *ProcurementHandler) CancelPurchaseOrder(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	poID, ok := parseIDParam(c, "id")
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

	po, err := h.procurementService.CancelPurchaseOrder(tenantID, userID, poID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order cancelled successfully",
		"data":    po,
	})
}

// ListReceiptsForOrder handles GET /procurement/purchase-orders/:id/receipts
func (h *ProcurementHandler) ListReceiptsForOrder(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	poID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	receipts, err := h.procurementService.ReceiptsForOrder(tenantID, poID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Goods receipts retrieved successfully",
		"data":    receipts,
	})
}

// CreateGoodsReceipt handles POST /procurement/goods-receipts
func (h *ProcurementHandler) CreateGoodsReceipt(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req procurement.CreateGoodsReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	grn, err := h.procurementService.CreateGoodsReceipt(tenantID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Goods receipt processed successfully",
		"data":    grn,
	})
}

// GetGoodsReceipt handles GET /procurement/goods-receipts/:id
func (h *ProcurementHandler) GetGoodsReceipt(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	grnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	grn, err := h.procurementService.GetGoodsReceipt(tenantID, grnID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Goods receipt retrieved successfully",
		"data":    grn,
	})
}
