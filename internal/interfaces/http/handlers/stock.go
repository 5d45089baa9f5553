// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// StockHandler handles stock report endpoints backed by the ledger
type StockHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewStockHandler creates a new stock handler
func NewStockHandler(db *gorm.DB, cfg *config.Config) *StockHandler {
	return &StockHandler{
		inventoryService: inventory.NewService(db, cfg),
		config:           cfg,
	}
}

// StoreStock handles GET /inventory/stores/:id/stock
func (h *StockHandler) StoreStock(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stock, err := h.inventoryService.StoreStock(tenantID, storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Store stock retrieved successfully",
		"data":    stock,
	})
}

// LowStock handles GET /inventory/stores/:id/stock/low
func (h *StockHandler) LowStock(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rows, err := h.inventoryService.LowStock(tenantID, storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock report retrieved successfully",
		"data":    rows,
	})
}

// ExpiringBatches handles GET /inventory/stores/:id/stock/expiring
func (h *StockHandler) ExpiringBatches(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rows, err := h.inventoryService.ExpiringBatches(tenantID, storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Expiring batches retrieved successfully",
		"data":    rows,
	})
}

// BatchStocks handles GET /inventory/stores/:id/stock/batches
func (h *StockHandler) BatchStocks(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Query("product_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Valid product_id query parameter is required",
		})
		return
	}

	batches, err := h.inventoryService.BatchStocks(tenantID, storeID, uint(productID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Batch stock retrieved successfully",
		"data":    batches,
	})
}

// Ledger handles GET /inventory/ledger
func (h *StockHandler) Ledger(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	reference := c.Query("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "reference query parameter is required",
		})
		return
	}

	entries, err := h.inventoryService.EntriesByReference(tenantID, reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ledger entries retrieved successfully",
		"data":    entries,
	})
}
