// internal/interfaces/http/handlers/reports.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/reports"
	"gorm.io/gorm"
)

// ReportsHandler handles operational report endpoints
type ReportsHandler struct {
	reportsService *reports.Service
	config         *config.Config
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(db *gorm.DB, cfg *config.Config) *ReportsHandler {
	return &ReportsHandler{
		reportsService: reports.NewService(db, cfg),
		config:         cfg,
	}
}

// Dashboard handles GET /reports/dashboard
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	stats, err := h.reportsService.GetDashboardStats(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard statistics retrieved successfully",
		"data":    stats,
	})
}

// SalesSummary handles GET /reports/sales
func (h *ReportsHandler) SalesSummary(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	summary, err := h.reportsService.GetSalesSummary(tenantID, days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales summary retrieved successfully",
		"data":    summary,
	})
}

// StockValuation handles GET /reports/stock-valuation
func (h *ReportsHandler) StockValuation(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	valuation, err := h.reportsService.GetStockValuation(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock valuation retrieved successfully",
		"data":    valuation,
	})
}
