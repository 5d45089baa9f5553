// internal/interfaces/http/handlers/sale.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/sale"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"github.com/your-org/hospital-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// SaleHandler handles pharmacy sale endpoints
type SaleHandler struct {
	saleService    *sale.Service
	billingService *billing.Service
	patientService *patient.Service
	pdfService     *pdf.Service
	config         *config.Config
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SaleHandler {
	locks := lock.NewManager(redisClient, cfg.Pharmacy.StockLockTTL)

	return &SaleHandler{
		saleService:    sale.NewService(db, cfg, locks),
		billingService: billing.NewService(db, cfg),
		patientService: patient.NewService(db, cfg),
		pdfService:     pdf.NewService(cfg),
		config:         cfg,
	}
}

// Create handles POST /pharmacy/sales
func (h *SaleHandler) Create(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req sale.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.saleService.Create(tenantID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Sale completed successfully"
	if created.Status == sale.StatusPendingApproval {
		message = "Sale recorded, awaiting discount approval"
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"data":    created,
	})
}

// Get handles GET /pharmacy/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sl, err := h.saleService.GetByID(tenantID, saleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sl,
	})
}

// GetByNumber handles GET /pharmacy/sales/number/:number
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	saleNumber := c.Param("number")
	if saleNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Sale number is required",
		})
		return
	}

	sl, err := h.saleService.GetByNumber(tenantID, saleNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sl,
	})
}

// Approve handles POST /pharmacy/sales/:id/approve
func (h *SaleHandler) Approve(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	saleID, ok := parseIDParam(c, "id")
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

	approved, err := h.saleService.Approve(tenantID, userID, saleID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale approved successfully",
		"data":    approved,
	})
}

// Cancel handles POST /pharmacy/sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.saleService.Cancel(tenantID, userID, saleID, req.ExpectedVersion, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale cancelled successfully",
	})
}

// InvoicePDF handles GET /pharmacy/sales/:id/invoice/pdf
func (h *SaleHandler) InvoicePDF(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sl, err := h.saleService.GetByID(tenantID, saleID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Sales pending approval have no invoice yet
	if sl.InvoiceID == nil {
		respondError(c, apperror.InvalidState("SALE_NOT_INVOICED",
			"sale has no invoice, it may still be awaiting approval"))
		return
	}

	inv, err := h.billingService.GetInvoice(tenantID, *sl.InvoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	pat, err := h.patientService.GetByID(tenantID, sl.PatientID)
	if err != nil {
		respondError(c, err)
		return
	}

	pdfBuffer, err := h.pdfService.GenerateInvoice(inv, sl, pat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate invoice PDF",
		})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))

	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
