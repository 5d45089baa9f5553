// internal/interfaces/http/handlers/billing.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"gorm.io/gorm"
)

// BillingHandler handles invoice, payment and patient credit endpoints
type BillingHandler struct {
	billingService *billing.Service
	config         *config.Config
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(db *gorm.DB, cfg *config.Config) *BillingHandler {
	return &BillingHandler{
		billingService: billing.NewService(db, cfg),
		config:         cfg,
	}
}

// GetInvoice handles GET /billing/invoices/:id
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := h.billingService.GetInvoice(tenantID, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice retrieved successfully",
		"data":    inv,
	})
}

// RecordPayment handles POST /billing/invoices/:id/payments. The
// invoice comes from the path, not the body.
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Mode            billing.PaymentMode `json:"mode" binding:"required,oneof=CASH CARD UPI CHEQUE"`
		Amount          decimal.Decimal     `json:"amount" binding:"required,dpositive"`
		ReferenceNumber string              `json:"reference_number"`
		Notes           string              `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	payment, err := h.billingService.RecordPayment(tenantID, userID, &billing.RecordPaymentRequest{
		InvoiceID:       invoiceID,
		Mode:            body.Mode,
		Amount:          body.Amount,
		ReferenceNumber: body.ReferenceNumber,
		Notes:           body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment recorded successfully",
		"data":    payment,
	})
}

// PatientCredit handles GET /billing/patients/:id/credit
func (h *BillingHandler) PatientCredit(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	balance, err := h.billingService.CreditBalance(tenantID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	history, err := h.billingService.CreditHistory(tenantID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Patient credit retrieved successfully",
		"data": gin.H{
			"patient_id": patientID,
			"balance":    balance,
			"history":    history,
		},
	})
}
