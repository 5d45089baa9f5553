// internal/domain/billing/service.go
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by billing operations
const (
	ErrCodeInvoiceNotFound       = "INVOICE_NOT_FOUND"
	ErrCodeInvoiceInvalidStatus  = "INVOICE_INVALID_STATUS"
	ErrCodePaymentExceedsBalance = "PAYMENT_EXCEEDS_OUTSTANDING"
)

// Service handles invoicing and the patient credit ledger
type Service struct {
	db        *gorm.DB
	config    *config.Config
	sequences *sequence.Service
}

// NewService creates a new billing service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		sequences: sequence.NewService(db),
	}
}

// InvoiceLineInput is one line to bill on a new invoice
type InvoiceLineInput struct {
	Description    string
	Quantity       int
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// InvoiceInput carries everything needed to raise an invoice inside a
// caller's transaction
type InvoiceInput struct {
	TenantID       uint
	PatientID      uint
	VisitID        *uint
	CreditAllowed  bool
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	NetAmount      decimal.Decimal
	Notes          string
	CreatedBy      uint
	Lines          []InvoiceLineInput
}

// RecordPaymentRequest represents payment capture data
type RecordPaymentRequest struct {
	InvoiceID       uint            `json:"invoice_id" binding:"required"`
	Mode            PaymentMode     `json:"mode" binding:"required,oneof=CASH CARD UPI CHEQUE"`
	Amount          decimal.Decimal `json:"amount" binding:"required,dpositive"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// CreateInvoice raises an invoice inside the caller's transaction.
// Credit invoices start as DRAFT with the full net amount outstanding;
// cash invoices are FINAL and settled immediately.
func (s *Service) CreateInvoice(tx *gorm.DB, input *InvoiceInput) (*Invoice, error) {
	number, err := s.sequences.Next(tx, input.TenantID, sequence.PrefixInvoice, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := Invoice{
		TenantID:       input.TenantID,
		InvoiceNumber:  number,
		PatientID:      input.PatientID,
		VisitID:        input.VisitID,
		TotalAmount:    input.TotalAmount,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		NetAmount:      input.NetAmount,
		Notes:          input.Notes,
		CreatedBy:      input.CreatedBy,
	}
	if input.CreditAllowed {
		invoice.Status = InvoiceStatusDraft
		invoice.PaidAmount = decimal.Zero
		invoice.OutstandingAmount = input.NetAmount
	} else {
		invoice.Status = InvoiceStatusFinal
		invoice.PaidAmount = input.NetAmount
		invoice.OutstandingAmount = decimal.Zero
	}

	if err := tx.Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	for _, line := range input.Lines {
		item := InvoiceItem{
			InvoiceID:      invoice.ID,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			DiscountAmount: line.DiscountAmount,
			TaxAmount:      line.TaxAmount,
			TotalAmount:    line.TotalAmount,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to create invoice item: %w", err)
		}
		invoice.Items = append(invoice.Items, item)
	}

	return &invoice, nil
}

// CancelInvoice marks an invoice cancelled inside the caller's
// transaction. Paid invoices cannot be cancelled.
func (s *Service) CancelInvoice(tx *gorm.DB, tenantID, invoiceID uint) error {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", invoiceID, tenantID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodeInvoiceNotFound, "invoice not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if !invoice.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return apperror.InvalidState(ErrCodeInvoiceInvalidStatus,
			fmt.Sprintf("invoice in status %s cannot be cancelled", invoice.Status))
	}

	updates := map[string]interface{}{
		"status":             InvoiceStatusCancelled,
		"outstanding_amount": decimal.Zero,
	}
	if err := tx.Model(&invoice).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to cancel invoice: %w", err)
	}
	return nil
}

// AppendCreditEntry writes one patient credit-ledger row inside the
// caller's transaction. The patient row is locked first so concurrent
// writers cannot compute the running balance from a stale tail.
func (s *Service) AppendCreditEntry(tx *gorm.DB, tenantID, patientID uint, entryType CreditEntryType, referenceType string, referenceID uint, amount decimal.Decimal, notes string, userID uint) (*CreditLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit ledger amount must be positive, got %s", amount)
	}

	var p patient.Patient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", patientID, tenantID).
		First(&p).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock patient for credit entry: %w", err)
	}

	balance, err := s.tailBalance(tx, tenantID, patientID)
	if err != nil {
		return nil, err
	}

	switch entryType {
	case CreditEntryDebit:
		balance = balance.Add(amount)
	case CreditEntryCredit:
		balance = balance.Sub(amount)
	default:
		return nil, fmt.Errorf("unknown credit entry type %q", entryType)
	}

	entry := CreditLedgerEntry{
		TenantID:      tenantID,
		PatientID:     patientID,
		EntryType:     entryType,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Amount:        amount,
		Balance:       balance,
		Notes:         notes,
		CreatedBy:     userID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to append credit ledger entry: %w", err)
	}
	return &entry, nil
}

// CreditBalance returns the patient's current credit balance
func (s *Service) CreditBalance(tenantID, patientID uint) (decimal.Decimal, error) {
	return s.tailBalance(s.db, tenantID, patientID)
}

// CreditHistory returns the patient's credit ledger, newest first
func (s *Service) CreditHistory(tenantID, patientID uint) ([]CreditLedgerEntry, error) {
	var entries []CreditLedgerEntry
	err := s.db.
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID).
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load credit ledger: %w", err)
	}
	return entries, nil
}

// RecordPayment captures money against an invoice, settles the
// outstanding amount, and credits the patient ledger for draft (credit)
// invoices.
func (s *Service) RecordPayment(tenantID, userID uint, req *RecordPaymentRequest) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", req.InvoiceID, tenantID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodeInvoiceNotFound, "invoice not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	if !invoice.CanReceivePayment() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodeInvoiceInvalidStatus,
			fmt.Sprintf("invoice in status %s has nothing outstanding", invoice.Status))
	}
	if req.Amount.GreaterThan(invoice.OutstandingAmount) {
		tx.Rollback()
		return nil, apperror.DomainRulef(ErrCodePaymentExceedsBalance,
			"payment %s exceeds outstanding %s", req.Amount, invoice.OutstandingAmount)
	}

	payment := Payment{
		TenantID:        tenantID,
		InvoiceID:       invoice.ID,
		Mode:            req.Mode,
		Amount:          req.Amount,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		ReceivedBy:      userID,
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	paid := invoice.PaidAmount.Add(req.Amount)
	outstanding := invoice.OutstandingAmount.Sub(req.Amount)
	updates := map[string]interface{}{
		"paid_amount":        paid,
		"outstanding_amount": outstanding,
	}
	if outstanding.IsZero() {
		updates["status"] = InvoiceStatusPaid
	}
	if err := tx.Model(&invoice).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to settle invoice: %w", err)
	}

	// A payment against a credit invoice pays down the patient account
	if invoice.Status == InvoiceStatusDraft {
		_, err := s.AppendCreditEntry(tx, tenantID, invoice.PatientID, CreditEntryCredit,
			"PAYMENT", payment.ID, req.Amount, fmt.Sprintf("payment against invoice %s", invoice.InvoiceNumber), userID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}
	return &payment, nil
}

// GetInvoice retrieves a single invoice with its items and payments
func (s *Service) GetInvoice(tenantID, invoiceID uint) (*Invoice, error) {
	var invoice Invoice
	err := s.db.
		Preload("Items").
		Preload("Payments").
		Where("id = ? AND tenant_id = ?", invoiceID, tenantID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeInvoiceNotFound, "invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve invoice: %w", err)
	}
	return &invoice, nil
}

// tailBalance reads the running balance from the newest ledger row
func (s *Service) tailBalance(db *gorm.DB, tenantID, patientID uint) (decimal.Decimal, error) {
	var tail CreditLedgerEntry
	err := db.
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID).
		Order("id DESC").
		First(&tail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read credit ledger tail: %w", err)
	}
	return tail.Balance, nil
}
