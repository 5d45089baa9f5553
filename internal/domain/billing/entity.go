// internal/domain/billing/entity.go
package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the invoice lifecycle status
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusFinal     InvoiceStatus = "FINAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// invoiceTransitions is the closed transition table for invoices
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft: {InvoiceStatusFinal, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusFinal: {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:  {},
}

// PaymentMode represents how a payment was received
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCard   PaymentMode = "CARD"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeCheque PaymentMode = "CHEQUE"
)

// CreditEntryType marks the direction of a patient credit-ledger entry
type CreditEntryType string

const (
	CreditEntryDebit  CreditEntryType = "DEBIT"
	CreditEntryCredit CreditEntryType = "CREDIT"
)

// Invoice represents a patient invoice raised against a visit
type Invoice struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	TenantID      uint          `gorm:"not null;uniqueIndex:idx_invoices_tenant_number" json:"tenant_id"`
	InvoiceNumber string        `gorm:"not null;size:50;uniqueIndex:idx_invoices_tenant_number" json:"invoice_number"`
	PatientID     uint          `gorm:"not null;index" json:"patient_id"`
	VisitID       *uint         `gorm:"index" json:"visit_id"`
	Status        InvoiceStatus `gorm:"not null;size:20" json:"status"`

	// Financial information
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	NetAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"outstanding_amount"`

	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedBy uint           `gorm:"not null" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
}

// InvoiceItem represents one billed line on an invoice
type InvoiceItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	InvoiceID      uint            `gorm:"not null;index" json:"invoice_id"`
	Description    string          `gorm:"not null;size:255" json:"description"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Payment represents money received against an invoice
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TenantID        uint            `gorm:"not null;index" json:"tenant_id"`
	InvoiceID       uint            `gorm:"not null;index" json:"invoice_id"`
	Mode            PaymentMode     `gorm:"not null;size:10" json:"mode"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	ReceivedBy      uint            `gorm:"not null" json:"received_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreditLedgerEntry is one append-only row of a patient's credit
// account. Balance carries the running total after this entry, so the
// newest row is the patient's current balance.
type CreditLedgerEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TenantID      uint            `gorm:"not null;index:idx_credit_ledger_patient" json:"tenant_id"`
	PatientID     uint            `gorm:"not null;index:idx_credit_ledger_patient" json:"patient_id"`
	EntryType     CreditEntryType `gorm:"not null;size:10" json:"entry_type"`
	ReferenceType string          `gorm:"not null;size:20" json:"reference_type"`
	ReferenceID   uint            `gorm:"not null" json:"reference_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Balance       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     uint            `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName overrides
func (Invoice) TableName() string           { return "invoices" }
func (InvoiceItem) TableName() string       { return "invoice_items" }
func (Payment) TableName() string           { return "payments" }
func (CreditLedgerEntry) TableName() string { return "credit_ledger_entries" }

// Business methods for Invoice

// CanTransitionTo checks the invoice transition table
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether nothing is outstanding on the invoice
func (i *Invoice) IsSettled() bool {
	return i.OutstandingAmount.IsZero()
}

// CanReceivePayment checks if the invoice can take another payment
func (i *Invoice) CanReceivePayment() bool {
	return (i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusFinal) &&
		i.OutstandingAmount.IsPositive()
}
