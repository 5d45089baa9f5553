// internal/domain/sale/entity.go
package sale

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status represents the sale lifecycle status
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// Type distinguishes outpatient and inpatient sales
type Type string

const (
	TypeOutpatient Type = "OP"
	TypeInpatient  Type = "IP"
)

// statusTransitions is the closed transition table. Anything not listed
// here is an illegal transition.
var statusTransitions = map[Status][]Status{
	StatusPendingApproval: {StatusCompleted, StatusCancelled},
	StatusCompleted:       {StatusCancelled},
	StatusCancelled:       {},
}

// Sale represents one pharmacy sale
type Sale struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   uint   `gorm:"not null;uniqueIndex:idx_sales_tenant_number" json:"tenant_id"`
	SaleNumber string `gorm:"not null;size:50;uniqueIndex:idx_sales_tenant_number" json:"sale_number"`
	StoreID    uint   `gorm:"not null;index" json:"store_id"`
	PatientID  uint   `gorm:"not null;index" json:"patient_id"`
	SaleType   Type   `gorm:"not null;size:5;default:'OP'" json:"sale_type"`
	Status     Status `gorm:"not null;size:20" json:"status"`

	// Clinical linkage
	VisitID        *uint `gorm:"index" json:"visit_id"`
	PrescriptionID *uint `gorm:"index" json:"prescription_id"`
	DoctorID       *uint `json:"doctor_id"`

	// Financial information
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	CreditAllowed  bool            `gorm:"not null;default:false" json:"credit_allowed"`
	InvoiceID      *uint           `gorm:"index" json:"invoice_id"`

	// Optimistic concurrency: incremented on every status transition
	Version int `gorm:"not null;default:1" json:"version"`

	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedBy uint           `gorm:"not null" json:"created_by"`
	UpdatedBy uint           `json:"updated_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []SaleStatusHistory `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// SaleItem represents one dispensed line of a sale. A PENDING_APPROVAL
// sale carries items with the placeholder batch marker and no ledger
// linkage; allocation fills in real batches and ledger entry ids.
type SaleItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	SaleID             uint            `gorm:"not null;index" json:"sale_id"`
	ProductID          uint            `gorm:"not null;index" json:"product_id"`
	PrescriptionItemID *uint           `gorm:"index" json:"prescription_item_id"`
	ProductName        string          `gorm:"not null;size:255" json:"product_name"`
	BatchNumber        string          `gorm:"not null;size:50" json:"batch_number"`
	ExpiryDate         *time.Time      `json:"expiry_date"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	LedgerEntryID      *uint           `gorm:"index" json:"ledger_entry_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SaleStatusHistory tracks sale status changes
type SaleStatusHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SaleID    uint      `gorm:"not null;index" json:"sale_id"`
	Status    Status    `gorm:"not null" json:"status"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedBy uint      `gorm:"index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Sale) TableName() string              { return "sales" }
func (SaleItem) TableName() string          { return "sale_items" }
func (SaleStatusHistory) TableName() string { return "sale_status_history" }

// Business methods for Sale

// CanTransitionTo checks the status transition table
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanBeApproved checks if the sale is waiting on discount approval
func (s *Sale) CanBeApproved() bool {
	return s.Status == StatusPendingApproval
}

// CanBeCancelled checks if the sale can still be cancelled
func (s *Sale) CanBeCancelled() bool {
	return s.Status != StatusCancelled
}

// IsAllocated reports whether stock has been drawn for this sale
func (s *Sale) IsAllocated() bool {
	return s.Status == StatusCompleted
}

// AddStatusHistory adds a new status change to history
func (s *Sale) AddStatusHistory(status Status, comment string, createdBy uint) {
	history := SaleStatusHistory{
		SaleID:    s.ID,
		Status:    status,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	s.StatusHistory = append(s.StatusHistory, history)
}
