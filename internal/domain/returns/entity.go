// internal/domain/returns/entity.go
package returns

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status represents the sale return lifecycle status
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

// statusTransitions is the closed transition table. Approval is
// terminal because it writes the ledger reversal.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusApproved, StatusCancelled},
	StatusApproved:  {},
	StatusCancelled: {},
}

// SaleReturn represents a return raised against a completed sale
type SaleReturn struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TenantID     uint   `gorm:"not null;uniqueIndex:idx_sale_returns_tenant_number" json:"tenant_id"`
	ReturnNumber string `gorm:"not null;size:50;uniqueIndex:idx_sale_returns_tenant_number" json:"return_number"`
	SaleID       uint   `gorm:"not null;index" json:"sale_id"`
	StoreID      uint   `gorm:"not null;index" json:"store_id"`
	PatientID    uint   `gorm:"not null;index" json:"patient_id"`
	ReturnType   string `gorm:"not null;size:5" json:"return_type"`
	Status       Status `gorm:"not null;size:20;default:'DRAFT'" json:"status"`

	RefundAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"refund_amount"`
	Reason       string          `gorm:"type:text" json:"reason"`

	// Optimistic concurrency: incremented on every status transition
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedBy  uint           `gorm:"not null" json:"created_by"`
	ApprovedBy *uint          `json:"approved_by"`
	ApprovedAt *time.Time     `json:"approved_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []SaleReturnItem `gorm:"foreignKey:SaleReturnID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// SaleReturnItem represents one returned line. It pins the exact batch
// the original sale item was allocated from, so approval credits stock
// back where it was drawn.
type SaleReturnItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SaleReturnID uint            `gorm:"not null;index" json:"sale_return_id"`
	SaleItemID   uint            `gorm:"not null;index" json:"sale_item_id"`
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	ProductName  string          `gorm:"not null;size:255" json:"product_name"`
	BatchNumber  string          `gorm:"not null;size:50" json:"batch_number"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"refund_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName overrides
func (SaleReturn) TableName() string     { return "sale_returns" }
func (SaleReturnItem) TableName() string { return "sale_return_items" }

// Business methods

// CanTransitionTo checks the return transition table
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanBeApproved checks if the return is still a draft
func (r *SaleReturn) CanBeApproved() bool {
	return r.Status == StatusDraft
}

// CanBeCancelled checks if the return can be withdrawn
func (r *SaleReturn) CanBeCancelled() bool {
	return r.Status == StatusDraft
}
