// internal/domain/procurement/entity.go
package procurement

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POStatus represents the purchase order lifecycle status
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusApproved  POStatus = "APPROVED"
	POStatusSent      POStatus = "SENT"
	POStatusPartial   POStatus = "PARTIAL"
	POStatusReceived  POStatus = "RECEIVED"
	POStatusCancelled POStatus = "CANCELLED"
)

// poTransitions is the closed transition table for purchase orders.
// PARTIAL orders cannot be cancelled because stock has already arrived
// against them.
var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:     {POStatusApproved, POStatusCancelled},
	POStatusApproved:  {POStatusSent, POStatusPartial, POStatusReceived, POStatusCancelled},
	POStatusSent:      {POStatusPartial, POStatusReceived, POStatusCancelled},
	POStatusPartial:   {POStatusReceived},
	POStatusReceived:  {},
	POStatusCancelled: {},
}

// ReceiptStatus represents the derived status of one goods receipt
type ReceiptStatus string

const (
	ReceiptStatusReceived ReceiptStatus = "RECEIVED"
	ReceiptStatusPartial  ReceiptStatus = "PARTIAL"
	ReceiptStatusRejected ReceiptStatus = "REJECTED"
)

// PurchaseOrder represents an order placed with a vendor
type PurchaseOrder struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	TenantID uint     `gorm:"not null;uniqueIndex:idx_purchase_orders_tenant_number" json:"tenant_id"`
	PONumber string   `gorm:"not null;size:50;uniqueIndex:idx_purchase_orders_tenant_number" json:"po_number"`
	VendorID uint     `gorm:"not null;index" json:"vendor_id"`
	StoreID  uint     `gorm:"not null;index" json:"store_id"`
	Status   POStatus `gorm:"not null;size:20;default:'DRAFT'" json:"status"`

	ExpectedDate *time.Time      `json:"expected_date"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`

	// Optimistic concurrency: incremented on every status transition
	Version int `gorm:"not null;default:1" json:"version"`

	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedBy uint           `gorm:"not null" json:"created_by"`
	UpdatedBy uint           `json:"updated_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// PurchaseOrderItem represents one ordered line
type PurchaseOrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint            `gorm:"not null;index" json:"purchase_order_id"`
	ProductID       uint            `gorm:"not null;index" json:"product_id"`
	OrderedQty      int             `gorm:"not null" json:"ordered_qty"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// GoodsReceipt represents one receipt event against a purchase order.
// Receipts are immutable once created; corrections go through the
// stock ledger as adjustments.
type GoodsReceipt struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	TenantID            uint          `gorm:"not null;uniqueIndex:idx_goods_receipts_tenant_number" json:"tenant_id"`
	GRNNumber           string        `gorm:"not null;size:50;uniqueIndex:idx_goods_receipts_tenant_number" json:"grn_number"`
	PurchaseOrderID     uint          `gorm:"not null;index" json:"purchase_order_id"`
	StoreID             uint          `gorm:"not null;index" json:"store_id"`
	VendorInvoiceNumber string        `gorm:"size:100" json:"vendor_invoice_number"`
	ReceivedDate        time.Time     `gorm:"not null" json:"received_date"`
	Status              ReceiptStatus `gorm:"not null;size:20" json:"status"`
	Version             int           `gorm:"not null;default:1" json:"version"`
	Notes               string        `gorm:"type:text" json:"notes"`
	CreatedBy           uint          `gorm:"not null" json:"created_by"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	// Relationships
	Items []GoodsReceiptItem `gorm:"foreignKey:GoodsReceiptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// GoodsReceiptItem represents one received batch line
type GoodsReceiptItem struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	GoodsReceiptID    uint            `gorm:"not null;index" json:"goods_receipt_id"`
	ProductID         uint            `gorm:"not null;index" json:"product_id"`
	BatchNumber       string          `gorm:"not null;size:50" json:"batch_number"`
	ManufacturingDate *time.Time      `json:"manufacturing_date"`
	ExpiryDate        *time.Time      `json:"expiry_date"`
	QuantityReceived  int             `gorm:"not null" json:"quantity_received"`
	QuantityRejected  int             `gorm:"not null;default:0" json:"quantity_rejected"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName overrides
func (PurchaseOrder) TableName() string     { return "purchase_orders" }
func (PurchaseOrderItem) TableName() string { return "purchase_order_items" }
func (GoodsReceipt) TableName() string      { return "goods_receipts" }
func (GoodsReceiptItem) TableName() string  { return "goods_receipt_items" }

// Business methods

// CanTransitionTo checks the purchase order transition table
func (s POStatus) CanTransitionTo(next POStatus) bool {
	for _, allowed := range poTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanReceiveAgainst checks if goods can be received against this order
func (po *PurchaseOrder) CanReceiveAgainst() bool {
	return po.Status == POStatusApproved || po.Status == POStatusSent || po.Status == POStatusPartial
}

// AcceptedQuantity is the portion of a receipt line that enters stock
func (i *GoodsReceiptItem) AcceptedQuantity() int {
	return i.QuantityReceived - i.QuantityRejected
}
