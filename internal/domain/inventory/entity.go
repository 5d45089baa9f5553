// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// TransactionType is the closed set of ledger movement kinds
type TransactionType string

const (
	TransactionTypeGRNIn      TransactionType = "GRN_IN"
	TransactionTypeSaleOut    TransactionType = "SALE_OUT"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	TransactionTypeReturnIn   TransactionType = "RETURN_IN"
)

// FarFutureExpiry is the sentinel ordering date for batches without an
// expiry. Undated stock sorts last so dated batches are cleared first.
var FarFutureExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// StockLedgerEntry is an immutable stock movement fact. Rows are only
// ever inserted; corrections are additional entries. Quantity-on-hand
// for a (store, product, batch) is the sum of QuantityChange.
type StockLedgerEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TenantID        uint            `gorm:"not null;index:idx_ledger_batch_scope" json:"tenant_id"`
	StoreID         uint            `gorm:"not null;index:idx_ledger_batch_scope" json:"store_id"`
	ProductID       uint            `gorm:"not null;index:idx_ledger_batch_scope" json:"product_id"`
	BatchNumber     string          `gorm:"not null;size:100;index:idx_ledger_batch_scope" json:"batch_number"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	TransactionType TransactionType `gorm:"not null;size:20" json:"transaction_type"`
	QuantityChange  int             `gorm:"not null" json:"quantity_change"`
	ReferenceNumber string          `gorm:"not null;size:100;index" json:"reference_number"`
	Notes           string          `gorm:"size:500" json:"notes"`
	CreatedBy       uint            `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName overrides the table name for StockLedgerEntry
func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// IsCredit reports whether the entry adds stock
func (e *StockLedgerEntry) IsCredit() bool {
	return e.QuantityChange > 0
}

// IsDebit reports whether the entry removes stock
func (e *StockLedgerEntry) IsDebit() bool {
	return e.QuantityChange < 0
}

// BatchStock is the derived per-batch balance view. It is computed from
// ledger entries, never persisted.
type BatchStock struct {
	BatchNumber    string     `json:"batch_number"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	QuantityOnHand int        `json:"quantity_on_hand"`
	// FirstEntryID preserves receipt order for FIFO tie-breaks
	FirstEntryID uint `json:"-"`
}

// sortExpiry maps a missing expiry to the far-future sentinel
func (b BatchStock) sortExpiry() time.Time {
	if b.ExpiryDate == nil {
		return FarFutureExpiry
	}
	return *b.ExpiryDate
}

// ProductStock summarizes one product's holdings at a store
type ProductStock struct {
	ProductID      uint         `json:"product_id"`
	ProductName    string       `json:"product_name"`
	SKU            string       `json:"sku"`
	QuantityOnHand int          `json:"quantity_on_hand"`
	Batches        []BatchStock `json:"batches,omitempty"`
}

// LowStockRow is one reorder-watch breach on the low-stock report
type LowStockRow struct {
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	ReorderLevel   int    `json:"reorder_level"`
}

// AllocationRequest asks the allocator for stock of one product
type AllocationRequest struct {
	TenantID        uint
	StoreID         uint
	ProductID       uint
	RequiredQty     int
	ReferenceNumber string
	UserID          uint
}

// Allocation is one batch split produced by the allocator. LedgerEntryID
// points at the SALE_OUT entry written for this split.
type Allocation struct {
	BatchNumber   string     `json:"batch_number"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	AllocatedQty  int        `json:"allocated_qty"`
	LedgerEntryID uint       `json:"ledger_entry_id"`
}
