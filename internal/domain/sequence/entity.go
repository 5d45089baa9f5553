// internal/domain/sequence/entity.go
package sequence

import (
	"time"
)

// Document number prefixes
const (
	PrefixSale         = "SAL"
	PrefixInvoice      = "INV"
	PrefixGoodsReceipt = "GRN"
	PrefixSaleReturn   = "RET"
	PrefixPurchase     = "PO"
	PrefixPatient      = "MRN"
	PrefixVisit        = "VIS"
)

// DocumentSequence is one counter row per (tenant, prefix, year). The
// row is locked for update while a number is drawn so numbering stays
// gapless under concurrency.
type DocumentSequence struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"not null;uniqueIndex:idx_document_sequences_scope"`
	Prefix    string    `json:"prefix" gorm:"not null;size:10;uniqueIndex:idx_document_sequences_scope"`
	Year      int       `json:"year" gorm:"not null;uniqueIndex:idx_document_sequences_scope"`
	LastValue int       `json:"last_value" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for DocumentSequence model
func (DocumentSequence) TableName() string {
	return "document_sequences"
}
