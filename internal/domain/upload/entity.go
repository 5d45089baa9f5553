// internal/domain/upload/entity.go
package upload

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Entity types an attachment can be pinned to
const (
	EntityPatient      = "PATIENT"
	EntityPrescription = "PRESCRIPTION"
	EntityGoodsReceipt = "GOODS_RECEIPT"
	EntitySaleReturn   = "SALE_RETURN"
)

// Attachment represents an uploaded document pinned to a clinical or
// commercial record (prescription scans, vendor invoices, id proofs)
type Attachment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TenantID     uint   `gorm:"not null;index:idx_attachments_entity" json:"tenant_id"`
	EntityType   string `gorm:"not null;size:50;index:idx_attachments_entity" json:"entity_type"`
	EntityID     uint   `gorm:"not null;index:idx_attachments_entity" json:"entity_id"`
	OriginalName string `gorm:"not null;size:255" json:"original_name"`
	FileName     string `gorm:"not null;size:255;uniqueIndex" json:"file_name"`
	Path         string `gorm:"not null;size:500" json:"-"`
	ContentType  string `gorm:"not null;size:100" json:"content_type"`
	Size         int64  `gorm:"not null" json:"size"`
	Description  string `gorm:"size:500" json:"description"`

	UploadedBy uint           `gorm:"not null;index" json:"uploaded_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Attachment) TableName() string { return "attachments" }

// Business methods

// IsImage checks if the attachment is an image
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// IsPDF checks if the attachment is a PDF document
func (a *Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}

// GetFormattedSize returns human-readable file size
func (a *Attachment) GetFormattedSize() string {
	const unit = 1024
	if a.Size < unit {
		return fmt.Sprintf("%d B", a.Size)
	}

	div, exp := int64(unit), 0
	for n := a.Size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(a.Size)/float64(div), "KMGTPE"[exp])
}
