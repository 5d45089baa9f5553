// internal/domain/prescription/entity.go
package prescription

import (
	"time"

	"gorm.io/gorm"
)

// Status is the closed set of prescription states
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Prescription represents a doctor's medication order for a patient
type Prescription struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"not null;index" json:"tenant_id"`
	PatientID uint           `gorm:"not null;index" json:"patient_id"`
	DoctorID  uint           `gorm:"not null;index" json:"doctor_id"`
	VisitID   *uint          `gorm:"index" json:"visit_id"`
	Status    Status         `gorm:"not null;size:20;default:'ACTIVE'" json:"status"`
	Notes     string         `gorm:"size:1000" json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []PrescriptionItem `gorm:"foreignKey:PrescriptionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// PrescriptionItem is one medication line on a prescription.
// Sale items reference these rows by ID when dispensing, so the
// dispense linkage survives product renames.
type PrescriptionItem struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PrescriptionID uint       `gorm:"not null;index" json:"prescription_id"`
	ProductID      uint       `gorm:"not null;index" json:"product_id"`
	Dosage         string     `gorm:"size:100" json:"dosage"`
	Frequency      string     `gorm:"size:100" json:"frequency"`
	DurationDays   int        `json:"duration_days"`
	Quantity       int        `gorm:"not null" json:"quantity"`
	IsDispensed    bool       `gorm:"default:false" json:"is_dispensed"`
	DispensedAt    *time.Time `json:"dispensed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides
func (Prescription) TableName() string     { return "prescriptions" }
func (PrescriptionItem) TableName() string { return "prescription_items" }

// IsActive reports whether the prescription can back a narcotic sale
func (p *Prescription) IsActive() bool {
	return p.Status == StatusActive
}

// AllDispensed reports whether every item has been dispensed
func (p *Prescription) AllDispensed() bool {
	if len(p.Items) == 0 {
		return false
	}
	for _, item := range p.Items {
		if !item.IsDispensed {
			return false
		}
	}
	return true
}
