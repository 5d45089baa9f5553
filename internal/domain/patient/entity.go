// internal/domain/patient/entity.go
package patient

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PatientStatus is the closed set of patient states
type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "ACTIVE"
	PatientStatusInactive PatientStatus = "INACTIVE"
)

// VisitType distinguishes outpatient and inpatient encounters
type VisitType string

const (
	VisitTypeOP VisitType = "OP"
	VisitTypeIP VisitType = "IP"
)

// Patient represents a registered patient
type Patient struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	TenantID    uint          `gorm:"not null;index;uniqueIndex:idx_patients_tenant_mrn" json:"tenant_id"`
	MRN         string        `gorm:"not null;size:50;uniqueIndex:idx_patients_tenant_mrn" json:"mrn"`
	FirstName   string        `gorm:"not null;size:100" json:"first_name"`
	LastName    string        `gorm:"size:100" json:"last_name"`
	Gender      string        `gorm:"size:10" json:"gender"`
	DateOfBirth *time.Time    `json:"date_of_birth"`
	Phone       string        `gorm:"size:20" json:"phone"`
	Email       string        `gorm:"size:255" json:"email"`
	Address     string        `gorm:"size:500" json:"address"`
	City        string        `gorm:"size:100" json:"city"`
	Status      PatientStatus `gorm:"not null;size:20;default:'ACTIVE'" json:"status"`
	// Credit patients settle dispensed medicines against a running ledger
	CreditAllowed bool            `gorm:"default:false" json:"credit_allowed"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"credit_limit"`
	CreatedBy     uint            `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Visit represents an OP or IP encounter a sale can be billed against
type Visit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TenantID     uint       `gorm:"not null;index" json:"tenant_id"`
	PatientID    uint       `gorm:"not null;index" json:"patient_id"`
	VisitNumber  string     `gorm:"not null;size:50;index" json:"visit_number"`
	Type         VisitType  `gorm:"not null;size:5" json:"type"`
	DoctorID     *uint      `gorm:"index" json:"doctor_id"`
	Department   string     `gorm:"size:100" json:"department"`
	AdmittedAt   time.Time  `json:"admitted_at"`
	DischargedAt *time.Time `json:"discharged_at"`
	CreatedBy    uint       `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relationships
	Patient Patient `gorm:"foreignKey:PatientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"patient,omitempty"`
}

// TableName overrides
func (Patient) TableName() string { return "patients" }
func (Visit) TableName() string   { return "visits" }

// IsActive reports whether the patient can be billed
func (p *Patient) IsActive() bool {
	return p.Status == PatientStatusActive
}

// GetFullName returns the patient's full name
func (p *Patient) GetFullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsOpen reports whether the visit is still running
func (v *Visit) IsOpen() bool {
	return v.DischargedAt == nil
}
