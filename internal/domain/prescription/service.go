// internal/domain/prescription/service.go
package prescription

import (
	"errors"
	"fmt"

	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/catalog"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by prescription operations
const (
	ErrCodePrescriptionNotFound = "PRESCRIPTION_NOT_FOUND"
	ErrCodePatientNotFound      = "PATIENT_NOT_FOUND"
	ErrCodePatientInactive      = "PATIENT_INACTIVE"
	ErrCodeDoctorNotFound       = "DOCTOR_NOT_FOUND"
	ErrCodeVisitNotFound        = "VISIT_NOT_FOUND"
	ErrCodeVisitMismatch        = "VISIT_PATIENT_MISMATCH"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidStatus        = "PRESCRIPTION_INVALID_STATUS"
	ErrCodeItemsDispensed       = "PRESCRIPTION_ITEMS_DISPENSED"
)

// Service handles prescription business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	audit  *audit.Writer
}

// NewService creates a new prescription service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		audit:  audit.NewWriter(db),
	}
}

// CreatePrescriptionItemRequest is one medication line
type CreatePrescriptionItemRequest struct {
	ProductID    uint   `json:"product_id" binding:"required"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

// CreatePrescriptionRequest represents a new prescription
type CreatePrescriptionRequest struct {
	PatientID uint                            `json:"patient_id" binding:"required"`
	DoctorID  uint                            `json:"doctor_id" binding:"required"`
	VisitID   *uint                           `json:"visit_id"`
	Notes     string                          `json:"notes"`
	Items     []CreatePrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create records a new prescription with its medication lines
func (s *Service) Create(tenantID, userID uint, req *CreatePrescriptionRequest) (*Prescription, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.validatePatient(tx, tenantID, req.PatientID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.validateDoctor(tx, tenantID, req.DoctorID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if req.VisitID != nil {
		if err := s.validateVisit(tx, tenantID, req.PatientID, *req.VisitID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := s.validateProducts(tx, tenantID, req.Items); err != nil {
		tx.Rollback()
		return nil, err
	}

	presc := Prescription{
		TenantID:  tenantID,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		VisitID:   req.VisitID,
		Status:    StatusActive,
		Notes:     req.Notes,
	}
	if err := tx.Create(&presc).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}

	for _, line := range req.Items {
		item := PrescriptionItem{
			PrescriptionID: presc.ID,
			ProductID:      line.ProductID,
			Dosage:         line.Dosage,
			Frequency:      line.Frequency,
			DurationDays:   line.DurationDays,
			Quantity:       line.Quantity,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create prescription item: %w", err)
		}
	}

	err := s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "prescription", presc.ID, map[string]interface{}{
		"patient_id": req.PatientID,
		"doctor_id":  req.DoctorID,
		"items":      len(req.Items),
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetByID(tenantID, presc.ID)
}

// GetByID retrieves a prescription with its items
func (s *Service) GetByID(tenantID, prescriptionID uint) (*Prescription, error) {
	var presc Prescription
	err := s.db.
		Preload("Items").
		Where("id = ? AND tenant_id = ?", prescriptionID, tenantID).
		First(&presc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePrescriptionNotFound, "prescription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve prescription: %w", err)
	}
	return &presc, nil
}

// ListByPatient returns a patient's prescriptions, newest first
func (s *Service) ListByPatient(tenantID, patientID uint) ([]Prescription, error) {
	var prescriptions []Prescription
	err := s.db.
		Preload("Items").
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID).
		Order("id DESC").
		Find(&prescriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

// Cancel withdraws an active prescription. Once any line has been
// dispensed the prescription is locked in; the sale has to be
// cancelled first.
func (s *Service) Cancel(tenantID, userID, prescriptionID uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var presc Prescription
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", prescriptionID, tenantID).
		First(&presc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return apperror.NotFound(ErrCodePrescriptionNotFound, "prescription not found")
	}
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to load prescription: %w", err)
	}

	if presc.Status != StatusActive {
		tx.Rollback()
		return apperror.InvalidState(ErrCodeInvalidStatus,
			fmt.Sprintf("prescription is %s, expected ACTIVE", presc.Status))
	}

	var dispensed int64
	err = tx.Model(&PrescriptionItem{}).
		Where("prescription_id = ? AND is_dispensed = ?", presc.ID, true).
		Count(&dispensed).Error
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to check dispensed items: %w", err)
	}
	if dispensed > 0 {
		tx.Rollback()
		return apperror.InvalidState(ErrCodeItemsDispensed,
			fmt.Sprintf("%d items already dispensed", dispensed))
	}

	err = tx.Model(&Prescription{}).
		Where("id = ?", presc.ID).
		Update("status", StatusCancelled).Error
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to cancel prescription: %w", err)
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCancel, "prescription", presc.ID, map[string]interface{}{
		"from": presc.Status,
		"to":   StatusCancelled,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Private helper methods

func (s *Service) validatePatient(tx *gorm.DB, tenantID, patientID uint) error {
	var p patient.Patient
	err := tx.Where("id = ? AND tenant_id = ?", patientID, tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodePatientNotFound, "patient not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if !p.IsActive() {
		return apperror.InvalidState(ErrCodePatientInactive, "patient is inactive")
	}
	return nil
}

func (s *Service) validateDoctor(tx *gorm.DB, tenantID, doctorID uint) error {
	var doctor user.User
	err := tx.Where("id = ? AND tenant_id = ? AND is_active = ?", doctorID, tenantID, true).
		First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodeDoctorNotFound, "doctor not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load doctor: %w", err)
	}
	if !doctor.IsDoctor() {
		return apperror.DomainRulef(ErrCodeDoctorNotFound,
			"user %d is not a doctor", doctorID)
	}
	return nil
}

func (s *Service) validateVisit(tx *gorm.DB, tenantID, patientID, visitID uint) error {
	var visit patient.Visit
	err := tx.Where("id = ? AND tenant_id = ?", visitID, tenantID).First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodeVisitNotFound, "visit not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load visit: %w", err)
	}
	if visit.PatientID != patientID {
		return apperror.DomainRulef(ErrCodeVisitMismatch,
			"visit %d belongs to a different patient", visitID)
	}
	return nil
}

func (s *Service) validateProducts(tx *gorm.DB, tenantID uint, items []CreatePrescriptionItemRequest) error {
	for _, line := range items {
		var prod catalog.Product
		err := tx.Where("id = ? AND tenant_id = ? AND is_active = ?", line.ProductID, tenantID, true).
			First(&prod).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(ErrCodeProductNotFound,
				fmt.Sprintf("product %d not found", line.ProductID))
		}
		if err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
	}
	return nil
}
