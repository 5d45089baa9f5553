// internal/domain/patient/service.go
package patient

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by patient operations
const (
	ErrCodePatientNotFound = "PATIENT_NOT_FOUND"
	ErrCodePatientInactive = "PATIENT_INACTIVE"
	ErrCodeMRNTaken        = "MRN_ALREADY_REGISTERED"
	ErrCodeVisitNotFound   = "VISIT_NOT_FOUND"
	ErrCodeVisitClosed     = "VISIT_ALREADY_CLOSED"
	ErrCodeDoctorNotFound  = "DOCTOR_NOT_FOUND"
)

// Service handles patient registration and visit business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	sequences *sequence.Service
	audit     *audit.Writer
}

// NewService creates a new patient service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		sequences: sequence.NewService(db),
		audit:     audit.NewWriter(db),
	}
}

// RegisterPatientRequest represents patient registration
type RegisterPatientRequest struct {
	MRN           string           `json:"mrn"`
	FirstName     string           `json:"first_name" binding:"required"`
	LastName      string           `json:"last_name"`
	Gender        string           `json:"gender"`
	DateOfBirth   *time.Time       `json:"date_of_birth"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email" binding:"omitempty,email"`
	Address       string           `json:"address"`
	City          string           `json:"city"`
	CreditAllowed bool             `json:"credit_allowed"`
	CreditLimit   *decimal.Decimal `json:"credit_limit"`
}

// UpdatePatientRequest represents patient profile changes
type UpdatePatientRequest struct {
	FirstName     *string          `json:"first_name"`
	LastName      *string          `json:"last_name"`
	Phone         *string          `json:"phone"`
	Email         *string          `json:"email" binding:"omitempty,email"`
	Address       *string          `json:"address"`
	City          *string          `json:"city"`
	Status        *PatientStatus   `json:"status"`
	CreditAllowed *bool            `json:"credit_allowed"`
	CreditLimit   *decimal.Decimal `json:"credit_limit"`
}

// OpenVisitRequest represents a new OP/IP encounter
type OpenVisitRequest struct {
	Type       VisitType `json:"type" binding:"required"`
	DoctorID   *uint     `json:"doctor_id"`
	Department string    `json:"department"`
}

// Register creates a patient record. The MRN is taken from the request
// when the hospital assigns its own, otherwise drawn from the counter.
func (s *Service) Register(tenantID, userID uint, req *RegisterPatientRequest) (*Patient, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	mrn := req.MRN
	if mrn == "" {
		var err error
		mrn, err = s.sequences.Next(tx, tenantID, sequence.PrefixPatient, time.Now().UTC())
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		var count int64
		err := tx.Model(&Patient{}).
			Where("tenant_id = ? AND mrn = ?", tenantID, mrn).
			Count(&count).Error
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to check MRN: %w", err)
		}
		if count > 0 {
			tx.Rollback()
			return nil, apperror.Conflict(ErrCodeMRNTaken,
				fmt.Sprintf("MRN %s is already registered", mrn))
		}
	}

	creditLimit := s.config.Pharmacy.DefaultCreditLimit
	if req.CreditLimit != nil {
		creditLimit = *req.CreditLimit
	}
	if !req.CreditAllowed {
		creditLimit = decimal.Zero
	}

	p := Patient{
		TenantID:      tenantID,
		MRN:           mrn,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Gender:        req.Gender,
		DateOfBirth:   req.DateOfBirth,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		City:          req.City,
		Status:        PatientStatusActive,
		CreditAllowed: req.CreditAllowed,
		CreditLimit:   creditLimit,
		CreatedBy:     userID,
	}
	if err := tx.Create(&p).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	err := s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "patient", p.ID, map[string]interface{}{
		"mrn":            p.MRN,
		"credit_allowed": p.CreditAllowed,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a patient
func (s *Service) GetByID(tenantID, patientID uint) (*Patient, error) {
	var p Patient
	err := s.db.Where("id = ? AND tenant_id = ?", patientID, tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePatientNotFound, "patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve patient: %w", err)
	}
	return &p, nil
}

// GetByMRN retrieves a patient by medical record number
func (s *Service) GetByMRN(tenantID uint, mrn string) (*Patient, error) {
	var p Patient
	err := s.db.Where("tenant_id = ? AND mrn = ?", tenantID, mrn).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePatientNotFound, "patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve patient: %w", err)
	}
	return &p, nil
}

// Update applies partial profile changes
func (s *Service) Update(tenantID, userID, patientID uint, req *UpdatePatientRequest) (*Patient, error) {
	p, err := s.GetByID(tenantID, patientID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.CreditAllowed != nil {
		updates["credit_allowed"] = *req.CreditAllowed
	}
	if req.CreditLimit != nil {
		updates["credit_limit"] = *req.CreditLimit
	}
	if len(updates) == 0 {
		return p, nil
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&Patient{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	err = s.audit.Record(tx, tenantID, userID, audit.ActionUpdate, "patient", p.ID, updates)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetByID(tenantID, patientID)
}

// OpenVisit starts a new OP or IP encounter for a patient
func (s *Service) OpenVisit(tenantID, userID, patientID uint, req *OpenVisitRequest) (*Visit, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var p Patient
	err := tx.Where("id = ? AND tenant_id = ?", patientID, tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodePatientNotFound, "patient not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if !p.IsActive() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodePatientInactive, "patient is inactive")
	}

	if req.DoctorID != nil {
		var doctor user.User
		err := tx.Where("id = ? AND tenant_id = ? AND is_active = ?", *req.DoctorID, tenantID, true).
			First(&doctor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tx.Rollback()
			return nil, apperror.NotFound(ErrCodeDoctorNotFound, "doctor not found")
		}
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to load doctor: %w", err)
		}
		if !doctor.IsDoctor() {
			tx.Rollback()
			return nil, apperror.DomainRulef(ErrCodeDoctorNotFound,
				"user %d is not a doctor", *req.DoctorID)
		}
	}

	now := time.Now().UTC()
	visitNumber, err := s.sequences.Next(tx, tenantID, sequence.PrefixVisit, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	visit := Visit{
		TenantID:    tenantID,
		PatientID:   patientID,
		VisitNumber: visitNumber,
		Type:        req.Type,
		DoctorID:    req.DoctorID,
		Department:  req.Department,
		AdmittedAt:  now,
		CreatedBy:   userID,
	}
	if err := tx.Create(&visit).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "visit", visit.ID, map[string]interface{}{
		"visit_number": visit.VisitNumber,
		"type":         visit.Type,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &visit, nil
}

// CloseVisit stamps the discharge time on an open visit
func (s *Service) CloseVisit(tenantID, userID, visitID uint) (*Visit, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var visit Visit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", visitID, tenantID).
		First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodeVisitNotFound, "visit not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}
	if !visit.IsOpen() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodeVisitClosed, "visit is already closed")
	}

	now := time.Now().UTC()
	err = tx.Model(&Visit{}).
		Where("id = ?", visit.ID).
		Update("discharged_at", now).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to close visit: %w", err)
	}
	visit.DischargedAt = &now

	err = s.audit.Record(tx, tenantID, userID, audit.ActionUpdate, "visit", visit.ID, map[string]interface{}{
		"discharged_at": now,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &visit, nil
}

// ListVisits returns a patient's visits, newest first
func (s *Service) ListVisits(tenantID, patientID uint) ([]Visit, error) {
	var visits []Visit
	err := s.db.
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID).
		Order("id DESC").
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
