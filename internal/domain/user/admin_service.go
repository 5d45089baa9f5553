// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/pkg/auth"
	"github.com/your-org/hospital-backend/internal/pkg/email"
	"gorm.io/gorm"
)

// Error codes surfaced by staff admin operations
const (
	ErrCodeEmailTaken   = "EMAIL_ALREADY_REGISTERED"
	ErrCodeUnknownRole  = "UNKNOWN_ROLE"
	ErrCodeSelfChange   = "CANNOT_CHANGE_OWN_ACCOUNT"
	ErrCodeLastAdmin    = "LAST_ADMIN_REMAINING"
	ErrCodeStaffMissing = "USER_NOT_FOUND"
)

var validRoles = map[Role]bool{
	RoleAdmin:           true,
	RolePharmacist:      true,
	RolePharmacyManager: true,
	RoleDoctor:          true,
	RoleCashier:         true,
	RoleStoreKeeper:     true,
}

// AdminService handles staff account management
type AdminService struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	emailService    *email.EmailService
}

// NewAdminService creates a new staff admin service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		emailService:    email.NewEmailService(cfg),
	}
}

// CreateStaffRequest represents staff account creation data
type CreateStaffRequest struct {
	Email              string `json:"email" binding:"required,email"`
	FirstName          string `json:"first_name" binding:"required"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	Role               Role   `json:"role" binding:"required"`
	RegistrationNumber string `json:"registration_number"`
}

// StaffStatusRequest represents staff activation changes
type StaffStatusRequest struct {
	IsActive bool   `json:"is_active"`
	Reason   string `json:"reason,omitempty"`
}

// StaffRoleRequest represents staff role changes
type StaffRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

// CreateStaff provisions a staff account with a generated temporary
// password and mails it to the new member
func (s *AdminService) CreateStaff(tenantID, adminID uint, req *CreateStaffRequest) (*User, error) {
	if !validRoles[req.Role] {
		return nil, apperror.DomainRulef(ErrCodeUnknownRole, "unknown role %q", req.Role)
	}

	// Check if email is already registered in this hospital
	var existing User
	result := s.db.Where("tenant_id = ? AND email = ?", tenantID, req.Email).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict(ErrCodeEmailTaken,
			fmt.Sprintf("user with email %s already exists", req.Email))
	}

	tempPassword, err := s.passwordManager.GenerateTemporaryPassword()
	if err != nil {
		return nil, err
	}
	hashedPassword, err := s.passwordManager.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := User{
		TenantID:           tenantID,
		Email:              req.Email,
		Password:           hashedPassword,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Phone:              req.Phone,
		Role:               req.Role,
		RegistrationNumber: req.RegistrationNumber,
		IsActive:           true,
	}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// The account exists either way; a failed mail just means the admin
	// hands over the password manually
	err = s.emailService.SendStaffWelcomeEmail(context.Background(),
		u.Email, u.GetFullName(), string(u.Role), tempPassword)
	if err != nil {
		log.Printf("Warning: failed to send welcome email to %s: %v", u.Email, err)
	}

	u.Password = ""
	return &u, nil
}

// GetStaff retrieves a staff member by ID
func (s *AdminService) GetStaff(tenantID, userID uint) (*User, error) {
	var u User
	err := s.db.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeStaffMissing, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	u.Password = ""
	return &u, nil
}

// UpdateStaffStatus activates or deactivates a staff account
func (s *AdminService) UpdateStaffStatus(tenantID, adminID, userID uint, req *StaffStatusRequest) error {
	u, err := s.GetStaff(tenantID, userID)
	if err != nil {
		return err
	}

	// Prevent admins from deactivating themselves
	if userID == adminID && !req.IsActive {
		return apperror.DomainRule(ErrCodeSelfChange, "cannot deactivate your own account")
	}

	// Keep at least one active admin per hospital
	if u.Role == RoleAdmin && !req.IsActive {
		if err := s.ensureAnotherAdmin(tenantID, userID); err != nil {
			return err
		}
	}

	err = s.db.Model(&User{}).
		Where("id = ?", u.ID).
		Update("is_active", req.IsActive).Error
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

// UpdateStaffRole changes a staff member's role
func (s *AdminService) UpdateStaffRole(tenantID, adminID, userID uint, req *StaffRoleRequest) error {
	if !validRoles[req.Role] {
		return apperror.DomainRulef(ErrCodeUnknownRole, "unknown role %q", req.Role)
	}

	u, err := s.GetStaff(tenantID, userID)
	if err != nil {
		return err
	}

	// Prevent admins from demoting themselves
	if userID == adminID && u.Role == RoleAdmin && req.Role != RoleAdmin {
		return apperror.DomainRule(ErrCodeSelfChange, "cannot remove your own admin role")
	}

	// Keep at least one admin per hospital
	if u.Role == RoleAdmin && req.Role != RoleAdmin {
		if err := s.ensureAnotherAdmin(tenantID, userID); err != nil {
			return err
		}
	}

	err = s.db.Model(&User{}).
		Where("id = ?", u.ID).
		Update("role", req.Role).Error
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// ResetStaffPassword issues a fresh temporary password and mails it
func (s *AdminService) ResetStaffPassword(tenantID, adminID, userID uint) error {
	u, err := s.GetStaff(tenantID, userID)
	if err != nil {
		return err
	}

	tempPassword, err := s.passwordManager.GenerateTemporaryPassword()
	if err != nil {
		return err
	}
	hashedPassword, err := s.passwordManager.HashPassword(tempPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.db.Model(&User{}).
		Where("id = ?", u.ID).
		Update("password", hashedPassword).Error
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	err = s.emailService.SendPasswordResetEmail(context.Background(),
		u.Email, u.GetFullName(), tempPassword)
	if err != nil {
		log.Printf("Warning: failed to send password reset email to %s: %v", u.Email, err)
	}

	log.Printf("Password reset for user ID: %d", u.ID)
	return nil
}

// ApproverEmails returns the addresses of active staff able to approve
// discounted sales. Used for the approval notification mail.
func (s *AdminService) ApproverEmails(tenantID uint) ([]string, error) {
	var emails []string
	err := s.db.Model(&User{}).
		Where("tenant_id = ? AND is_active = ? AND role IN ?", tenantID, true,
			[]Role{RoleAdmin, RolePharmacyManager}).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load approver emails: %w", err)
	}
	return emails, nil
}

// ensureAnotherAdmin fails unless a different active admin exists
func (s *AdminService) ensureAnotherAdmin(tenantID, excludeUserID uint) error {
	var adminCount int64
	s.db.Model(&User{}).
		Where("tenant_id = ? AND role = ? AND is_active = ? AND id != ?",
			tenantID, RoleAdmin, true, excludeUserID).
		Count(&adminCount)
	if adminCount == 0 {
		return apperror.DomainRule(ErrCodeLastAdmin,
			"at least one active admin must remain")
	}
	return nil
}
