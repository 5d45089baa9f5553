// internal/domain/user/service.go
package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Error codes surfaced by auth operations
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeTenantNotFound     = "TENANT_NOT_FOUND"
)

// Service handles staff authentication business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
	}
}

// LoginRequest represents staff login data
type LoginRequest struct {
	TenantCode string `json:"tenant_code" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// issueTokens builds the auth response for a verified staff member.
// An empty presetRefresh mints a fresh refresh token.
func (s *Service) issueTokens(u *User, presetRefresh string) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(u.ID, u.TenantID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := presetRefresh
	if refreshToken == "" {
		refreshToken, err = s.jwtManager.GenerateRefreshToken(u.ID, u.TenantID, u.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to generate refresh token: %w", err)
		}
	}

	u.Password = ""
	return &AuthResponse{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}

// Login authenticates a staff member against their hospital
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	// Resolve tenant first; emails are only unique within one
	var tenant Tenant
	result := s.db.Where("code = ? AND is_active = ?", req.TenantCode, true).First(&tenant)
	if result.Error != nil {
		return nil, apperror.DomainRule(ErrCodeInvalidCredentials, "invalid credentials")
	}

	var u User
	result = s.db.Where("tenant_id = ? AND email = ? AND is_active = ?", tenant.ID, req.Email, true).First(&u)
	if result.Error != nil {
		return nil, apperror.DomainRule(ErrCodeInvalidCredentials, "invalid credentials")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, u.Password); err != nil {
		return nil, apperror.DomainRule(ErrCodeInvalidCredentials, "invalid credentials")
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	s.db.Model(&User{}).Where("id = ?", u.ID).Update("last_login_at", now)

	return s.issueTokens(&u, "")
}

// RefreshToken generates new tokens using refresh token. The role is
// read back from the database so a role change takes effect on the
// next refresh.
func (s *Service) RefreshToken(refreshToken string) (*AuthResponse, error) {
	// Validate refresh token
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.DomainRule(ErrCodeInvalidCredentials, "invalid refresh token")
	}

	var u User
	result := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", claims.UserID, claims.TenantID, true).First(&u)
	if result.Error != nil {
		return nil, apperror.NotFound(ErrCodeUserNotFound, "user not found or inactive")
	}

	preset := refreshToken
	if s.config.JWT.RefreshTokenRotation {
		preset = ""
	}
	return s.issueTokens(&u, preset)
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(tenantID, userID uint) (*User, error) {
	var u User
	err := s.db.
		Preload("Tenant").
		Where("id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	// Clear password
	u.Password = ""
	return &u, nil
}

// UpdateProfile updates the caller's own profile
func (s *Service) UpdateProfile(tenantID, userID uint, updates map[string]interface{}) (*User, error) {
	u, err := s.GetProfile(tenantID, userID)
	if err != nil {
		return nil, err
	}

	// Remove fields only staff admin may change
	delete(updates, "password")
	delete(updates, "role")
	delete(updates, "is_active")
	delete(updates, "email")
	delete(updates, "tenant_id")

	if len(updates) == 0 {
		return u, nil
	}
	if err := s.db.Model(&User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetProfile(tenantID, userID)
}

// ChangePassword changes user password after verifying current password
func (s *Service) ChangePassword(tenantID, userID uint, currentPassword, newPassword string) error {
	// Find user
	var u User
	result := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).First(&u)
	if result.Error != nil {
		return apperror.NotFound(ErrCodeUserNotFound, "user not found")
	}

	// Verify current password
	if err := s.passwordManager.VerifyPassword(currentPassword, u.Password); err != nil {
		return apperror.DomainRule(ErrCodeInvalidCredentials, "current password is incorrect")
	}

	// Hash new password
	hashedPassword, err := s.passwordManager.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	// Update password
	if err := s.db.Model(&User{}).Where("id = ?", u.ID).Update("password", hashedPassword).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a staff member within a tenant by email
func (s *Service) GetUserByEmail(tenantID uint, email string) (*User, error) {
	var u User
	result := s.db.Where("tenant_id = ? AND email = ?", tenantID, email).First(&u)
	if result.Error != nil {
		return nil, apperror.NotFound(ErrCodeUserNotFound, "user not found")
	}

	// Clear password
	u.Password = ""
	return &u, nil
}
