// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of staff roles
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RolePharmacist      Role = "PHARMACIST"
	RolePharmacyManager Role = "PHARMACY_MANAGER"
	RoleDoctor          Role = "DOCTOR"
	RoleCashier         Role = "CASHIER"
	RoleStoreKeeper     Role = "STORE_KEEPER"
)

// Tenant represents a hospital on the platform
type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Address   string         `gorm:"size:500" json:"address"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Email     string         `gorm:"size:255" json:"email"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// User represents a staff member scoped to a tenant
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TenantID  uint   `gorm:"not null;index;uniqueIndex:idx_users_tenant_email" json:"tenant_id"`
	Email     string `gorm:"not null;size:255;uniqueIndex:idx_users_tenant_email" json:"email"`
	Password  string `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Phone     string `gorm:"size:20" json:"phone"`
	Role      Role   `gorm:"not null;size:50;default:'PHARMACIST'" json:"role"`
	// Medical council registration for doctors, pharmacy council for pharmacists
	RegistrationNumber string         `gorm:"size:100" json:"registration_number,omitempty"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"tenant,omitempty"`
}

// TableName overrides the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// GetDisplayName returns display name (full name or email)
func (u *User) GetDisplayName() string {
	fullName := u.GetFullName()
	if fullName != "" {
		return fullName
	}
	return u.Email
}

// IsDoctor reports whether the user can be attached to prescriptions
func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// rolePermissions maps each role to the permission set the route guard checks.
// Cached in Redis per user by the permission middleware.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		"pharmacy.sale.create", "pharmacy.sale.approve", "pharmacy.sale.cancel", "pharmacy.sale.read",
		"pharmacy.return.create", "pharmacy.return.approve", "pharmacy.return.cancel", "pharmacy.return.read",
		"procurement.po.create", "procurement.po.approve", "procurement.po.read",
		"procurement.grn.create", "procurement.grn.read",
		"inventory.stock.read", "billing.payment.create", "billing.read",
		"catalog.manage", "patient.manage", "prescription.create", "staff.manage", "upload.create",
		"reports.read",
	},
	RolePharmacist: {
		"pharmacy.sale.create", "pharmacy.sale.read",
		"pharmacy.return.create", "pharmacy.return.read",
		"inventory.stock.read", "billing.read", "patient.manage", "upload.create",
	},
	RolePharmacyManager: {
		"pharmacy.sale.create", "pharmacy.sale.approve", "pharmacy.sale.cancel", "pharmacy.sale.read",
		"pharmacy.return.create", "pharmacy.return.approve", "pharmacy.return.cancel", "pharmacy.return.read",
		"procurement.po.create", "procurement.po.approve", "procurement.po.read",
		"procurement.grn.create", "procurement.grn.read",
		"inventory.stock.read", "billing.payment.create", "billing.read",
		"catalog.manage", "patient.manage", "upload.create",
		"reports.read",
	},
	RoleDoctor: {
		"prescription.create", "patient.manage", "pharmacy.sale.read",
	},
	RoleCashier: {
		"billing.payment.create", "billing.read", "pharmacy.sale.read",
	},
	RoleStoreKeeper: {
		"procurement.grn.create", "procurement.grn.read", "procurement.po.read",
		"inventory.stock.read", "upload.create",
	},
}

// PermissionsForRole returns the permission set for a role
func PermissionsForRole(role Role) []string {
	return rolePermissions[role]
}
