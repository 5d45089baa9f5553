// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StoreType is the closed set of store kinds
type StoreType string

const (
	StoreTypePharmacy  StoreType = "PHARMACY"
	StoreTypeWard      StoreType = "WARD"
	StoreTypeWarehouse StoreType = "WAREHOUSE"
)

// Product represents a pharmacy product (drug master)
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TenantID      uint            `gorm:"not null;index;uniqueIndex:idx_products_tenant_sku" json:"tenant_id"`
	SKU           string          `gorm:"not null;size:100;uniqueIndex:idx_products_tenant_sku" json:"sku"`
	Name          string          `gorm:"not null;size:255" json:"name"`
	GenericName   string          `gorm:"size:255" json:"generic_name"`
	Manufacturer  string          `gorm:"size:255" json:"manufacturer"`
	CategoryID    *uint           `gorm:"index" json:"category_id"`
	HSNCode       string          `gorm:"size:20" json:"hsn_code"`
	MRP           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"mrp"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"purchase_price"`
	GSTRate       decimal.Decimal `gorm:"type:decimal(5,2)" json:"gst_rate"`
	// Narcotic drugs can only be dispensed against a prescription
	IsNarcotic   bool           `gorm:"default:false" json:"is_narcotic"`
	ReorderLevel int            `gorm:"default:10" json:"reorder_level"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category *DrugCategory `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}

// DrugCategory represents formulary categories (analgesics, antibiotics, ...)
type DrugCategory struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"not null;index;uniqueIndex:idx_drug_categories_tenant_name" json:"tenant_id"`
	Name        string         `gorm:"not null;size:255;uniqueIndex:idx_drug_categories_tenant_name" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Store represents a stock-holding location (pharmacy counter, ward, warehouse)
type Store struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"not null;index;uniqueIndex:idx_stores_tenant_code" json:"tenant_id"`
	Code      string         `gorm:"not null;size:50;uniqueIndex:idx_stores_tenant_code" json:"code"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Type      StoreType      `gorm:"not null;size:20;default:'PHARMACY'" json:"type"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Vendor represents a pharmaceutical supplier
type Vendor struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TenantID      uint           `gorm:"not null;index;uniqueIndex:idx_vendors_tenant_code" json:"tenant_id"`
	Code          string         `gorm:"not null;size:50;uniqueIndex:idx_vendors_tenant_code" json:"code"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	GSTNumber     string         `gorm:"size:50" json:"gst_number"`
	ContactPerson string         `gorm:"size:255" json:"contact_person"`
	Phone         string         `gorm:"size:20" json:"phone"`
	Email         string         `gorm:"size:255" json:"email"`
	Address       string         `gorm:"size:500" json:"address"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// ReorderWatch pins a product to a store with a reorder threshold.
// The low-stock report compares on-hand quantity against these rows.
type ReorderWatch struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"not null;index;uniqueIndex:idx_reorder_watches_scope" json:"tenant_id"`
	StoreID      uint      `gorm:"not null;uniqueIndex:idx_reorder_watches_scope" json:"store_id"`
	ProductID    uint      `gorm:"not null;uniqueIndex:idx_reorder_watches_scope" json:"product_id"`
	ReorderLevel int       `gorm:"not null;default:10" json:"reorder_level"`
	CreatedBy    uint      `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Store   Store   `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"store,omitempty"`
	Product Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string      { return "products" }
func (DrugCategory) TableName() string { return "drug_categories" }
func (Store) TableName() string        { return "stores" }
func (Vendor) TableName() string       { return "vendors" }
func (ReorderWatch) TableName() string { return "reorder_watches" }

// RequiresPrescription reports whether dispensing needs a prescription link
func (p *Product) RequiresPrescription() bool {
	return p.IsNarcotic
}

// IsSellable reports whether the product can appear on a new sale
func (p *Product) IsSellable() bool {
	return p.IsActive
}

// IsOperational reports whether the store accepts stock movements
func (s *Store) IsOperational() bool {
	return s.IsActive
}
