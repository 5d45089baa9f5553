// internal/domain/catalog/service.go
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"gorm.io/gorm"
)

// Error codes surfaced by catalog operations
const (
	ErrCodeProductNotFound  = "PRODUCT_NOT_FOUND"
	ErrCodeSKUTaken         = "SKU_ALREADY_EXISTS"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeCategoryTaken    = "CATEGORY_ALREADY_EXISTS"
	ErrCodeStoreNotFound    = "STORE_NOT_FOUND"
	ErrCodeStoreCodeTaken   = "STORE_CODE_TAKEN"
	ErrCodeVendorNotFound   = "VENDOR_NOT_FOUND"
	ErrCodeVendorCodeTaken  = "VENDOR_CODE_TAKEN"
	ErrCodeWatchNotFound    = "REORDER_WATCH_NOT_FOUND"
)

// Service handles drug, store and vendor master data
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU           string          `json:"sku" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	GenericName   string          `json:"generic_name"`
	Manufacturer  string          `json:"manufacturer"`
	CategoryID    *uint           `json:"category_id"`
	HSNCode       string          `json:"hsn_code"`
	MRP           decimal.Decimal `json:"mrp" binding:"required,dpositive"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	IsNarcotic    bool            `json:"is_narcotic"`
	ReorderLevel  int             `json:"reorder_level"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name          *string          `json:"name"`
	GenericName   *string          `json:"generic_name"`
	Manufacturer  *string          `json:"manufacturer"`
	CategoryID    *uint            `json:"category_id"`
	HSNCode       *string          `json:"hsn_code"`
	MRP           *decimal.Decimal `json:"mrp"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	GSTRate       *decimal.Decimal `json:"gst_rate"`
	IsNarcotic    *bool            `json:"is_narcotic"`
	ReorderLevel  *int             `json:"reorder_level"`
	IsActive      *bool            `json:"is_active"`
}

// StoreCreateRequest represents store creation data
type StoreCreateRequest struct {
	Code string    `json:"code" binding:"required"`
	Name string    `json:"name" binding:"required"`
	Type StoreType `json:"type"`
}

// VendorCreateRequest represents vendor creation data
type VendorCreateRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	GSTNumber     string `json:"gst_number"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

// CategoryCreateRequest represents drug category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ReorderWatchRequest pins a product to a store with a threshold
type ReorderWatchRequest struct {
	StoreID      uint `json:"store_id" binding:"required"`
	ProductID    uint `json:"product_id" binding:"required"`
	ReorderLevel int  `json:"reorder_level" binding:"required,min=1"`
}

// CreateProduct creates a new product in the drug master
func (s *Service) CreateProduct(tenantID uint, req *ProductCreateRequest) (*Product, error) {
	var existing Product
	result := s.db.Where("tenant_id = ? AND sku = ?", tenantID, req.SKU).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict(ErrCodeSKUTaken,
			fmt.Sprintf("product with SKU %s already exists", req.SKU))
	}

	if req.CategoryID != nil {
		if _, err := s.GetCategory(tenantID, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	reorderLevel := req.ReorderLevel
	if reorderLevel <= 0 {
		reorderLevel = 10
	}

	prod := Product{
		TenantID:      tenantID,
		SKU:           req.SKU,
		Name:          req.Name,
		GenericName:   req.GenericName,
		Manufacturer:  req.Manufacturer,
		CategoryID:    req.CategoryID,
		HSNCode:       req.HSNCode,
		MRP:           req.MRP,
		PurchasePrice: req.PurchasePrice,
		GSTRate:       req.GSTRate,
		IsNarcotic:    req.IsNarcotic,
		ReorderLevel:  reorderLevel,
		IsActive:      true,
	}
	if err := s.db.Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.db.Preload("Category").First(&prod, prod.ID)
	return &prod, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(tenantID, productID uint) (*Product, error) {
	var prod Product
	err := s.db.
		Preload("Category").
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeProductNotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &prod, nil
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(tenantID, productID uint, req *ProductUpdateRequest) (*Product, error) {
	prod, err := s.GetProduct(tenantID, productID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.GenericName != nil {
		updates["generic_name"] = *req.GenericName
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.CategoryID != nil {
		if _, err := s.GetCategory(tenantID, *req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.HSNCode != nil {
		updates["hsn_code"] = *req.HSNCode
	}
	if req.MRP != nil {
		updates["mrp"] = *req.MRP
	}
	if req.PurchasePrice != nil {
		updates["purchase_price"] = *req.PurchasePrice
	}
	if req.GSTRate != nil {
		updates["gst_rate"] = *req.GSTRate
	}
	if req.IsNarcotic != nil {
		updates["is_narcotic"] = *req.IsNarcotic
	}
	if req.ReorderLevel != nil {
		updates["reorder_level"] = *req.ReorderLevel
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(prod).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	return s.GetProduct(tenantID, productID)
}

// DeleteProduct soft deletes a product
func (s *Service) DeleteProduct(tenantID, productID uint) error {
	result := s.db.Where("id = ? AND tenant_id = ?", productID, tenantID).Delete(&Product{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound(ErrCodeProductNotFound, "product not found")
	}
	return nil
}

// CreateCategory creates a new drug category
func (s *Service) CreateCategory(tenantID uint, req *CategoryCreateRequest) (*DrugCategory, error) {
	var existing DrugCategory
	result := s.db.Where("tenant_id = ? AND name = ?", tenantID, req.Name).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict(ErrCodeCategoryTaken,
			fmt.Sprintf("category %s already exists", req.Name))
	}

	category := DrugCategory{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

// GetCategory retrieves a drug category by ID
func (s *Service) GetCategory(tenantID, categoryID uint) (*DrugCategory, error) {
	var category DrugCategory
	err := s.db.Where("id = ? AND tenant_id = ?", categoryID, tenantID).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeCategoryNotFound, "category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve category: %w", err)
	}
	return &category, nil
}

// CreateStore creates a new stock-holding location
func (s *Service) CreateStore(tenantID uint, req *StoreCreateRequest) (*Store, error) {
	var existing Store
	result := s.db.Where("tenant_id = ? AND code = ?", tenantID, req.Code).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict(ErrCodeStoreCodeTaken,
			fmt.Sprintf("store with code %s already exists", req.Code))
	}

	storeType := req.Type
	if storeType == "" {
		storeType = StoreTypePharmacy
	}

	store := Store{
		TenantID: tenantID,
		Code:     req.Code,
		Name:     req.Name,
		Type:     storeType,
		IsActive: true,
	}
	if err := s.db.Create(&store).Error; err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &store, nil
}

// GetStore retrieves a store by ID
func (s *Service) GetStore(tenantID, storeID uint) (*Store, error) {
	var store Store
	err := s.db.Where("id = ? AND tenant_id = ?", storeID, tenantID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeStoreNotFound, "store not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve store: %w", err)
	}
	return &store, nil
}

// CreateVendor creates a new supplier
func (s *Service) CreateVendor(tenantID uint, req *VendorCreateRequest) (*Vendor, error) {
	var existing Vendor
	result := s.db.Where("tenant_id = ? AND code = ?", tenantID, req.Code).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict(ErrCodeVendorCodeTaken,
			fmt.Sprintf("vendor with code %s already exists", req.Code))
	}

	vendor := Vendor{
		TenantID:      tenantID,
		Code:          req.Code,
		Name:          req.Name,
		GSTNumber:     req.GSTNumber,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}
	if err := s.db.Create(&vendor).Error; err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return &vendor, nil
}

// GetVendor retrieves a vendor by ID
func (s *Service) GetVendor(tenantID, vendorID uint) (*Vendor, error) {
	var vendor Vendor
	err := s.db.Where("id = ? AND tenant_id = ?", vendorID, tenantID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeVendorNotFound, "vendor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve vendor: %w", err)
	}
	return &vendor, nil
}

// SetReorderWatch creates or updates the reorder threshold for a
// store+product pair
func (s *Service) SetReorderWatch(tenantID, userID uint, req *ReorderWatchRequest) (*ReorderWatch, error) {
	if _, err := s.GetStore(tenantID, req.StoreID); err != nil {
		return nil, err
	}
	if _, err := s.GetProduct(tenantID, req.ProductID); err != nil {
		return nil, err
	}

	var watch ReorderWatch
	err := s.db.
		Where("tenant_id = ? AND store_id = ? AND product_id = ?", tenantID, req.StoreID, req.ProductID).
		First(&watch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		watch = ReorderWatch{
			TenantID:     tenantID,
			StoreID:      req.StoreID,
			ProductID:    req.ProductID,
			ReorderLevel: req.ReorderLevel,
			CreatedBy:    userID,
		}
		if err := s.db.Create(&watch).Error; err != nil {
			return nil, fmt.Errorf("failed to create reorder watch: %w", err)
		}
		return &watch, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reorder watch: %w", err)
	}

	err = s.db.Model(&watch).Update("reorder_level", req.ReorderLevel).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update reorder watch: %w", err)
	}
	watch.ReorderLevel = req.ReorderLevel
	return &watch, nil
}

// RemoveReorderWatch drops a product from a store's watchlist
func (s *Service) RemoveReorderWatch(tenantID, storeID, productID uint) error {
	result := s.db.
		Where("tenant_id = ? AND store_id = ? AND product_id = ?", tenantID, storeID, productID).
		Delete(&ReorderWatch{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove reorder watch: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound(ErrCodeWatchNotFound, "reorder watch not found")
	}
	return nil
}
