// internal/domain/sale/service.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/catalog"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/prescription"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"github.com/your-org/hospital-backend/internal/pkg/email"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by sale operations
const (
	ErrCodePatientNotFound              = "PATIENT_NOT_FOUND"
	ErrCodePatientInactive              = "PATIENT_INACTIVE"
	ErrCodeStoreNotFound                = "STORE_NOT_FOUND"
	ErrCodeStoreInactive                = "STORE_INACTIVE"
	ErrCodeVisitNotFound                = "VISIT_NOT_FOUND"
	ErrCodePrescriptionNotFound         = "PRESCRIPTION_NOT_FOUND"
	ErrCodePrescriptionInvalidStatus    = "PRESCRIPTION_INVALID_STATUS"
	ErrCodePrescriptionItemNotFound     = "PRESCRIPTION_ITEM_NOT_FOUND"
	ErrCodeProductNotFound              = "PRODUCT_NOT_FOUND"
	ErrCodeProductInactive              = "PRODUCT_INACTIVE"
	ErrCodeNarcoticRequiresPrescription = "NARCOTIC_REQUIRES_PRESCRIPTION"
	ErrCodeInvalidDiscount              = "INVALID_DISCOUNT"
	ErrCodePatientCreditNotAllowed      = "PATIENT_CREDIT_NOT_ALLOWED"
	ErrCodeCreditLimitExceeded          = "CREDIT_LIMIT_EXCEEDED"
	ErrCodeSaleNotFound                 = "SALE_NOT_FOUND"
	ErrCodeSaleInvalidStatus            = "SALE_INVALID_STATUS"
	ErrCodeVersionConflict              = "VERSION_CONFLICT"
	ErrCodeSaleAlreadyCancelled         = "SALE_ALREADY_CANCELLED"
)

// Service handles pharmacy sale business logic
type Service struct {
	db           *gorm.DB
	config       *config.Config
	locks        *lock.Manager
	inventory    *inventory.Service
	billing      *billing.Service
	sequences    *sequence.Service
	audit        *audit.Writer
	staff        *user.AdminService
	emailService *email.EmailService
}

// NewService creates a new sale service. A nil lock manager disables
// cross-instance store locking.
func NewService(db *gorm.DB, cfg *config.Config, locks *lock.Manager) *Service {
	return &Service{
		db:           db,
		config:       cfg,
		locks:        locks,
		inventory:    inventory.NewService(db, cfg),
		billing:      billing.NewService(db, cfg),
		sequences:    sequence.NewService(db),
		audit:        audit.NewWriter(db),
		staff:        user.NewAdminService(db, cfg),
		emailService: email.NewEmailService(cfg),
	}
}

// CreateSaleItemRequest represents one requested sale line
type CreateSaleItemRequest struct {
	ProductID          uint            `json:"product_id" binding:"required"`
	PrescriptionItemID *uint           `json:"prescription_item_id,omitempty"`
	Quantity           int             `json:"quantity" binding:"required,gt=0"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
}

// CreateSaleRequest represents sale creation data
type CreateSaleRequest struct {
	StoreID        uint                    `json:"store_id" binding:"required"`
	PatientID      uint                    `json:"patient_id" binding:"required"`
	SaleType       Type                    `json:"sale_type" binding:"omitempty,oneof=OP IP"`
	VisitID        *uint                   `json:"visit_id,omitempty"`
	PrescriptionID *uint                   `json:"prescription_id,omitempty"`
	CreditAllowed  bool                    `json:"credit_allowed"`
	Notes          string                  `json:"notes,omitempty"`
	Items          []CreateSaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// saleLine is one validated, priced sale line before persistence
type saleLine struct {
	request  CreateSaleItemRequest
	product  catalog.Product
	gross    decimal.Decimal
	discount decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

// Create creates a sale as a single atomic transaction. Sales within
// the discount threshold are allocated and COMPLETED immediately;
// anything above it is parked PENDING_APPROVAL with no stock impact.
func (s *Service) Create(tenantID, userID uint, req *CreateSaleRequest) (*Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("sale requires at least one item")
	}

	var created *Sale
	err := s.locks.WithStoreLock(tenantID, req.StoreID, func() error {
		var lockErr error
		created, lockErr = s.createSale(tenantID, userID, req)
		return lockErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createSale runs the create transaction; the caller holds the store
// stock lock.
func (s *Service) createSale(tenantID, userID uint, req *CreateSaleRequest) (*Sale, error) {
	saleType := req.SaleType
	if saleType == "" {
		saleType = TypeOutpatient
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	pat, err := s.validatePatient(tx, tenantID, req.PatientID, req.CreditAllowed)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := s.validateStore(tx, tenantID, req.StoreID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if req.VisitID != nil {
		if err := s.validateVisit(tx, tenantID, req.PatientID, *req.VisitID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	var presc *prescription.Prescription
	var doctorID *uint
	if req.PrescriptionID != nil {
		presc, err = s.loadPrescription(tx, tenantID, *req.PrescriptionID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		doctorID = &presc.DoctorID
	}

	lines, err := s.buildLines(tx, tenantID, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	totalAmount, discountAmount, taxAmount := decimal.Zero, decimal.Zero, decimal.Zero
	for _, line := range lines {
		totalAmount = totalAmount.Add(line.gross)
		discountAmount = discountAmount.Add(line.discount)
		taxAmount = taxAmount.Add(line.tax)
	}
	netAmount := totalAmount.Sub(discountAmount).Add(taxAmount)

	status := StatusCompleted
	if requiresApproval(totalAmount, discountAmount, s.config.Pharmacy.DiscountApprovalThreshold) {
		status = StatusPendingApproval
	}

	now := time.Now().UTC()
	saleNumber, err := s.sequences.Next(tx, tenantID, sequence.PrefixSale, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	newSale := Sale{
		TenantID:       tenantID,
		SaleNumber:     saleNumber,
		StoreID:        req.StoreID,
		PatientID:      req.PatientID,
		SaleType:       saleType,
		Status:         status,
		VisitID:        req.VisitID,
		PrescriptionID: req.PrescriptionID,
		DoctorID:       doctorID,
		TotalAmount:    totalAmount,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		NetAmount:      netAmount,
		CreditAllowed:  req.CreditAllowed,
		Version:        1,
		Notes:          req.Notes,
		CreatedBy:      userID,
		UpdatedBy:      userID,
	}
	if err := tx.Create(&newSale).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	var items []SaleItem
	if status == StatusPendingApproval {
		items, err = s.createPendingItems(tx, &newSale, lines)
	} else {
		items, err = s.createAllocatedItems(tx, &newSale, lines, userID)
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if presc != nil {
		if err := s.markDispensed(tx, presc, req.Items, now); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if status == StatusCompleted {
		if err := s.completeSale(tx, &newSale, pat, items, userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	newSale.AddStatusHistory(status, "Sale created", userID)
	for _, history := range newSale.StatusHistory {
		if err := tx.Create(&history).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create status history: %w", err)
		}
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "SALE", newSale.ID, map[string]interface{}{
		"sale_number": newSale.SaleNumber,
		"status":      newSale.Status,
		"net_amount":  newSale.NetAmount,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit sale transaction: %w", err)
	}

	if status == StatusPendingApproval {
		go s.notifyApprovers(tenantID, &newSale, pat)
	}

	return s.GetByID(tenantID, newSale.ID)
}

// notifyApprovers mails pharmacy managers about a parked sale. Runs
// after commit; a mail failure never touches the sale itself.
func (s *Service) notifyApprovers(tenantID uint, sl *Sale, pat *patient.Patient) {
	approvers, err := s.staff.ApproverEmails(tenantID)
	if err != nil {
		log.Printf("Warning: failed to load approver emails for sale %s: %v", sl.SaleNumber, err)
		return
	}

	discountPercent := decimal.Zero
	if sl.TotalAmount.IsPositive() {
		discountPercent = sl.DiscountAmount.Div(sl.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}

	err = s.emailService.SendApprovalRequestEmail(context.Background(), approvers, email.ApprovalRequestData{
		SaleNumber:      sl.SaleNumber,
		PatientName:     pat.GetFullName(),
		DiscountPercent: discountPercent.String(),
		TotalAmount:     sl.NetAmount.String(),
	})
	if err != nil {
		log.Printf("Warning: failed to send approval request for sale %s: %v", sl.SaleNumber, err)
	}
}

// Approve completes a sale parked for discount approval. Allocation
// runs now: the first batch split of each line updates the existing
// item row, further splits append new rows.
func (s *Service) Approve(tenantID, userID, saleID uint, expectedVersion int) (*Sale, error) {
	storeID, err := s.saleStore(tenantID, saleID)
	if err != nil {
		return nil, err
	}

	var approved *Sale
	err = s.locks.WithStoreLock(tenantID, storeID, func() error {
		var lockErr error
		approved, lockErr = s.approveSale(tenantID, userID, saleID, expectedVersion)
		return lockErr
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *Service) approveSale(tenantID, userID, saleID uint, expectedVersion int) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sl, err := s.lockSale(tx, tenantID, saleID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !sl.CanBeApproved() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodeSaleInvalidStatus,
			fmt.Sprintf("sale is %s, only PENDING_APPROVAL sales can be approved", sl.Status))
	}
	if sl.Version != expectedVersion {
		tx.Rollback()
		return nil, apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("sale version is %d, expected %d", sl.Version, expectedVersion))
	}

	var items []SaleItem
	if err := tx.Where("sale_id = ?", sl.ID).Order("id ASC").Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}

	var allocated []SaleItem
	for _, item := range items {
		rows, err := s.allocateItem(tx, sl, item, userID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		allocated = append(allocated, rows...)
	}

	var pat patient.Patient
	if err := tx.Where("id = ? AND tenant_id = ?", sl.PatientID, tenantID).First(&pat).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if err := s.completeSale(tx, sl, &pat, allocated, userID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.transition(tx, sl, StatusCompleted, expectedVersion, "Discount approved", userID); err != nil {
		tx.Rollback()
		return nil, err
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionApprove, "SALE", sl.ID, map[string]interface{}{
		"sale_number": sl.SaleNumber,
		"version":     expectedVersion + 1,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit approval transaction: %w", err)
	}

	return s.GetByID(tenantID, saleID)
}

// Cancel cancels a sale. A COMPLETED sale gets one compensating
// positive ADJUSTMENT ledger entry per allocated item, restoring stock
// to the exact batches it was drawn from. A pending sale has no ledger
// impact to reverse.
func (s *Service) Cancel(tenantID, userID, saleID uint, expectedVersion int, reason string) error {
	storeID, err := s.saleStore(tenantID, saleID)
	if err != nil {
		return err
	}
	return s.locks.WithStoreLock(tenantID, storeID, func() error {
		return s.cancelSale(tenantID, userID, saleID, expectedVersion, reason)
	})
}

func (s *Service) cancelSale(tenantID, userID, saleID uint, expectedVersion int, reason string) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sl, err := s.lockSale(tx, tenantID, saleID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if sl.Status == StatusCancelled {
		tx.Rollback()
		return apperror.InvalidState(ErrCodeSaleAlreadyCancelled, "sale is already cancelled")
	}
	if sl.Version != expectedVersion {
		tx.Rollback()
		return apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("sale version is %d, expected %d", sl.Version, expectedVersion))
	}

	wasCompleted := sl.Status == StatusCompleted
	if wasCompleted {
		var items []SaleItem
		if err := tx.Where("sale_id = ?", sl.ID).Order("id ASC").Find(&items).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to load sale items: %w", err)
		}
		for _, item := range items {
			if item.LedgerEntryID == nil {
				continue
			}
			entry := inventory.StockLedgerEntry{
				TenantID:        tenantID,
				StoreID:         sl.StoreID,
				ProductID:       item.ProductID,
				BatchNumber:     item.BatchNumber,
				ExpiryDate:      item.ExpiryDate,
				TransactionType: inventory.TransactionTypeAdjustment,
				QuantityChange:  item.Quantity,
				ReferenceNumber: sl.SaleNumber,
				Notes:           fmt.Sprintf("reversal for cancelled sale %s", sl.SaleNumber),
				CreatedBy:       userID,
			}
			if err := s.inventory.Append(tx, &entry); err != nil {
				tx.Rollback()
				return err
			}
		}

		if sl.InvoiceID != nil {
			if err := s.billing.CancelInvoice(tx, tenantID, *sl.InvoiceID); err != nil {
				tx.Rollback()
				return err
			}
		}
		if sl.CreditAllowed {
			_, err := s.billing.AppendCreditEntry(tx, tenantID, sl.PatientID, billing.CreditEntryCredit,
				"SALE", sl.ID, sl.NetAmount, fmt.Sprintf("reversal for cancelled sale %s", sl.SaleNumber), userID)
			if err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	comment := "Sale cancelled"
	if reason != "" {
		comment = fmt.Sprintf("Sale cancelled: %s", reason)
	}
	if err := s.transition(tx, sl, StatusCancelled, expectedVersion, comment, userID); err != nil {
		tx.Rollback()
		return err
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCancel, "SALE", sl.ID, map[string]interface{}{
		"sale_number":   sl.SaleNumber,
		"was_completed": wasCompleted,
		"reason":        reason,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit cancellation transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a single sale with items and status history
func (s *Service) GetByID(tenantID, saleID uint) (*Sale, error) {
	var sl Sale
	err := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ? AND tenant_id = ?", saleID, tenantID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeSaleNotFound, "sale not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}
	return &sl, nil
}

// GetByNumber retrieves a single sale by its sale number
func (s *Service) GetByNumber(tenantID uint, saleNumber string) (*Sale, error) {
	var sl Sale
	err := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("sale_number = ? AND tenant_id = ?", saleNumber, tenantID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeSaleNotFound, "sale not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}
	return &sl, nil
}

// Private helper methods

func (s *Service) validatePatient(tx *gorm.DB, tenantID, patientID uint, creditRequested bool) (*patient.Patient, error) {
	var pat patient.Patient
	err := tx.Where("id = ? AND tenant_id = ?", patientID, tenantID).First(&pat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePatientNotFound, "patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if !pat.IsActive() {
		return nil, apperror.InvalidState(ErrCodePatientInactive, "patient is not active")
	}
	if creditRequested && !pat.CreditAllowed {
		return nil, apperror.DomainRule(ErrCodePatientCreditNotAllowed, "patient is not approved for credit sales")
	}
	return &pat, nil
}

func (s *Service) validateStore(tx *gorm.DB, tenantID, storeID uint) (*catalog.Store, error) {
	var store catalog.Store
	err := tx.Where("id = ? AND tenant_id = ?", storeID, tenantID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeStoreNotFound, "store not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	if !store.IsOperational() {
		return nil, apperror.InvalidState(ErrCodeStoreInactive, "store is not active")
	}
	return &store, nil
}

func (s *Service) validateVisit(tx *gorm.DB, tenantID, patientID, visitID uint) error {
	var visit patient.Visit
	err := tx.Where("id = ? AND tenant_id = ? AND patient_id = ?", visitID, tenantID, patientID).First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodeVisitNotFound, "visit not found for this patient")
	}
	if err != nil {
		return fmt.Errorf("failed to load visit: %w", err)
	}
	return nil
}

func (s *Service) loadPrescription(tx *gorm.DB, tenantID, prescriptionID uint) (*prescription.Prescription, error) {
	var presc prescription.Prescription
	err := tx.Preload("Items").
		Where("id = ? AND tenant_id = ?", prescriptionID, tenantID).
		First(&presc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePrescriptionNotFound, "prescription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prescription: %w", err)
	}
	if !presc.IsActive() {
		return nil, apperror.InvalidState(ErrCodePrescriptionInvalidStatus,
			fmt.Sprintf("prescription is %s, expected ACTIVE", presc.Status))
	}
	return &presc, nil
}

// buildLines validates every requested product and prices the lines.
// Tax is GST on the discounted amount, rounded to 2 places.
func (s *Service) buildLines(tx *gorm.DB, tenantID uint, req *CreateSaleRequest) ([]saleLine, error) {
	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	var products []catalog.Product
	if err := tx.Where("id IN ? AND tenant_id = ?", ids, tenantID).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uint]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]saleLine, 0, len(req.Items))
	for _, item := range req.Items {
		prod, ok := byID[item.ProductID]
		if !ok {
			return nil, apperror.NotFound(ErrCodeProductNotFound,
				fmt.Sprintf("product %d not found", item.ProductID))
		}
		if !prod.IsActive {
			return nil, apperror.InvalidState(ErrCodeProductInactive,
				fmt.Sprintf("product %s is not active", prod.Name))
		}
		if prod.RequiresPrescription() && req.PrescriptionID == nil {
			return nil, apperror.DomainRule(ErrCodeNarcoticRequiresPrescription,
				fmt.Sprintf("product %s is a narcotic and requires a prescription", prod.Name))
		}

		gross := prod.MRP.Mul(decimal.NewFromInt(int64(item.Quantity)))
		discount := item.DiscountAmount
		if discount.IsNegative() {
			return nil, apperror.DomainRule(ErrCodeInvalidDiscount, "discount must not be negative")
		}
		if discount.GreaterThan(gross) {
			return nil, apperror.DomainRulef(ErrCodeInvalidDiscount,
				"discount %s exceeds line amount %s", discount, gross)
		}
		tax := gross.Sub(discount).Mul(prod.GSTRate).Div(decimal.NewFromInt(100)).Round(2)

		lines = append(lines, saleLine{
			request:  item,
			product:  prod,
			gross:    gross,
			discount: discount,
			tax:      tax,
			total:    gross.Sub(discount).Add(tax),
		})
	}
	return lines, nil
}

// createPendingItems records requested lines with the placeholder batch
// marker and no ledger linkage
func (s *Service) createPendingItems(tx *gorm.DB, sl *Sale, lines []saleLine) ([]SaleItem, error) {
	items := make([]SaleItem, 0, len(lines))
	for _, line := range lines {
		item := SaleItem{
			SaleID:             sl.ID,
			ProductID:          line.product.ID,
			PrescriptionItemID: line.request.PrescriptionItemID,
			ProductName:        line.product.Name,
			BatchNumber:        s.config.Pharmacy.PendingBatchMarker,
			Quantity:           line.request.Quantity,
			UnitPrice:          line.product.MRP,
			DiscountAmount:     line.discount,
			TaxAmount:          line.tax,
			TotalAmount:        line.total,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to create sale item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// createAllocatedItems runs the allocator per line and records one sale
// item per batch split, with line discounts and tax prorated across the
// splits by quantity
func (s *Service) createAllocatedItems(tx *gorm.DB, sl *Sale, lines []saleLine, userID uint) ([]SaleItem, error) {
	items := make([]SaleItem, 0, len(lines))
	for _, line := range lines {
		allocations, err := s.inventory.Allocate(tx, inventory.AllocationRequest{
			TenantID:        sl.TenantID,
			StoreID:         sl.StoreID,
			ProductID:       line.product.ID,
			RequiredQty:     line.request.Quantity,
			ReferenceNumber: sl.SaleNumber,
			UserID:          userID,
		})
		if err != nil {
			return nil, err
		}

		weights := make([]int, len(allocations))
		for i, alloc := range allocations {
			weights[i] = alloc.AllocatedQty
		}
		discountShares := prorate(line.discount, weights)
		taxShares := prorate(line.tax, weights)

		for i, alloc := range allocations {
			gross := line.product.MRP.Mul(decimal.NewFromInt(int64(alloc.AllocatedQty)))
			ledgerEntryID := alloc.LedgerEntryID
			item := SaleItem{
				SaleID:             sl.ID,
				ProductID:          line.product.ID,
				PrescriptionItemID: line.request.PrescriptionItemID,
				ProductName:        line.product.Name,
				BatchNumber:        alloc.BatchNumber,
				ExpiryDate:         alloc.ExpiryDate,
				Quantity:           alloc.AllocatedQty,
				UnitPrice:          line.product.MRP,
				DiscountAmount:     discountShares[i],
				TaxAmount:          taxShares[i],
				TotalAmount:        gross.Sub(discountShares[i]).Add(taxShares[i]),
				LedgerEntryID:      &ledgerEntryID,
			}
			if err := tx.Create(&item).Error; err != nil {
				return nil, fmt.Errorf("failed to create sale item: %w", err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// allocateItem performs deferred allocation for one pending sale item.
// The first split reuses the existing row, extra splits become new rows.
func (s *Service) allocateItem(tx *gorm.DB, sl *Sale, item SaleItem, userID uint) ([]SaleItem, error) {
	allocations, err := s.inventory.Allocate(tx, inventory.AllocationRequest{
		TenantID:        sl.TenantID,
		StoreID:         sl.StoreID,
		ProductID:       item.ProductID,
		RequiredQty:     item.Quantity,
		ReferenceNumber: sl.SaleNumber,
		UserID:          userID,
	})
	if err != nil {
		return nil, err
	}

	weights := make([]int, len(allocations))
	for i, alloc := range allocations {
		weights[i] = alloc.AllocatedQty
	}
	discountShares := prorate(item.DiscountAmount, weights)
	taxShares := prorate(item.TaxAmount, weights)

	rows := make([]SaleItem, 0, len(allocations))
	for i, alloc := range allocations {
		gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(alloc.AllocatedQty)))
		total := gross.Sub(discountShares[i]).Add(taxShares[i])
		ledgerEntryID := alloc.LedgerEntryID

		if i == 0 {
			updates := map[string]interface{}{
				"batch_number":    alloc.BatchNumber,
				"expiry_date":     alloc.ExpiryDate,
				"quantity":        alloc.AllocatedQty,
				"discount_amount": discountShares[i],
				"tax_amount":      taxShares[i],
				"total_amount":    total,
				"ledger_entry_id": ledgerEntryID,
			}
			if err := tx.Model(&SaleItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to update sale item: %w", err)
			}
			updated := item
			updated.BatchNumber = alloc.BatchNumber
			updated.ExpiryDate = alloc.ExpiryDate
			updated.Quantity = alloc.AllocatedQty
			updated.DiscountAmount = discountShares[i]
			updated.TaxAmount = taxShares[i]
			updated.TotalAmount = total
			updated.LedgerEntryID = &ledgerEntryID
			rows = append(rows, updated)
			continue
		}

		extra := SaleItem{
			SaleID:             sl.ID,
			ProductID:          item.ProductID,
			PrescriptionItemID: item.PrescriptionItemID,
			ProductName:        item.ProductName,
			BatchNumber:        alloc.BatchNumber,
			ExpiryDate:         alloc.ExpiryDate,
			Quantity:           alloc.AllocatedQty,
			UnitPrice:          item.UnitPrice,
			DiscountAmount:     discountShares[i],
			TaxAmount:          taxShares[i],
			TotalAmount:        total,
			LedgerEntryID:      &ledgerEntryID,
		}
		if err := tx.Create(&extra).Error; err != nil {
			return nil, fmt.Errorf("failed to create sale item: %w", err)
		}
		rows = append(rows, extra)
	}
	return rows, nil
}

// completeSale performs the side effects of a sale reaching COMPLETED:
// invoice creation when a visit is attached, and the patient credit
// ledger entry for credit sales.
func (s *Service) completeSale(tx *gorm.DB, sl *Sale, pat *patient.Patient, items []SaleItem, userID uint) error {
	if sl.VisitID != nil {
		lines := make([]billing.InvoiceLineInput, 0, len(items))
		for _, item := range items {
			lines = append(lines, billing.InvoiceLineInput{
				Description:    fmt.Sprintf("%s (batch %s)", item.ProductName, item.BatchNumber),
				Quantity:       item.Quantity,
				UnitPrice:      item.UnitPrice,
				DiscountAmount: item.DiscountAmount,
				TaxAmount:      item.TaxAmount,
				TotalAmount:    item.TotalAmount,
			})
		}
		invoice, err := s.billing.CreateInvoice(tx, &billing.InvoiceInput{
			TenantID:       sl.TenantID,
			PatientID:      sl.PatientID,
			VisitID:        sl.VisitID,
			CreditAllowed:  sl.CreditAllowed,
			TotalAmount:    sl.TotalAmount,
			DiscountAmount: sl.DiscountAmount,
			TaxAmount:      sl.TaxAmount,
			NetAmount:      sl.NetAmount,
			Notes:          fmt.Sprintf("pharmacy sale %s", sl.SaleNumber),
			CreatedBy:      userID,
			Lines:          lines,
		})
		if err != nil {
			return err
		}
		sl.InvoiceID = &invoice.ID
		if err := tx.Model(&Sale{}).Where("id = ?", sl.ID).Update("invoice_id", invoice.ID).Error; err != nil {
			return fmt.Errorf("failed to link invoice: %w", err)
		}
	}

	if sl.CreditAllowed {
		entry, err := s.billing.AppendCreditEntry(tx, sl.TenantID, sl.PatientID, billing.CreditEntryDebit,
			"SALE", sl.ID, sl.NetAmount, fmt.Sprintf("credit sale %s", sl.SaleNumber), userID)
		if err != nil {
			return err
		}
		if pat.CreditLimit.IsPositive() && entry.Balance.GreaterThan(pat.CreditLimit) {
			return apperror.DomainRulef(ErrCodeCreditLimitExceeded,
				"credit balance %s exceeds limit %s", entry.Balance, pat.CreditLimit)
		}
	}
	return nil
}

// markDispensed flags the referenced prescription items as dispensed.
// Items are matched by id, never by name, and must belong to the sale's
// prescription. Already-dispensed items are left untouched.
func (s *Service) markDispensed(tx *gorm.DB, presc *prescription.Prescription, items []CreateSaleItemRequest, now time.Time) error {
	known := make(map[uint]bool, len(presc.Items))
	for _, pi := range presc.Items {
		known[pi.ID] = true
	}

	for _, item := range items {
		if item.PrescriptionItemID == nil {
			continue
		}
		if !known[*item.PrescriptionItemID] {
			return apperror.NotFound(ErrCodePrescriptionItemNotFound,
				fmt.Sprintf("prescription item %d does not belong to prescription %d", *item.PrescriptionItemID, presc.ID))
		}
		err := tx.Model(&prescription.PrescriptionItem{}).
			Where("id = ? AND prescription_id = ? AND is_dispensed = ?", *item.PrescriptionItemID, presc.ID, false).
			Updates(map[string]interface{}{
				"is_dispensed": true,
				"dispensed_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark prescription item dispensed: %w", err)
		}
	}

	// Once the last line is dispensed the prescription is complete
	var remaining int64
	err := tx.Model(&prescription.PrescriptionItem{}).
		Where("prescription_id = ? AND is_dispensed = ?", presc.ID, false).
		Count(&remaining).Error
	if err != nil {
		return fmt.Errorf("failed to count undispensed items: %w", err)
	}
	if remaining == 0 {
		err = tx.Model(&prescription.Prescription{}).
			Where("id = ? AND status = ?", presc.ID, prescription.StatusActive).
			Update("status", prescription.StatusCompleted).Error
		if err != nil {
			return fmt.Errorf("failed to complete prescription: %w", err)
		}
	}
	return nil
}

// saleStore reads the sale's store ahead of the transaction, so the
// store stock lock can be taken before any row locks
func (s *Service) saleStore(tenantID, saleID uint) (uint, error) {
	var sl Sale
	err := s.db.Select("store_id").
		Where("id = ? AND tenant_id = ?", saleID, tenantID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperror.NotFound(ErrCodeSaleNotFound, "sale not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load sale: %w", err)
	}
	return sl.StoreID, nil
}

// lockSale loads a sale under SELECT FOR UPDATE
func (s *Service) lockSale(tx *gorm.DB, tenantID, saleID uint) (*Sale, error) {
	var sl Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", saleID, tenantID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeSaleNotFound, "sale not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return &sl, nil
}

// transition moves the sale to a new status with an optimistic version
// guard and writes the status history row
func (s *Service) transition(tx *gorm.DB, sl *Sale, next Status, expectedVersion int, comment string, userID uint) error {
	if !sl.Status.CanTransitionTo(next) {
		return apperror.InvalidState(ErrCodeSaleInvalidStatus,
			fmt.Sprintf("sale cannot move from %s to %s", sl.Status, next))
	}

	result := tx.Model(&Sale{}).
		Where("id = ? AND version = ?", sl.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":     next,
			"version":    expectedVersion + 1,
			"updated_by": userID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update sale status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("sale was modified concurrently, expected version %d", expectedVersion))
	}

	history := SaleStatusHistory{
		SaleID:    sl.ID,
		Status:    next,
		Comment:   comment,
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	sl.Status = next
	sl.Version = expectedVersion + 1
	return nil
}

// requiresApproval decides the discount-approval gate. The threshold is
// inclusive: a sale at exactly the threshold completes immediately.
func requiresApproval(totalAmount, discountAmount, threshold decimal.Decimal) bool {
	if !totalAmount.IsPositive() || !discountAmount.IsPositive() {
		return false
	}
	percent := discountAmount.Div(totalAmount).Mul(decimal.NewFromInt(100))
	return percent.GreaterThan(threshold)
}

// prorate splits an amount across integer weights, rounding each share
// to 2 places and pushing the rounding remainder onto the last share so
// the pieces always sum back to the whole
func prorate(amount decimal.Decimal, weights []int) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if len(weights) == 0 || amount.IsZero() {
		return shares
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return shares
	}

	allocated := decimal.Zero
	for i := 0; i < len(weights)-1; i++ {
		share := amount.Mul(decimal.NewFromInt(int64(weights[i]))).
			Div(decimal.NewFromInt(int64(totalWeight))).Round(2)
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[len(weights)-1] = amount.Sub(allocated)
	return shares
}
