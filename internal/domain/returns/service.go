// internal/domain/returns/service.go
package returns

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"github.com/your-org/hospital-backend/internal/domain/sale"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by return operations
const (
	ErrCodeReturnNotFound      = "RETURN_NOT_FOUND"
	ErrCodeReturnInvalidStatus = "RETURN_INVALID_STATUS"
	ErrCodeSaleNotFound        = "SALE_NOT_FOUND"
	ErrCodeSaleInvalidStatus   = "SALE_INVALID_STATUS"
	ErrCodeSaleItemNotFound    = "SALE_ITEM_NOT_FOUND"
	ErrCodeReturnExceedsSold   = "RETURN_EXCEEDS_SOLD"
	ErrCodeVersionConflict     = "VERSION_CONFLICT"
)

// Service handles sale return business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	locks     *lock.Manager
	inventory *inventory.Service
	billing   *billing.Service
	sequences *sequence.Service
	audit     *audit.Writer
}

// NewService creates a new returns service. A nil lock manager
// disables cross-instance store locking.
func NewService(db *gorm.DB, cfg *config.Config, locks *lock.Manager) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		locks:     locks,
		inventory: inventory.NewService(db, cfg),
		billing:   billing.NewService(db, cfg),
		sequences: sequence.NewService(db),
		audit:     audit.NewWriter(db),
	}
}

// CreateReturnItemRequest references one sold line to take back
type CreateReturnItemRequest struct {
	SaleItemID uint `json:"sale_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,gt=0"`
}

// CreateReturnRequest represents return creation data
type CreateReturnRequest struct {
	SaleID uint                      `json:"sale_id" binding:"required"`
	Reason string                    `json:"reason,omitempty"`
	Items  []CreateReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create raises a DRAFT return against a completed sale. Quantities
// are checked against what the sale dispensed minus what earlier
// returns already took back, so a line can never be over-returned
// across multiple drafts.
func (s *Service) Create(tenantID, userID uint, req *CreateReturnRequest) (*SaleReturn, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sl sale.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", req.SaleID, tenantID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodeSaleNotFound, "sale not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sl.Status != sale.StatusCompleted {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodeSaleInvalidStatus,
			fmt.Sprintf("returns can only be raised against COMPLETED sales, sale is %s", sl.Status))
	}

	var saleItems []sale.SaleItem
	if err := tx.Where("sale_id = ?", sl.ID).Find(&saleItems).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	itemsByID := make(map[uint]sale.SaleItem, len(saleItems))
	for _, item := range saleItems {
		itemsByID[item.ID] = item
	}

	returned, err := s.returnedSoFar(tx, tenantID, sl.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	returnNumber, err := s.sequences.Next(tx, tenantID, sequence.PrefixSaleReturn, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	refundTotal := decimal.Zero
	items := make([]SaleReturnItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		saleItem, ok := itemsByID[reqItem.SaleItemID]
		if !ok {
			tx.Rollback()
			return nil, apperror.NotFound(ErrCodeSaleItemNotFound,
				fmt.Sprintf("sale item %d does not belong to sale %d", reqItem.SaleItemID, sl.ID))
		}
		if saleItem.LedgerEntryID == nil {
			tx.Rollback()
			return nil, apperror.InvalidState(ErrCodeSaleInvalidStatus,
				fmt.Sprintf("sale item %d was never allocated stock", saleItem.ID))
		}

		remaining := saleItem.Quantity - returned[saleItem.ID]
		if reqItem.Quantity > remaining {
			tx.Rollback()
			return nil, apperror.DomainRulef(ErrCodeReturnExceedsSold,
				"cannot return %d of sale item %d, only %d remaining", reqItem.Quantity, saleItem.ID, remaining)
		}

		refund := refundForQuantity(saleItem.TotalAmount, saleItem.Quantity, reqItem.Quantity)
		refundTotal = refundTotal.Add(refund)
		items = append(items, SaleReturnItem{
			SaleItemID:   saleItem.ID,
			ProductID:    saleItem.ProductID,
			ProductName:  saleItem.ProductName,
			BatchNumber:  saleItem.BatchNumber,
			ExpiryDate:   saleItem.ExpiryDate,
			Quantity:     reqItem.Quantity,
			UnitPrice:    saleItem.UnitPrice,
			RefundAmount: refund,
		})
	}

	ret := SaleReturn{
		TenantID:     tenantID,
		ReturnNumber: returnNumber,
		SaleID:       sl.ID,
		StoreID:      sl.StoreID,
		PatientID:    sl.PatientID,
		ReturnType:   string(sl.SaleType),
		Status:       StatusDraft,
		RefundAmount: refundTotal,
		Reason:       req.Reason,
		Version:      1,
		CreatedBy:    userID,
	}
	if err := tx.Create(&ret).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create return: %w", err)
	}
	for i := range items {
		items[i].SaleReturnID = ret.ID
		if err := tx.Create(&items[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create return item: %w", err)
		}
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "SALE_RETURN", ret.ID, map[string]interface{}{
		"return_number": ret.ReturnNumber,
		"sale_id":       sl.ID,
		"refund_amount": refundTotal,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit return transaction: %w", err)
	}
	return s.GetByID(tenantID, ret.ID)
}

// Approve performs the batch-aware ledger reversal: every returned
// unit credits back to the exact batch its sale item was drawn from.
func (s *Service) Approve(tenantID, userID, returnID uint, expectedVersion int) (*SaleReturn, error) {
	storeID, err := s.returnStore(tenantID, returnID)
	if err != nil {
		return nil, err
	}

	var approved *SaleReturn
	err = s.locks.WithStoreLock(tenantID, storeID, func() error {
		var lockErr error
		approved, lockErr = s.approveReturn(tenantID, userID, returnID, expectedVersion)
		return lockErr
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *Service) approveReturn(tenantID, userID, returnID uint, expectedVersion int) (*SaleReturn, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	ret, err := s.lockReturn(tx, tenantID, returnID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !ret.CanBeApproved() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodeReturnInvalidStatus,
			fmt.Sprintf("return is %s, only DRAFT returns can be approved", ret.Status))
	}
	if ret.Version != expectedVersion {
		tx.Rollback()
		return nil, apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("return version is %d, expected %d", ret.Version, expectedVersion))
	}

	var items []SaleReturnItem
	if err := tx.Where("sale_return_id = ?", ret.ID).Order("id ASC").Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load return items: %w", err)
	}

	for _, item := range items {
		entry := inventory.StockLedgerEntry{
			TenantID:        tenantID,
			StoreID:         ret.StoreID,
			ProductID:       item.ProductID,
			BatchNumber:     item.BatchNumber,
			ExpiryDate:      item.ExpiryDate,
			TransactionType: inventory.TransactionTypeReturnIn,
			QuantityChange:  item.Quantity,
			ReferenceNumber: ret.ReturnNumber,
			Notes:           fmt.Sprintf("return against sale %d", ret.SaleID),
			CreatedBy:       userID,
		}
		if err := s.inventory.Append(tx, &entry); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Credit sales refund back onto the patient account
	var sl sale.Sale
	if err := tx.Where("id = ? AND tenant_id = ?", ret.SaleID, tenantID).First(&sl).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sl.CreditAllowed && ret.RefundAmount.IsPositive() {
		_, err := s.billing.AppendCreditEntry(tx, tenantID, ret.PatientID, billing.CreditEntryCredit,
			"SALE_RETURN", ret.ID, ret.RefundAmount, fmt.Sprintf("refund for return %s", ret.ReturnNumber), userID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	result := tx.Model(&SaleReturn{}).
		Where("id = ? AND version = ?", ret.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":      StatusApproved,
			"version":     expectedVersion + 1,
			"approved_by": userID,
			"approved_at": now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update return status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("return was modified concurrently, expected version %d", expectedVersion))
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionApprove, "SALE_RETURN", ret.ID, map[string]interface{}{
		"return_number": ret.ReturnNumber,
		"refund_amount": ret.RefundAmount,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit return approval: %w", err)
	}
	return s.GetByID(tenantID, returnID)
}

// Cancel withdraws a DRAFT return before it touches the ledger
func (s *Service) Cancel(tenantID, userID, returnID uint, expectedVersion int) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	ret, err := s.lockReturn(tx, tenantID, returnID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if !ret.CanBeCancelled() {
		tx.Rollback()
		return apperror.InvalidState(ErrCodeReturnInvalidStatus,
			fmt.Sprintf("return is %s, only DRAFT returns can be cancelled", ret.Status))
	}
	if ret.Version != expectedVersion {
		tx.Rollback()
		return apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("return version is %d, expected %d", ret.Version, expectedVersion))
	}

	result := tx.Model(&SaleReturn{}).
		Where("id = ? AND version = ?", ret.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":  StatusCancelled,
			"version": expectedVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update return status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("return was modified concurrently, expected version %d", expectedVersion))
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCancel, "SALE_RETURN", ret.ID, map[string]interface{}{
		"return_number": ret.ReturnNumber,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit return cancellation: %w", err)
	}
	return nil
}

// GetByID retrieves a single return with its items
func (s *Service) GetByID(tenantID, returnID uint) (*SaleReturn, error) {
	var ret SaleReturn
	err := s.db.
		Preload("Items").
		Where("id = ? AND tenant_id = ?", returnID, tenantID).
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeReturnNotFound, "return not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve return: %w", err)
	}
	return &ret, nil
}

// Private helper methods

// returnStore reads the return's store ahead of the transaction, so
// the store stock lock can be taken before any row locks
func (s *Service) returnStore(tenantID, returnID uint) (uint, error) {
	var ret SaleReturn
	err := s.db.Select("store_id").
		Where("id = ? AND tenant_id = ?", returnID, tenantID).
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperror.NotFound(ErrCodeReturnNotFound, "return not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load return: %w", err)
	}
	return ret.StoreID, nil
}

func (s *Service) lockReturn(tx *gorm.DB, tenantID, returnID uint) (*SaleReturn, error) {
	var ret SaleReturn
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", returnID, tenantID).
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeReturnNotFound, "return not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load return: %w", err)
	}
	return &ret, nil
}

// returnedRow is one sale item's quantity already claimed by returns
type returnedRow struct {
	SaleItemID uint
	Quantity   int
}

// returnedSoFar sums per sale item the quantities held by every
// non-cancelled return against the sale
func (s *Service) returnedSoFar(tx *gorm.DB, tenantID, saleID uint) (map[uint]int, error) {
	var rows []returnedRow
	err := tx.Table("sale_return_items").
		Select("sale_return_items.sale_item_id, SUM(sale_return_items.quantity) AS quantity").
		Joins("JOIN sale_returns ON sale_returns.id = sale_return_items.sale_return_id").
		Where("sale_returns.tenant_id = ? AND sale_returns.sale_id = ? AND sale_returns.status <> ?",
			tenantID, saleID, StatusCancelled).
		Group("sale_return_items.sale_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum returned quantities: %w", err)
	}

	returned := make(map[uint]int, len(rows))
	for _, row := range rows {
		returned[row.SaleItemID] = row.Quantity
	}
	return returned, nil
}

// refundForQuantity prorates a sale line's total onto the returned
// quantity, rounded to 2 places. Returning the full line refunds the
// exact line total.
func refundForQuantity(lineTotal decimal.Decimal, soldQty, returnQty int) decimal.Decimal {
	if soldQty <= 0 || returnQty <= 0 {
		return decimal.Zero
	}
	if returnQty >= soldQty {
		return lineTotal
	}
	return lineTotal.Mul(decimal.NewFromInt(int64(returnQty))).
		Div(decimal.NewFromInt(int64(soldQty))).Round(2)
}
