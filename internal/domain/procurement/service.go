// internal/domain/procurement/service.go
package procurement

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
	"github.com/your-org/hospital-backend/internal/domain/catalog"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/pkg/email"
	"github.com/your-org/hospital-backend/internal/pkg/lock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error codes surfaced by procurement operations
const (
	ErrCodePONotFound         = "PO_NOT_FOUND"
	ErrCodePOInvalidStatus    = "PO_INVALID_STATUS"
	ErrCodeVendorNotFound     = "VENDOR_NOT_FOUND"
	ErrCodeStoreNotFound      = "STORE_NOT_FOUND"
	ErrCodeStoreInactive      = "STORE_INACTIVE"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeGRNNotFound        = "GRN_NOT_FOUND"
	ErrCodeGRNInvalidQuantity = "GRN_INVALID_QUANTITY"
	ErrCodeVersionConflict    = "VERSION_CONFLICT"
)

// Service handles purchase order and goods receipt business logic
type Service struct {
	db           *gorm.DB
	config       *config.Config
	locks        *lock.Manager
	inventory    *inventory.Service
	sequences    *sequence.Service
	audit        *audit.Writer
	emailService *email.EmailService
}

// NewService creates a new procurement service. A nil lock manager
// disables cross-instance store locking.
func NewService(db *gorm.DB, cfg *config.Config, locks *lock.Manager) *Service {
	return &Service{
		db:           db,
		config:       cfg,
		locks:        locks,
		inventory:    inventory.NewService(db, cfg),
		sequences:    sequence.NewService(db),
		audit:        audit.NewWriter(db),
		emailService: email.NewEmailService(cfg),
	}
}

// CreatePurchaseOrderItemRequest represents one line to order
type CreatePurchaseOrderItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseOrderRequest represents purchase order creation data
type CreatePurchaseOrderRequest struct {
	StoreID      uint                             `json:"store_id" binding:"required"`
	VendorID     uint                             `json:"vendor_id" binding:"required"`
	ExpectedDate *time.Time                       `json:"expected_date,omitempty"`
	Notes        string                           `json:"notes,omitempty"`
	Items        []CreatePurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// GoodsReceiptItemRequest represents one received batch line
type GoodsReceiptItemRequest struct {
	ProductID         uint            `json:"product_id" binding:"required"`
	BatchNumber       string          `json:"batch_number" binding:"required"`
	ManufacturingDate *time.Time      `json:"manufacturing_date,omitempty"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	QuantityReceived  int             `json:"quantity_received" binding:"required,gt=0"`
	QuantityRejected  int             `json:"quantity_rejected" binding:"gte=0"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// CreateGoodsReceiptRequest represents goods receipt creation data
type CreateGoodsReceiptRequest struct {
	PurchaseOrderID     uint                      `json:"purchase_order_id" binding:"required"`
	StoreID             uint                      `json:"store_id" binding:"required"`
	VendorInvoiceNumber string                    `json:"vendor_invoice_number,omitempty"`
	ReceivedDate        *time.Time                `json:"received_date,omitempty"`
	Notes               string                    `json:"notes,omitempty"`
	Items               []GoodsReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreatePurchaseOrder creates a DRAFT purchase order
func (s *Service) CreatePurchaseOrder(tenantID, userID uint, req *CreatePurchaseOrderRequest) (*PurchaseOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.validateStore(tx, tenantID, req.StoreID); err != nil {
		tx.Rollback()
		return nil, err
	}

	var vendor catalog.Vendor
	err := tx.Where("id = ? AND tenant_id = ?", req.VendorID, tenantID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodeVendorNotFound, "vendor not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}

	if err := s.validateProducts(tx, tenantID, productIDsFromOrder(req.Items)); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	poNumber, err := s.sequences.Next(tx, tenantID, sequence.PrefixPurchase, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	total := decimal.Zero
	for _, item := range req.Items {
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	po := PurchaseOrder{
		TenantID:     tenantID,
		PONumber:     poNumber,
		VendorID:     req.VendorID,
		StoreID:      req.StoreID,
		Status:       POStatusDraft,
		ExpectedDate: req.ExpectedDate,
		TotalAmount:  total,
		Version:      1,
		Notes:        req.Notes,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if err := tx.Create(&po).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create purchase order: %w", err)
	}

	for _, item := range req.Items {
		poItem := PurchaseOrderItem{
			PurchaseOrderID: po.ID,
			ProductID:       item.ProductID,
			OrderedQty:      item.Quantity,
			UnitCost:        item.UnitCost,
		}
		if err := tx.Create(&poItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create purchase order item: %w", err)
		}
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionCreate, "PURCHASE_ORDER", po.ID, map[string]interface{}{
		"po_number": po.PONumber,
		"vendor_id": po.VendorID,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit purchase order transaction: %w", err)
	}
	return s.GetPurchaseOrder(tenantID, po.ID)
}

// ApprovePurchaseOrder moves a DRAFT order to APPROVED
func (s *Service) ApprovePurchaseOrder(tenantID, userID, poID uint, expectedVersion int) (*PurchaseOrder, error) {
	return s.transitionOrder(tenantID, userID, poID, expectedVersion, POStatusApproved)
}

// SendPurchaseOrder marks an APPROVED order as sent and mails it to
// the vendor
func (s *Service) SendPurchaseOrder(tenantID, userID, poID uint, expectedVersion int) (*PurchaseOrder, error) {
	po, err := s.transitionOrder(tenantID, userID, poID, expectedVersion, POStatusSent)
	if err != nil {
		return nil, err
	}
	go s.dispatchOrderEmail(tenantID, po)
	return po, nil
}

// dispatchOrderEmail mails the order to the vendor. Runs after commit;
// the SENT status stands even when the mail bounces.
func (s *Service) dispatchOrderEmail(tenantID uint, po *PurchaseOrder) {
	var vendor catalog.Vendor
	if err := s.db.Where("id = ? AND tenant_id = ?", po.VendorID, tenantID).First(&vendor).Error; err != nil {
		log.Printf("Warning: failed to load vendor for order %s: %v", po.PONumber, err)
		return
	}
	if vendor.Email == "" {
		log.Printf("Warning: vendor %s has no email, order %s not dispatched", vendor.Code, po.PONumber)
		return
	}

	var products []catalog.Product
	if err := s.db.Where("id IN ? AND tenant_id = ?", productIDsFromItems(po.Items), tenantID).Find(&products).Error; err != nil {
		log.Printf("Warning: failed to load products for order %s: %v", po.PONumber, err)
		return
	}
	byID := make(map[uint]catalog.Product, len(products))
	for _, prod := range products {
		byID[prod.ID] = prod
	}

	lines := make([]email.PurchaseOrderItemLine, 0, len(po.Items))
	for _, item := range po.Items {
		prod := byID[item.ProductID]
		lines = append(lines, email.PurchaseOrderItemLine{
			ProductName: prod.Name,
			SKU:         prod.SKU,
			Quantity:    item.OrderedQty,
			UnitPrice:   item.UnitCost.String(),
		})
	}

	err := s.emailService.SendPurchaseOrderEmail(context.Background(), vendor.Email, email.PurchaseOrderDispatchData{
		OrderNumber: po.PONumber,
		VendorName:  vendor.Name,
		OrderDate:   po.CreatedAt.Format("2006-01-02"),
		TotalAmount: po.TotalAmount.String(),
		Items:       lines,
	})
	if err != nil {
		log.Printf("Warning: failed to mail order %s to vendor: %v", po.PONumber, err)
	}
}

// CancelPurchaseOrder cancels an order that has not received stock yet
func (s *Service) CancelPurchaseOrder(tenantID, userID, poID uint, expectedVersion int) (*PurchaseOrder, error) {
	return s.transitionOrder(tenantID, userID, poID, expectedVersion, POStatusCancelled)
}

// CreateGoodsReceipt records one receipt event: it validates the order,
// derives the receipt status from the rejection pattern, credits the
// ledger for every accepted quantity, and rolls the purchase order
// status forward by comparing cumulative accepted quantities across all
// sibling receipts against the ordered quantities.
func (s *Service) CreateGoodsReceipt(tenantID, userID uint, req *CreateGoodsReceiptRequest) (*GoodsReceipt, error) {
	for _, item := range req.Items {
		if item.QuantityRejected > item.QuantityReceived {
			return nil, apperror.DomainRulef(ErrCodeGRNInvalidQuantity,
				"rejected quantity %d exceeds received quantity %d for product %d",
				item.QuantityRejected, item.QuantityReceived, item.ProductID)
		}
	}

	var grn *GoodsReceipt
	err := s.locks.WithStoreLock(tenantID, req.StoreID, func() error {
		var lockErr error
		grn, lockErr = s.createGoodsReceipt(tenantID, userID, req)
		return lockErr
	})
	if err != nil {
		return nil, err
	}
	return grn, nil
}

// createGoodsReceipt runs the receipt transaction; the caller holds
// the store stock lock.
func (s *Service) createGoodsReceipt(tenantID, userID uint, req *CreateGoodsReceiptRequest) (*GoodsReceipt, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var po PurchaseOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", req.PurchaseOrderID, tenantID).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodePONotFound, "purchase order not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	if !po.CanReceiveAgainst() {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodePOInvalidStatus,
			fmt.Sprintf("cannot receive against a %s purchase order", po.Status))
	}

	if err := s.validateStore(tx, tenantID, req.StoreID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.validateProducts(tx, tenantID, productIDsFromReceipt(req.Items)); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	receivedDate := now
	if req.ReceivedDate != nil {
		receivedDate = *req.ReceivedDate
	}

	grnNumber, err := s.sequences.Next(tx, tenantID, sequence.PrefixGoodsReceipt, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	items := make([]GoodsReceiptItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, GoodsReceiptItem{
			ProductID:         item.ProductID,
			BatchNumber:       item.BatchNumber,
			ManufacturingDate: item.ManufacturingDate,
			ExpiryDate:        item.ExpiryDate,
			QuantityReceived:  item.QuantityReceived,
			QuantityRejected:  item.QuantityRejected,
			UnitCost:          item.UnitCost,
		})
	}

	grn := GoodsReceipt{
		TenantID:            tenantID,
		GRNNumber:           grnNumber,
		PurchaseOrderID:     po.ID,
		StoreID:             req.StoreID,
		VendorInvoiceNumber: req.VendorInvoiceNumber,
		ReceivedDate:        receivedDate,
		Status:              deriveReceiptStatus(items),
		Version:             1,
		Notes:               req.Notes,
		CreatedBy:           userID,
	}
	if err := tx.Create(&grn).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create goods receipt: %w", err)
	}

	for i := range items {
		items[i].GoodsReceiptID = grn.ID
		if err := tx.Create(&items[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create goods receipt item: %w", err)
		}

		accepted := items[i].AcceptedQuantity()
		if accepted <= 0 {
			continue
		}
		entry := inventory.StockLedgerEntry{
			TenantID:        tenantID,
			StoreID:         req.StoreID,
			ProductID:       items[i].ProductID,
			BatchNumber:     items[i].BatchNumber,
			ExpiryDate:      items[i].ExpiryDate,
			TransactionType: inventory.TransactionTypeGRNIn,
			QuantityChange:  accepted,
			ReferenceNumber: grnNumber,
			Notes:           fmt.Sprintf("goods receipt against %s", po.PONumber),
			CreatedBy:       userID,
		}
		if err := s.inventory.Append(tx, &entry); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := s.rollupOrderStatus(tx, &po, userID); err != nil {
		tx.Rollback()
		return nil, err
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionReceive, "GOODS_RECEIPT", grn.ID, map[string]interface{}{
		"grn_number": grn.GRNNumber,
		"po_number":  po.PONumber,
		"status":     grn.Status,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit goods receipt transaction: %w", err)
	}
	return s.GetGoodsReceipt(tenantID, grn.ID)
}

// GetPurchaseOrder retrieves a single purchase order with its items
func (s *Service) GetPurchaseOrder(tenantID, poID uint) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.db.
		Preload("Items").
		Where("id = ? AND tenant_id = ?", poID, tenantID).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodePONotFound, "purchase order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase order: %w", err)
	}
	return &po, nil
}

// GetGoodsReceipt retrieves a single goods receipt with its items
func (s *Service) GetGoodsReceipt(tenantID, grnID uint) (*GoodsReceipt, error) {
	var grn GoodsReceipt
	err := s.db.
		Preload("Items").
		Where("id = ? AND tenant_id = ?", grnID, tenantID).
		First(&grn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeGRNNotFound, "goods receipt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve goods receipt: %w", err)
	}
	return &grn, nil
}

// ReceiptsForOrder returns every goods receipt raised against an order
func (s *Service) ReceiptsForOrder(tenantID, poID uint) ([]GoodsReceipt, error) {
	var grns []GoodsReceipt
	err := s.db.
		Preload("Items").
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, poID).
		Order("id ASC").
		Find(&grns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load goods receipts: %w", err)
	}
	return grns, nil
}

// Private helper methods

func (s *Service) validateStore(tx *gorm.DB, tenantID, storeID uint) error {
	var store catalog.Store
	err := tx.Where("id = ? AND tenant_id = ?", storeID, tenantID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(ErrCodeStoreNotFound, "store not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	if !store.IsOperational() {
		return apperror.InvalidState(ErrCodeStoreInactive, "store is not active")
	}
	return nil
}

func (s *Service) validateProducts(tx *gorm.DB, tenantID uint, ids []uint) error {
	var count int64
	if err := tx.Model(&catalog.Product{}).
		Where("id IN ? AND tenant_id = ?", ids, tenantID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	if count != int64(len(ids)) {
		return apperror.NotFound(ErrCodeProductNotFound, "one or more products not found")
	}
	return nil
}

// transitionOrder moves a purchase order through its lifecycle with an
// optimistic version guard
func (s *Service) transitionOrder(tenantID, userID, poID uint, expectedVersion int, next POStatus) (*PurchaseOrder, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var po PurchaseOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", poID, tenantID).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperror.NotFound(ErrCodePONotFound, "purchase order not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}

	if !po.Status.CanTransitionTo(next) {
		tx.Rollback()
		return nil, apperror.InvalidState(ErrCodePOInvalidStatus,
			fmt.Sprintf("purchase order cannot move from %s to %s", po.Status, next))
	}
	if po.Version != expectedVersion {
		tx.Rollback()
		return nil, apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("purchase order version is %d, expected %d", po.Version, expectedVersion))
	}

	result := tx.Model(&PurchaseOrder{}).
		Where("id = ? AND version = ?", po.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":     next,
			"version":    expectedVersion + 1,
			"updated_by": userID,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update purchase order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("purchase order was modified concurrently, expected version %d", expectedVersion))
	}

	err = s.audit.Record(tx, tenantID, userID, audit.ActionUpdate, "PURCHASE_ORDER", po.ID, map[string]interface{}{
		"po_number": po.PONumber,
		"from":      po.Status,
		"to":        next,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit purchase order transaction: %w", err)
	}
	return s.GetPurchaseOrder(tenantID, poID)
}

// acceptedRow is one product's cumulative accepted quantity across all
// receipts for a purchase order
type acceptedRow struct {
	ProductID uint
	Accepted  int
}

// rollupOrderStatus recomputes the order's fulfillment status from
// cumulative accepted quantities across all receipts, the one just
// created included
func (s *Service) rollupOrderStatus(tx *gorm.DB, po *PurchaseOrder, userID uint) error {
	var poItems []PurchaseOrderItem
	if err := tx.Where("purchase_order_id = ?", po.ID).Find(&poItems).Error; err != nil {
		return fmt.Errorf("failed to load purchase order items: %w", err)
	}

	var rows []acceptedRow
	err := tx.Table("goods_receipt_items").
		Select("goods_receipt_items.product_id, SUM(goods_receipt_items.quantity_received - goods_receipt_items.quantity_rejected) AS accepted").
		Joins("JOIN goods_receipts ON goods_receipts.id = goods_receipt_items.goods_receipt_id").
		Where("goods_receipts.purchase_order_id = ?", po.ID).
		Group("goods_receipt_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to sum accepted quantities: %w", err)
	}

	accepted := make(map[uint]int, len(rows))
	for _, row := range rows {
		accepted[row.ProductID] = row.Accepted
	}

	next, changed := rollupStatus(poItems, accepted)
	if !changed || next == po.Status {
		return nil
	}
	if !po.Status.CanTransitionTo(next) {
		return nil
	}

	result := tx.Model(&PurchaseOrder{}).
		Where("id = ? AND version = ?", po.ID, po.Version).
		Updates(map[string]interface{}{
			"status":     next,
			"version":    po.Version + 1,
			"updated_by": userID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to roll up purchase order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict(ErrCodeVersionConflict,
			fmt.Sprintf("purchase order was modified concurrently, expected version %d", po.Version))
	}

	err = s.audit.Record(tx, po.TenantID, userID, audit.ActionUpdate, "PURCHASE_ORDER", po.ID, map[string]interface{}{
		"po_number": po.PONumber,
		"from":      po.Status,
		"to":        next,
	})
	if err != nil {
		return err
	}

	po.Status = next
	po.Version++
	return nil
}

// deriveReceiptStatus derives a receipt's status from its rejection
// pattern: REJECTED when nothing was accepted, PARTIAL when something
// was rejected but not everything, RECEIVED otherwise.
func deriveReceiptStatus(items []GoodsReceiptItem) ReceiptStatus {
	anyAccepted := false
	anyRejected := false
	for _, item := range items {
		if item.AcceptedQuantity() > 0 {
			anyAccepted = true
		}
		if item.QuantityRejected > 0 {
			anyRejected = true
		}
	}
	switch {
	case !anyAccepted:
		return ReceiptStatusRejected
	case anyRejected:
		return ReceiptStatusPartial
	default:
		return ReceiptStatusReceived
	}
}

// rollupStatus compares cumulative accepted quantities against ordered
// quantities. It reports RECEIVED when every line is fully covered,
// PARTIAL when anything has arrived, and no change otherwise.
func rollupStatus(items []PurchaseOrderItem, accepted map[uint]int) (POStatus, bool) {
	if len(items) == 0 {
		return "", false
	}

	allCovered := true
	anyAccepted := false
	for _, item := range items {
		got := accepted[item.ProductID]
		if got > 0 {
			anyAccepted = true
		}
		if got < item.OrderedQty {
			allCovered = false
		}
	}

	switch {
	case allCovered:
		return POStatusReceived, true
	case anyAccepted:
		return POStatusPartial, true
	default:
		return "", false
	}
}

func productIDsFromOrder(items []CreatePurchaseOrderItemRequest) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func productIDsFromReceipt(items []GoodsReceiptItemRequest) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func productIDsFromItems(items []PurchaseOrderItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
