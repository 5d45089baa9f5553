// internal/domain/inventory/service.go
package inventory

import (
	"fmt"
	"time"

	"github.com/your-org/hospital-backend/internal/config"
	"gorm.io/gorm"
)

// Service owns the stock ledger and the queries derived from it
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// LEDGER

// Append writes one immutable ledger entry inside the caller's
// transaction. The caller owns sign and magnitude correctness.
func (s *Service) Append(tx *gorm.DB, entry *StockLedgerEntry) error {
	if entry.QuantityChange == 0 {
		return fmt.Errorf("ledger entry quantity change must not be zero")
	}
	if entry.BatchNumber == "" {
		return fmt.Errorf("ledger entry batch number is required")
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Balance returns quantity-on-hand for one (store, product, batch)
func (s *Service) Balance(tenantID, storeID, productID uint, batchNumber string) (int, error) {
	var total int64
	err := s.db.Model(&StockLedgerEntry{}).
		Where("tenant_id = ? AND store_id = ? AND product_id = ? AND batch_number = ?",
			tenantID, storeID, productID, batchNumber).
		Select("COALESCE(SUM(quantity_change), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute batch balance: %w", err)
	}
	return int(total), nil
}

// ProductBalance returns quantity-on-hand for a product across all batches
func (s *Service) ProductBalance(tenantID, storeID, productID uint) (int, error) {
	var total int64
	err := s.db.Model(&StockLedgerEntry{}).
		Where("tenant_id = ? AND store_id = ? AND product_id = ?", tenantID, storeID, productID).
		Select("COALESCE(SUM(quantity_change), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute product balance: %w", err)
	}
	return int(total), nil
}

// BatchStocks returns the per-batch balances for a product at a store,
// positive batches only, in FIFO consumption order
func (s *Service) BatchStocks(tenantID, storeID, productID uint) ([]BatchStock, error) {
	var entries []StockLedgerEntry
	err := s.db.
		Where("tenant_id = ? AND store_id = ? AND product_id = ?", tenantID, storeID, productID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	batches := groupBatchStocks(entries)
	sortBatchesFIFO(batches)
	return batches, nil
}

// EntriesByReference returns all ledger entries carrying a reference
// number, oldest first
func (s *Service) EntriesByReference(tenantID uint, referenceNumber string) ([]StockLedgerEntry, error) {
	var entries []StockLedgerEntry
	err := s.db.
		Where("tenant_id = ? AND reference_number = ?", tenantID, referenceNumber).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	return entries, nil
}

// STOCK REPORTS

// StoreStock summarizes on-hand quantity per product at a store
func (s *Service) StoreStock(tenantID, storeID uint) ([]ProductStock, error) {
	var rows []ProductStock
	err := s.db.Model(&StockLedgerEntry{}).
		Select("stock_ledger_entries.product_id, products.name AS product_name, products.sku, SUM(stock_ledger_entries.quantity_change) AS quantity_on_hand").
		Joins("JOIN products ON products.id = stock_ledger_entries.product_id").
		Where("stock_ledger_entries.tenant_id = ? AND stock_ledger_entries.store_id = ?", tenantID, storeID).
		Group("stock_ledger_entries.product_id, products.name, products.sku").
		Having("SUM(stock_ledger_entries.quantity_change) <> 0").
		Order("products.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build store stock report: %w", err)
	}
	return rows, nil
}

// LowStock lists reorder-watch products whose on-hand quantity has
// fallen to or below the watch threshold
func (s *Service) LowStock(tenantID, storeID uint) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := s.db.Table("reorder_watches").
		Select("reorder_watches.product_id, products.name AS product_name, products.sku, COALESCE(SUM(stock_ledger_entries.quantity_change), 0) AS quantity_on_hand, reorder_watches.reorder_level").
		Joins("JOIN products ON products.id = reorder_watches.product_id").
		Joins("LEFT JOIN stock_ledger_entries ON stock_ledger_entries.product_id = reorder_watches.product_id AND stock_ledger_entries.store_id = reorder_watches.store_id AND stock_ledger_entries.tenant_id = reorder_watches.tenant_id").
		Where("reorder_watches.tenant_id = ? AND reorder_watches.store_id = ?", tenantID, storeID).
		Group("reorder_watches.product_id, products.name, products.sku, reorder_watches.reorder_level").
		Having("COALESCE(SUM(stock_ledger_entries.quantity_change), 0) <= reorder_watches.reorder_level").
		Order("products.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build low stock report: %w", err)
	}
	return rows, nil
}

// ExpiringBatchRow is one batch nearing expiry with stock remaining
type ExpiringBatchRow struct {
	ProductID      uint       `json:"product_id"`
	ProductName    string     `json:"product_name"`
	BatchNumber    string     `json:"batch_number"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	QuantityOnHand int        `json:"quantity_on_hand"`
}

// ExpiringBatches lists batches expiring within the configured warning
// window that still hold stock
func (s *Service) ExpiringBatches(tenantID, storeID uint) ([]ExpiringBatchRow, error) {
	horizon := time.Now().AddDate(0, 0, s.config.Pharmacy.ExpiryWarningDays)

	var rows []ExpiringBatchRow
	err := s.db.Model(&StockLedgerEntry{}).
		Select("stock_ledger_entries.product_id, products.name AS product_name, stock_ledger_entries.batch_number, MIN(stock_ledger_entries.expiry_date) AS expiry_date, SUM(stock_ledger_entries.quantity_change) AS quantity_on_hand").
		Joins("JOIN products ON products.id = stock_ledger_entries.product_id").
		Where("stock_ledger_entries.tenant_id = ? AND stock_ledger_entries.store_id = ? AND stock_ledger_entries.expiry_date IS NOT NULL AND stock_ledger_entries.expiry_date <= ?",
			tenantID, storeID, horizon).
		Group("stock_ledger_entries.product_id, products.name, stock_ledger_entries.batch_number").
		Having("SUM(stock_ledger_entries.quantity_change) > 0").
		Order("expiry_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build expiring stock report: %w", err)
	}
	return rows, nil
}
