// internal/domain/inventory/allocator.go
package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCodeInsufficientStock is returned when on-hand stock cannot cover
// an allocation request
const ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"

// Allocate consumes stock for one product earliest-expiry-first inside
// the caller's transaction. It locks the product's ledger rows, plans
// the batch splits, then appends one SALE_OUT entry per consumed batch.
// On insufficient stock it returns an error and writes nothing, so the
// caller's rollback leaves the ledger untouched.
func (s *Service) Allocate(tx *gorm.DB, req AllocationRequest) ([]Allocation, error) {
	if req.RequiredQty <= 0 {
		return nil, fmt.Errorf("allocation quantity must be positive, got %d", req.RequiredQty)
	}

	candidates, err := s.lockBatchCandidates(tx, req.TenantID, req.StoreID, req.ProductID)
	if err != nil {
		return nil, err
	}

	plan, err := planAllocation(candidates, req.RequiredQty)
	if err != nil {
		return nil, err
	}

	allocations := make([]Allocation, 0, len(plan))
	for _, take := range plan {
		entry := StockLedgerEntry{
			TenantID:        req.TenantID,
			StoreID:         req.StoreID,
			ProductID:       req.ProductID,
			BatchNumber:     take.BatchNumber,
			ExpiryDate:      take.ExpiryDate,
			TransactionType: TransactionTypeSaleOut,
			QuantityChange:  -take.Quantity,
			ReferenceNumber: req.ReferenceNumber,
			CreatedBy:       req.UserID,
		}
		if err := s.Append(tx, &entry); err != nil {
			return nil, err
		}
		allocations = append(allocations, Allocation{
			BatchNumber:   take.BatchNumber,
			ExpiryDate:    take.ExpiryDate,
			AllocatedQty:  take.Quantity,
			LedgerEntryID: entry.ID,
		})
	}
	return allocations, nil
}

// lockBatchCandidates loads every ledger row for the product under
// SELECT FOR UPDATE and folds them into per-batch balances. Locking the
// raw rows serializes concurrent allocators on the same product; the
// aggregation itself cannot be locked.
func (s *Service) lockBatchCandidates(tx *gorm.DB, tenantID, storeID, productID uint) ([]BatchStock, error) {
	var entries []StockLedgerEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND store_id = ? AND product_id = ?", tenantID, storeID, productID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger rows for allocation: %w", err)
	}
	batches := groupBatchStocks(entries)
	sortBatchesFIFO(batches)
	return batches, nil
}

// batchTake is one planned draw against a single batch
type batchTake struct {
	BatchNumber string
	ExpiryDate  *time.Time
	Quantity    int
}

// groupBatchStocks folds ledger entries into per-batch balances. The
// entries must be ordered by id so FirstEntryID ties break in receipt
// order. Expiry is taken from the first entry that carries one.
func groupBatchStocks(entries []StockLedgerEntry) []BatchStock {
	index := make(map[string]int)
	batches := make([]BatchStock, 0)
	for _, e := range entries {
		i, ok := index[e.BatchNumber]
		if !ok {
			index[e.BatchNumber] = len(batches)
			batches = append(batches, BatchStock{
				BatchNumber:  e.BatchNumber,
				ExpiryDate:   e.ExpiryDate,
				FirstEntryID: e.ID,
			})
			i = len(batches) - 1
		}
		if batches[i].ExpiryDate == nil && e.ExpiryDate != nil {
			batches[i].ExpiryDate = e.ExpiryDate
		}
		batches[i].QuantityOnHand += e.QuantityChange
	}
	return batches
}

// sortBatchesFIFO orders batches earliest expiry first. Batches without
// an expiry date sort last, and equal expiries fall back to receipt
// order.
func sortBatchesFIFO(batches []BatchStock) {
	sort.SliceStable(batches, func(a, b int) bool {
		ea, eb := batches[a].sortExpiry(), batches[b].sortExpiry()
		if ea.Equal(eb) {
			return batches[a].FirstEntryID < batches[b].FirstEntryID
		}
		return ea.Before(eb)
	})
}

// planAllocation walks FIFO-ordered batches and decides how much to
// draw from each. Batches with no positive balance are skipped. When
// total stock cannot cover the requirement it returns INSUFFICIENT_STOCK
// and no plan.
func planAllocation(batches []BatchStock, requiredQty int) ([]batchTake, error) {
	available := 0
	for _, b := range batches {
		if b.QuantityOnHand > 0 {
			available += b.QuantityOnHand
		}
	}
	if available < requiredQty {
		return nil, apperror.DomainRulef(ErrCodeInsufficientStock,
			"insufficient stock: available %d, requested %d", available, requiredQty)
	}

	plan := make([]batchTake, 0)
	remaining := requiredQty
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.QuantityOnHand <= 0 {
			continue
		}
		take := b.QuantityOnHand
		if take > remaining {
			take = remaining
		}
		plan = append(plan, batchTake{
			BatchNumber: b.BatchNumber,
			ExpiryDate:  b.ExpiryDate,
			Quantity:    take,
		})
		remaining -= take
	}
	return plan, nil
}
