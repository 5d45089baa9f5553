// internal/domain/inventory/allocator_test.go
package inventory

import (
	"testing"
	"time"

	"github.com/your-org/hospital-backend/internal/domain/apperror"
)

func day(n int) *time.Time {
	t := time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestPlanAllocationEarliestExpiryFirst(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "B2", ExpiryDate: day(2), QuantityOnHand: 10, FirstEntryID: 2},
		{BatchNumber: "B1", ExpiryDate: day(1), QuantityOnHand: 5, FirstEntryID: 1},
	}
	sortBatchesFIFO(batches)

	plan, err := planAllocation(batches, 7)
	if err != nil {
		t.Fatalf("planAllocation failed: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(plan))
	}
	if plan[0].BatchNumber != "B1" || plan[0].Quantity != 5 {
		t.Errorf("first split = %s/%d, want B1/5", plan[0].BatchNumber, plan[0].Quantity)
	}
	if plan[1].BatchNumber != "B2" || plan[1].Quantity != 2 {
		t.Errorf("second split = %s/%d, want B2/2", plan[1].BatchNumber, plan[1].Quantity)
	}
}

func TestPlanAllocationExactQuantity(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "A", ExpiryDate: day(1), QuantityOnHand: 3, FirstEntryID: 1},
		{BatchNumber: "B", ExpiryDate: day(2), QuantityOnHand: 4, FirstEntryID: 2},
		{BatchNumber: "C", ExpiryDate: day(3), QuantityOnHand: 9, FirstEntryID: 3},
	}

	for _, required := range []int{1, 3, 7, 16} {
		plan, err := planAllocation(batches, required)
		if err != nil {
			t.Fatalf("planAllocation(%d) failed: %v", required, err)
		}
		total := 0
		for _, take := range plan {
			if take.Quantity <= 0 {
				t.Errorf("planAllocation(%d) produced non-positive take %d from %s", required, take.Quantity, take.BatchNumber)
			}
			total += take.Quantity
		}
		if total != required {
			t.Errorf("planAllocation(%d) allocated %d in total", required, total)
		}
	}
}

func TestPlanAllocationInsufficientStock(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "A", ExpiryDate: day(1), QuantityOnHand: 3, FirstEntryID: 1},
		{BatchNumber: "B", ExpiryDate: day(2), QuantityOnHand: 2, FirstEntryID: 2},
	}

	plan, err := planAllocation(batches, 6)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if plan != nil {
		t.Errorf("expected no plan on failure, got %v", plan)
	}
	if !apperror.HasCode(err, ErrCodeInsufficientStock) {
		t.Errorf("expected %s, got %v", ErrCodeInsufficientStock, err)
	}
	appErr, _ := apperror.FromError(err)
	if appErr.Message != "insufficient stock: available 5, requested 6" {
		t.Errorf("unexpected message: %q", appErr.Message)
	}
}

func TestPlanAllocationSkipsEmptyBatches(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "EMPTY", ExpiryDate: day(1), QuantityOnHand: 0, FirstEntryID: 1},
		{BatchNumber: "NEG", ExpiryDate: day(2), QuantityOnHand: -2, FirstEntryID: 2},
		{BatchNumber: "OK", ExpiryDate: day(3), QuantityOnHand: 8, FirstEntryID: 3},
	}

	plan, err := planAllocation(batches, 5)
	if err != nil {
		t.Fatalf("planAllocation failed: %v", err)
	}
	if len(plan) != 1 || plan[0].BatchNumber != "OK" || plan[0].Quantity != 5 {
		t.Fatalf("expected single 5-unit take from OK, got %v", plan)
	}
}

func TestSortBatchesFIFONilExpiryLast(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "NOEXP", ExpiryDate: nil, QuantityOnHand: 10, FirstEntryID: 1},
		{BatchNumber: "LATE", ExpiryDate: day(20), QuantityOnHand: 10, FirstEntryID: 2},
		{BatchNumber: "SOON", ExpiryDate: day(2), QuantityOnHand: 10, FirstEntryID: 3},
	}
	sortBatchesFIFO(batches)

	got := []string{batches[0].BatchNumber, batches[1].BatchNumber, batches[2].BatchNumber}
	want := []string{"SOON", "LATE", "NOEXP"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FIFO order = %v, want %v", got, want)
		}
	}
}

func TestSortBatchesFIFOEqualExpiryByReceipt(t *testing.T) {
	batches := []BatchStock{
		{BatchNumber: "SECOND", ExpiryDate: day(5), QuantityOnHand: 4, FirstEntryID: 9},
		{BatchNumber: "FIRST", ExpiryDate: day(5), QuantityOnHand: 4, FirstEntryID: 3},
	}
	sortBatchesFIFO(batches)

	if batches[0].BatchNumber != "FIRST" {
		t.Errorf("equal expiries should keep receipt order, got %s first", batches[0].BatchNumber)
	}
}

func TestGroupBatchStocks(t *testing.T) {
	entries := []StockLedgerEntry{
		{ID: 1, BatchNumber: "B1", ExpiryDate: day(10), TransactionType: TransactionTypeGRNIn, QuantityChange: 50},
		{ID: 2, BatchNumber: "B2", ExpiryDate: day(12), TransactionType: TransactionTypeGRNIn, QuantityChange: 30},
		{ID: 3, BatchNumber: "B1", TransactionType: TransactionTypeSaleOut, QuantityChange: -20},
		{ID: 4, BatchNumber: "B1", ExpiryDate: day(10), TransactionType: TransactionTypeReturnIn, QuantityChange: 5},
	}

	batches := groupBatchStocks(entries)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].BatchNumber != "B1" || batches[0].QuantityOnHand != 35 {
		t.Errorf("B1 balance = %d, want 35", batches[0].QuantityOnHand)
	}
	if batches[0].FirstEntryID != 1 {
		t.Errorf("B1 first entry = %d, want 1", batches[0].FirstEntryID)
	}
	if batches[0].ExpiryDate == nil || !batches[0].ExpiryDate.Equal(*day(10)) {
		t.Errorf("B1 expiry = %v, want %v", batches[0].ExpiryDate, day(10))
	}
	if batches[1].BatchNumber != "B2" || batches[1].QuantityOnHand != 30 {
		t.Errorf("B2 balance = %d, want 30", batches[1].QuantityOnHand)
	}
}

func TestGroupBatchStocksBackfillsExpiry(t *testing.T) {
	entries := []StockLedgerEntry{
		{ID: 1, BatchNumber: "B1", QuantityChange: -5},
		{ID: 2, BatchNumber: "B1", ExpiryDate: day(7), QuantityChange: 40},
	}

	batches := groupBatchStocks(entries)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].ExpiryDate == nil || !batches[0].ExpiryDate.Equal(*day(7)) {
		t.Errorf("expiry not backfilled from later entry: %v", batches[0].ExpiryDate)
	}
}
