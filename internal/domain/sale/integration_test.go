// internal/domain/sale/integration_test.go
//
// End-to-end exercises against a real postgres instance. Set
// PHARMACY_TEST_DATABASE_URL to run them, for example:
//
//	PHARMACY_TEST_DATABASE_URL="host=localhost user=postgres dbname=pharmacy_test sslmode=disable"
package sale

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/catalog"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/procurement"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tenantSeq uint32

// uniqueTenant isolates each test in its own tenant so runs never
// interfere with each other or with leftovers from earlier runs
func uniqueTenant() uint {
	return uint(time.Now().UnixNano()%900_000_000) + uint(atomic.AddUint32(&tenantSeq, 1))
}

func openIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("PHARMACY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PHARMACY_TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&catalog.Store{},
		&catalog.Product{},
		&catalog.Vendor{},
		&patient.Patient{},
		&patient.Visit{},
		&user.User{},
		&inventory.StockLedgerEntry{},
		&Sale{},
		&SaleItem{},
		&SaleStatusHistory{},
		&billing.Invoice{},
		&billing.InvoiceItem{},
		&billing.Payment{},
		&billing.CreditLedgerEntry{},
		&procurement.PurchaseOrder{},
		&procurement.PurchaseOrderItem{},
		&procurement.GoodsReceipt{},
		&procurement.GoodsReceiptItem{},
		&sequence.DocumentSequence{},
		&audit.Log{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func integrationConfig() *config.Config {
	return &config.Config{
		Pharmacy: config.PharmacyConfig{
			DiscountApprovalThreshold: decimal.NewFromInt(10),
			PendingBatchMarker:        "PENDING",
			DefaultCreditLimit:        decimal.NewFromInt(5000),
			ExpiryWarningDays:         90,
			StockLockTTL:              5 * time.Second,
		},
	}
}

type saleFixtures struct {
	tenantID uint
	store    catalog.Store
	product  catalog.Product
	patient  patient.Patient
	visit    patient.Visit
}

func seedSaleFixtures(t *testing.T, db *gorm.DB) saleFixtures {
	t.Helper()

	f := saleFixtures{tenantID: uniqueTenant()}

	f.store = catalog.Store{
		TenantID: f.tenantID,
		Code:     "MAIN",
		Name:     "Main Pharmacy",
		Type:     catalog.StoreTypePharmacy,
		IsActive: true,
	}
	if err := db.Create(&f.store).Error; err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	f.product = catalog.Product{
		TenantID: f.tenantID,
		SKU:      "PARA-500",
		Name:     "Paracetamol 500mg",
		MRP:      dec("10.00"),
		GSTRate:  decimal.Zero,
		IsActive: true,
	}
	if err := db.Create(&f.product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	f.patient = patient.Patient{
		TenantID:  f.tenantID,
		MRN:       "MRN-IT-1",
		FirstName: "Asha",
		LastName:  "Nair",
		Status:    patient.PatientStatusActive,
	}
	if err := db.Create(&f.patient).Error; err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}

	f.visit = patient.Visit{
		TenantID:    f.tenantID,
		PatientID:   f.patient.ID,
		VisitNumber: "VIS-IT-1",
		Type:        patient.VisitTypeOP,
		AdmittedAt:  time.Now().UTC(),
	}
	if err := db.Create(&f.visit).Error; err != nil {
		t.Fatalf("failed to seed visit: %v", err)
	}

	return f
}

func appendBatch(t *testing.T, db *gorm.DB, inv *inventory.Service, f saleFixtures, batch string, qty int, expiry time.Time) {
	t.Helper()
	err := inv.Append(db, &inventory.StockLedgerEntry{
		TenantID:        f.tenantID,
		StoreID:         f.store.ID,
		ProductID:       f.product.ID,
		BatchNumber:     batch,
		ExpiryDate:      &expiry,
		TransactionType: inventory.TransactionTypeGRNIn,
		QuantityChange:  qty,
		ReferenceNumber: "GRN-IT-1",
		CreatedBy:       1,
	})
	if err != nil {
		t.Fatalf("failed to seed batch %s: %v", batch, err)
	}
}

func TestCashSaleAllocatesOldestBatchesFirst(t *testing.T) {
	db := openIntegrationDB(t)
	cfg := integrationConfig()
	inv := inventory.NewService(db, cfg)
	svc := NewService(db, cfg, nil)

	f := seedSaleFixtures(t, db)
	appendBatch(t, db, inv, f, "B-EARLY", 30, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	appendBatch(t, db, inv, f, "B-LATE", 20, time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC))

	created, err := svc.Create(f.tenantID, 1, &CreateSaleRequest{
		StoreID:   f.store.ID,
		PatientID: f.patient.ID,
		VisitID:   &f.visit.ID,
		Items: []CreateSaleItemRequest{
			{ProductID: f.product.ID, Quantity: 40},
		},
	})
	if err != nil {
		t.Fatalf("failed to create sale: %v", err)
	}

	if created.Status != StatusCompleted {
		t.Fatalf("sale status = %s, want %s", created.Status, StatusCompleted)
	}
	if created.SaleNumber == "" {
		t.Error("sale number was not assigned")
	}
	if !created.NetAmount.Equal(dec("400.00")) {
		t.Errorf("net amount = %s, want 400.00", created.NetAmount)
	}

	// 40 units against 30+20 must split across both batches, oldest
	// expiry first
	qtyByBatch := map[string]int{}
	for _, item := range created.Items {
		qtyByBatch[item.BatchNumber] += item.Quantity
		if item.LedgerEntryID == nil {
			t.Errorf("item for batch %s has no ledger linkage", item.BatchNumber)
		}
	}
	if qtyByBatch["B-EARLY"] != 30 || qtyByBatch["B-LATE"] != 10 {
		t.Errorf("allocation split = %v, want B-EARLY:30 B-LATE:10", qtyByBatch)
	}

	earlyBalance, err := inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B-EARLY")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	lateBalance, err := inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B-LATE")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if earlyBalance != 0 || lateBalance != 10 {
		t.Errorf("post-sale balances = %d/%d, want 0/10", earlyBalance, lateBalance)
	}

	entries, err := inv.EntriesByReference(f.tenantID, created.SaleNumber)
	if err != nil {
		t.Fatalf("failed to read ledger entries: %v", err)
	}
	outTotal := 0
	for _, entry := range entries {
		if entry.TransactionType != inventory.TransactionTypeSaleOut {
			t.Errorf("unexpected %s entry under sale reference", entry.TransactionType)
		}
		outTotal += entry.QuantityChange
	}
	if outTotal != -40 {
		t.Errorf("ledger delta under sale = %d, want -40", outTotal)
	}

	// Visit-linked cash sale settles its invoice immediately
	if created.InvoiceID == nil {
		t.Fatal("visit-linked sale has no invoice")
	}
	var invTotal billing.Invoice
	if err := db.Where("id = ? AND tenant_id = ?", *created.InvoiceID, f.tenantID).First(&invTotal).Error; err != nil {
		t.Fatalf("failed to load invoice: %v", err)
	}
	if invTotal.Status != billing.InvoiceStatusFinal {
		t.Errorf("invoice status = %s, want %s", invTotal.Status, billing.InvoiceStatusFinal)
	}
	if !invTotal.PaidAmount.Equal(created.NetAmount) || !invTotal.OutstandingAmount.IsZero() {
		t.Errorf("invoice paid/outstanding = %s/%s, want %s/0",
			invTotal.PaidAmount, invTotal.OutstandingAmount, created.NetAmount)
	}
}

func TestInsufficientStockLeavesNoTrace(t *testing.T) {
	db := openIntegrationDB(t)
	cfg := integrationConfig()
	inv := inventory.NewService(db, cfg)
	svc := NewService(db, cfg, nil)

	f := seedSaleFixtures(t, db)
	appendBatch(t, db, inv, f, "B-SHORT", 5, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC))

	_, err := svc.Create(f.tenantID, 1, &CreateSaleRequest{
		StoreID:   f.store.ID,
		PatientID: f.patient.ID,
		Items: []CreateSaleItemRequest{
			{ProductID: f.product.ID, Quantity: 6},
		},
	})
	if !apperror.HasCode(err, inventory.ErrCodeInsufficientStock) {
		t.Fatalf("expected %s, got %v", inventory.ErrCodeInsufficientStock, err)
	}

	// The whole transaction must roll back: no sale row, stock untouched
	var count int64
	if err := db.Model(&Sale{}).Where("tenant_id = ?", f.tenantID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sales: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d persisted sales after failed create, want 0", count)
	}

	balance, err := inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B-SHORT")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance after failed sale = %d, want 5", balance)
	}
}

func TestDiscountApprovalRoundTrip(t *testing.T) {
	db := openIntegrationDB(t)
	cfg := integrationConfig()
	inv := inventory.NewService(db, cfg)
	svc := NewService(db, cfg, nil)

	f := seedSaleFixtures(t, db)
	appendBatch(t, db, inv, f, "B-APPROVE", 50, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC))

	// 15% discount on a 10% threshold parks the sale
	created, err := svc.Create(f.tenantID, 1, &CreateSaleRequest{
		StoreID:   f.store.ID,
		PatientID: f.patient.ID,
		Items: []CreateSaleItemRequest{
			{ProductID: f.product.ID, Quantity: 10, DiscountAmount: dec("15.00")},
		},
	})
	if err != nil {
		t.Fatalf("failed to create sale: %v", err)
	}
	if created.Status != StatusPendingApproval {
		t.Fatalf("sale status = %s, want %s", created.Status, StatusPendingApproval)
	}
	for _, item := range created.Items {
		if item.BatchNumber != cfg.Pharmacy.PendingBatchMarker {
			t.Errorf("pending item batch = %s, want marker %s", item.BatchNumber, cfg.Pharmacy.PendingBatchMarker)
		}
		if item.LedgerEntryID != nil {
			t.Error("pending item must not be ledger-linked")
		}
	}
	if created.InvoiceID != nil {
		t.Error("pending sale must not be invoiced")
	}

	entries, err := inv.EntriesByReference(f.tenantID, created.SaleNumber)
	if err != nil {
		t.Fatalf("failed to read ledger entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("pending sale wrote %d ledger entries, want 0", len(entries))
	}

	// Stale version must be rejected without touching the sale
	if _, err := svc.Approve(f.tenantID, 2, created.ID, 7); !apperror.HasCode(err, ErrCodeVersionConflict) {
		t.Fatalf("expected %s for stale version, got %v", ErrCodeVersionConflict, err)
	}

	approved, err := svc.Approve(f.tenantID, 2, created.ID, created.Version)
	if err != nil {
		t.Fatalf("failed to approve sale: %v", err)
	}
	if approved.Status != StatusCompleted {
		t.Fatalf("approved sale status = %s, want %s", approved.Status, StatusCompleted)
	}
	if approved.Version != created.Version+1 {
		t.Errorf("approved version = %d, want %d", approved.Version, created.Version+1)
	}

	balance, err := inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B-APPROVE")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if balance != 40 {
		t.Errorf("balance after approval = %d, want 40", balance)
	}

	// Cancelling the completed sale writes compensating entries
	if err := svc.Cancel(f.tenantID, 2, created.ID, approved.Version, "patient changed mind"); err != nil {
		t.Fatalf("failed to cancel sale: %v", err)
	}
	balance, err = inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B-APPROVE")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if balance != 50 {
		t.Errorf("balance after cancellation = %d, want 50", balance)
	}

	entries, err = inv.EntriesByReference(f.tenantID, created.SaleNumber)
	if err != nil {
		t.Fatalf("failed to read ledger entries: %v", err)
	}
	var reversals int
	for _, entry := range entries {
		if entry.TransactionType == inventory.TransactionTypeAdjustment && entry.QuantityChange > 0 {
			reversals += entry.QuantityChange
		}
	}
	if reversals != 10 {
		t.Errorf("reversal quantity = %d, want 10", reversals)
	}
}

func TestNarcoticSaleRequiresPrescription(t *testing.T) {
	db := openIntegrationDB(t)
	cfg := integrationConfig()
	inv := inventory.NewService(db, cfg)
	svc := NewService(db, cfg, nil)

	f := seedSaleFixtures(t, db)
	narcotic := catalog.Product{
		TenantID:   f.tenantID,
		SKU:        "MORPH-10",
		Name:       "Morphine 10mg",
		MRP:        dec("85.00"),
		GSTRate:    decimal.Zero,
		IsNarcotic: true,
		IsActive:   true,
	}
	if err := db.Create(&narcotic).Error; err != nil {
		t.Fatalf("failed to seed narcotic product: %v", err)
	}

	expiry := time.Date(2027, 5, 31, 0, 0, 0, 0, time.UTC)
	err := inv.Append(db, &inventory.StockLedgerEntry{
		TenantID:        f.tenantID,
		StoreID:         f.store.ID,
		ProductID:       narcotic.ID,
		BatchNumber:     "B-NARC",
		ExpiryDate:      &expiry,
		TransactionType: inventory.TransactionTypeGRNIn,
		QuantityChange:  10,
		ReferenceNumber: "GRN-NARC-1",
		CreatedBy:       1,
	})
	if err != nil {
		t.Fatalf("failed to seed narcotic stock: %v", err)
	}

	_, err = svc.Create(f.tenantID, 1, &CreateSaleRequest{
		StoreID:   f.store.ID,
		PatientID: f.patient.ID,
		Items: []CreateSaleItemRequest{
			{ProductID: narcotic.ID, Quantity: 1},
		},
	})
	if !apperror.HasCode(err, ErrCodeNarcoticRequiresPrescription) {
		t.Fatalf("expected %s, got %v", ErrCodeNarcoticRequiresPrescription, err)
	}

	// The rejected sale must leave nothing behind
	var count int64
	if err := db.Model(&Sale{}).Where("tenant_id = ?", f.tenantID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sales: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d persisted sales after narcotic rejection, want 0", count)
	}
	balance, err := inv.Balance(f.tenantID, f.store.ID, narcotic.ID, "B-NARC")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if balance != 10 {
		t.Errorf("narcotic stock = %d, want 10", balance)
	}
}

// TestReceiveThenSellRoundTrip walks the whole flow: order stock from a
// vendor, receive it into the store, dispense part of it, and check the
// ledger tells the same story at every step.
func TestReceiveThenSellRoundTrip(t *testing.T) {
	db := openIntegrationDB(t)
	cfg := integrationConfig()
	inv := inventory.NewService(db, cfg)
	saleSvc := NewService(db, cfg, nil)
	procSvc := procurement.NewService(db, cfg, nil)

	f := seedSaleFixtures(t, db)
	vendor := catalog.Vendor{
		TenantID: f.tenantID,
		Code:     "ACME",
		Name:     "Acme Pharma Distributors",
		IsActive: true,
	}
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}

	po, err := procSvc.CreatePurchaseOrder(f.tenantID, 1, &procurement.CreatePurchaseOrderRequest{
		StoreID:  f.store.ID,
		VendorID: vendor.ID,
		Items: []procurement.CreatePurchaseOrderItemRequest{
			{ProductID: f.product.ID, Quantity: 50, UnitCost: dec("6.50")},
		},
	})
	if err != nil {
		t.Fatalf("failed to create purchase order: %v", err)
	}
	if _, err := procSvc.ApprovePurchaseOrder(f.tenantID, 1, po.ID, po.Version); err != nil {
		t.Fatalf("failed to approve purchase order: %v", err)
	}

	expiry := time.Now().UTC().AddDate(0, 0, 30)
	grn, err := procSvc.CreateGoodsReceipt(f.tenantID, 1, &procurement.CreateGoodsReceiptRequest{
		PurchaseOrderID: po.ID,
		StoreID:         f.store.ID,
		Items: []procurement.GoodsReceiptItemRequest{
			{ProductID: f.product.ID, BatchNumber: "B1", ExpiryDate: &expiry, QuantityReceived: 50, UnitCost: dec("6.50")},
		},
	})
	if err != nil {
		t.Fatalf("failed to receive stock: %v", err)
	}
	if grn.Status != procurement.ReceiptStatusReceived {
		t.Errorf("receipt status = %s, want %s", grn.Status, procurement.ReceiptStatusReceived)
	}

	rolled, err := procSvc.GetPurchaseOrder(f.tenantID, po.ID)
	if err != nil {
		t.Fatalf("failed to reload purchase order: %v", err)
	}
	if rolled.Status != procurement.POStatusReceived {
		t.Errorf("purchase order status = %s, want %s", rolled.Status, procurement.POStatusReceived)
	}

	// 20 units at MRP 10.00 with a 10.00 discount is 5%, safely under
	// the 10% approval threshold
	created, err := saleSvc.Create(f.tenantID, 1, &CreateSaleRequest{
		StoreID:   f.store.ID,
		PatientID: f.patient.ID,
		Items: []CreateSaleItemRequest{
			{ProductID: f.product.ID, Quantity: 20, DiscountAmount: dec("10.00")},
		},
	})
	if err != nil {
		t.Fatalf("failed to create sale: %v", err)
	}
	if created.Status != StatusCompleted {
		t.Fatalf("sale status = %s, want %s", created.Status, StatusCompleted)
	}
	if len(created.Items) != 1 {
		t.Fatalf("expected a single sale item, got %d", len(created.Items))
	}
	if created.Items[0].BatchNumber != "B1" || created.Items[0].Quantity != 20 {
		t.Errorf("sale item = %s/%d, want B1/20", created.Items[0].BatchNumber, created.Items[0].Quantity)
	}

	grnEntries, err := inv.EntriesByReference(f.tenantID, grn.GRNNumber)
	if err != nil {
		t.Fatalf("failed to read receipt entries: %v", err)
	}
	if len(grnEntries) != 1 || grnEntries[0].QuantityChange != 50 {
		t.Errorf("receipt ledger = %+v, want one +50 entry", grnEntries)
	}
	saleEntries, err := inv.EntriesByReference(f.tenantID, created.SaleNumber)
	if err != nil {
		t.Fatalf("failed to read sale entries: %v", err)
	}
	if len(saleEntries) != 1 || saleEntries[0].QuantityChange != -20 {
		t.Errorf("sale ledger = %+v, want one -20 entry", saleEntries)
	}

	balance, err := inv.Balance(f.tenantID, f.store.ID, f.product.ID, "B1")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if balance != 30 {
		t.Errorf("closing balance = %d, want 30", balance)
	}
}
