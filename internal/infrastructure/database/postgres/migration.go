// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/catalog"
	"github.com/your-org/hospital-backend/internal/domain/inventory"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/prescription"
	"github.com/your-org/hospital-backend/internal/domain/procurement"
	"github.com/your-org/hospital-backend/internal/domain/returns"
	"github.com/your-org/hospital-backend/internal/domain/sale"
	"github.com/your-org/hospital-backend/internal/domain/sequence"
	"github.com/your-org/hospital-backend/internal/domain/upload"
	"github.com/your-org/hospital-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Tenancy and staff - base tables
		&user.Tenant{},
		&user.User{},

		// Catalog domain
		&catalog.DrugCategory{},
		&catalog.Store{},
		&catalog.Vendor{},
		&catalog.Product{},
		&catalog.ReorderWatch{},

		// Patient domain
		&patient.Patient{},
		&patient.Visit{},

		// Prescription domain
		&prescription.Prescription{},
		&prescription.PrescriptionItem{},

		// Stock ledger - append-only, everything stock references it
		&inventory.StockLedgerEntry{},

		// Billing domain
		&billing.Invoice{},
		&billing.InvoiceItem{},
		&billing.Payment{},
		&billing.CreditLedgerEntry{},

		// Sale domain - dependent tables
		&sale.Sale{},
		&sale.SaleItem{},
		&sale.SaleStatusHistory{},

		// Returns domain
		&returns.SaleReturn{},
		&returns.SaleReturnItem{},

		// Procurement domain
		&procurement.PurchaseOrder{},
		&procurement.PurchaseOrderItem{},
		&procurement.GoodsReceipt{},
		&procurement.GoodsReceiptItem{},

		// Document numbering
		&sequence.DocumentSequence{},

		// Audit trail
		&audit.Log{},

		// Attachments
		&upload.Attachment{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_tenant_role ON users(tenant_id, role)",
		"CREATE INDEX IF NOT EXISTS idx_users_tenant_active ON users(tenant_id, is_active)",

		// Stock ledger indexes - every balance is a SUM over these scopes
		"CREATE INDEX IF NOT EXISTS idx_stock_ledger_batch_scope ON stock_ledger_entries(tenant_id, store_id, product_id, batch_number)",
		"CREATE INDEX IF NOT EXISTS idx_stock_ledger_product_scope ON stock_ledger_entries(tenant_id, store_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_ledger_reference ON stock_ledger_entries(tenant_id, reference_number)",
		"CREATE INDEX IF NOT EXISTS idx_stock_ledger_expiry ON stock_ledger_entries(tenant_id, store_id, expiry_date)",
		"CREATE INDEX IF NOT EXISTS idx_stock_ledger_created_at ON stock_ledger_entries(created_at DESC)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_tenant_status ON sales(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_sales_tenant_store ON sales(tenant_id, store_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_tenant_patient ON sales(tenant_id, patient_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_sale_number ON sales(tenant_id, sale_number)",
		"CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_product ON sale_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_status_history_sale ON sale_status_history(sale_id, created_at DESC)",

		// Return indexes
		"CREATE INDEX IF NOT EXISTS idx_sale_returns_tenant_sale ON sale_returns(tenant_id, sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_returns_tenant_status ON sale_returns(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_sale_return_items_return ON sale_return_items(sale_return_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_return_items_sale_item ON sale_return_items(sale_item_id)",

		// Procurement indexes
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_tenant_status ON purchase_orders(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_tenant_vendor ON purchase_orders(tenant_id, vendor_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_po_number ON purchase_orders(tenant_id, po_number)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_order_items_po ON purchase_order_items(purchase_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_goods_receipts_tenant_po ON goods_receipts(tenant_id, purchase_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_goods_receipt_items_grn ON goods_receipt_items(goods_receipt_id)",

		// Billing indexes
		"CREATE INDEX IF NOT EXISTS idx_invoices_tenant_patient ON invoices(tenant_id, patient_id)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_invoice_number ON invoices(tenant_id, invoice_number)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_tenant_status ON invoices(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id)",
		"CREATE INDEX IF NOT EXISTS idx_credit_ledger_patient ON credit_ledger_entries(tenant_id, patient_id, id)",

		// Patient indexes
		"CREATE INDEX IF NOT EXISTS idx_patients_tenant_mrn ON patients(tenant_id, mrn)",
		"CREATE INDEX IF NOT EXISTS idx_patients_tenant_phone ON patients(tenant_id, phone)",
		"CREATE INDEX IF NOT EXISTS idx_visits_tenant_patient ON visits(tenant_id, patient_id)",
		"CREATE INDEX IF NOT EXISTS idx_visits_tenant_status ON visits(tenant_id, status)",

		// Prescription indexes
		"CREATE INDEX IF NOT EXISTS idx_prescriptions_tenant_patient ON prescriptions(tenant_id, patient_id)",
		"CREATE INDEX IF NOT EXISTS idx_prescriptions_tenant_status ON prescriptions(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_prescription_items_prescription ON prescription_items(prescription_id)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(tenant_id, entity_type, entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC)",

		// Attachment indexes
		"CREATE INDEX IF NOT EXISTS idx_attachments_entity ON attachments(tenant_id, entity_type, entity_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	tenant, err := m.seedTenant()
	if err != nil {
		return fmt.Errorf("failed to seed tenant: %w", err)
	}

	if err := m.seedAdminUser(tenant.ID); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedStores(tenant.ID); err != nil {
		return fmt.Errorf("failed to seed stores: %w", err)
	}

	if err := m.seedCategories(tenant.ID); err != nil {
		return fmt.Errorf("failed to seed drug categories: %w", err)
	}

	if err := m.seedDemoProducts(tenant.ID); err != nil {
		return fmt.Errorf("failed to seed demo products: %w", err)
	}

	if err := m.seedDemoVendor(tenant.ID); err != nil {
		return fmt.Errorf("failed to seed demo vendor: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedTenant creates the default hospital tenant
func (m *Migration) seedTenant() (*user.Tenant, error) {
	log.Println("🏥 Seeding default tenant...")

	var existing user.Tenant
	result := m.db.Where("code = ?", "CITYCARE").First(&existing)
	if result.Error == nil {
		log.Printf("⏭️ Tenant already exists with ID: %d", existing.ID)
		return &existing, nil
	}

	tenant := user.Tenant{
		Code:     "CITYCARE",
		Name:     "City Care Hospital",
		Address:  "12 Hospital Road",
		Phone:    "+911234567890",
		Email:    "info@citycare.example.com",
		IsActive: true,
	}
	if err := m.db.Create(&tenant).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Created tenant: %s (code: %s)", tenant.Name, tenant.Code)
	return &tenant, nil
}

// seedAdminUser creates the default admin for the default tenant
func (m *Migration) seedAdminUser(tenantID uint) error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("tenant_id = ? AND email = ?", tenantID, "admin@citycare.example.com").First(&existing)
	if result.Error == nil {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		TenantID:  tenantID,
		Email:     "admin@citycare.example.com",
		Password:  string(hashedPassword),
		FirstName: "Admin",
		LastName:  "User",
		Role:      user.RoleAdmin,
		IsActive:  true,
	}
	if err := m.db.Create(&adminUser).Error; err != nil {
		log.Printf("❌ Failed to create admin user: %v", err)
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Println("✅ Created admin user: admin@citycare.example.com (password: admin123)")
	return nil
}

// seedStores creates the default stock locations
func (m *Migration) seedStores(tenantID uint) error {
	log.Println("🏬 Seeding stores...")

	stores := []catalog.Store{
		{TenantID: tenantID, Code: "MAIN", Name: "Main Pharmacy", Type: catalog.StoreTypePharmacy, IsActive: true},
		{TenantID: tenantID, Code: "WH01", Name: "Central Warehouse", Type: catalog.StoreTypeWarehouse, IsActive: true},
		{TenantID: tenantID, Code: "ICU", Name: "ICU Ward Store", Type: catalog.StoreTypeWard, IsActive: true},
	}

	for _, store := range stores {
		var existing catalog.Store
		result := m.db.Where("tenant_id = ? AND code = ?", tenantID, store.Code).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&store).Error; err != nil {
				return err
			}
			log.Printf("✅ Created store: %s", store.Name)
		} else {
			log.Printf("⏭️ Store already exists: %s", store.Name)
		}
	}

	return nil
}

// seedCategories creates default drug categories
func (m *Migration) seedCategories(tenantID uint) error {
	log.Println("🏷️ Seeding drug categories...")

	categories := []catalog.DrugCategory{
		{TenantID: tenantID, Name: "Analgesics", Description: "Pain relief medication", IsActive: true},
		{TenantID: tenantID, Name: "Antibiotics", Description: "Anti-bacterial medication", IsActive: true},
		{TenantID: tenantID, Name: "Antacids", Description: "Gastric acid neutralizers", IsActive: true},
		{TenantID: tenantID, Name: "Narcotics", Description: "Controlled substances, prescription only", IsActive: true},
	}

	for _, category := range categories {
		var existing catalog.DrugCategory
		result := m.db.Where("tenant_id = ? AND name = ?", tenantID, category.Name).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created drug category: %s", category.Name)
		} else {
			log.Printf("⏭️ Drug category already exists: %s", category.Name)
		}
	}

	return nil
}

// seedDemoProducts creates a small formulary for development
func (m *Migration) seedDemoProducts(tenantID uint) error {
	log.Println("💊 Seeding demo products...")

	var productCount int64
	m.db.Model(&catalog.Product{}).Where("tenant_id = ?", tenantID).Count(&productCount)
	if productCount >= 3 {
		log.Println("⏭️ Demo products already exist")
		return nil
	}

	var analgesics, narcotics catalog.DrugCategory
	m.db.Where("tenant_id = ? AND name = ?", tenantID, "Analgesics").First(&analgesics)
	m.db.Where("tenant_id = ? AND name = ?", tenantID, "Narcotics").First(&narcotics)

	demoProducts := []catalog.Product{
		{
			TenantID:      tenantID,
			SKU:           "DEMO-PCM-500",
			Name:          "Paracetamol 500mg",
			GenericName:   "Paracetamol",
			Manufacturer:  "Acme Pharma",
			CategoryID:    &analgesics.ID,
			HSNCode:       "3004",
			MRP:           decimal.NewFromFloat(2.50),
			PurchasePrice: decimal.NewFromFloat(1.80),
			GSTRate:       decimal.NewFromInt(12),
			ReorderLevel:  100,
			IsActive:      true,
		},
		{
			TenantID:      tenantID,
			SKU:           "DEMO-AMX-250",
			Name:          "Amoxicillin 250mg",
			GenericName:   "Amoxicillin",
			Manufacturer:  "Acme Pharma",
			HSNCode:       "3004",
			MRP:           decimal.NewFromFloat(8.00),
			PurchasePrice: decimal.NewFromFloat(5.50),
			GSTRate:       decimal.NewFromInt(12),
			ReorderLevel:  50,
			IsActive:      true,
		},
		{
			TenantID:      tenantID,
			SKU:           "DEMO-MOR-10",
			Name:          "Morphine 10mg",
			GenericName:   "Morphine Sulphate",
			Manufacturer:  "Acme Pharma",
			CategoryID:    &narcotics.ID,
			HSNCode:       "3004",
			MRP:           decimal.NewFromFloat(45.00),
			PurchasePrice: decimal.NewFromFloat(32.00),
			GSTRate:       decimal.NewFromInt(12),
			IsNarcotic:    true,
			ReorderLevel:  10,
			IsActive:      true,
		},
	}

	for _, prod := range demoProducts {
		var existing catalog.Product
		result := m.db.Where("tenant_id = ? AND sku = ?", tenantID, prod.SKU).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&prod).Error; err != nil {
				log.Printf("⚠️ Failed to create demo product %s: %v", prod.SKU, err)
			} else {
				log.Printf("✅ Created demo product: %s", prod.Name)
			}
		} else {
			log.Printf("⏭️ Product already exists: %s", prod.Name)
		}
	}

	return nil
}

// seedDemoVendor creates a development supplier
func (m *Migration) seedDemoVendor(tenantID uint) error {
	log.Println("🚚 Seeding demo vendor...")

	var existing catalog.Vendor
	result := m.db.Where("tenant_id = ? AND code = ?", tenantID, "DEMO-VND").First(&existing)
	if result.Error == nil {
		log.Println("⏭️ Demo vendor already exists")
		return nil
	}

	vendor := catalog.Vendor{
		TenantID:      tenantID,
		Code:          "DEMO-VND",
		Name:          "Acme Pharma Distributors",
		GSTNumber:     "29AAAAA0000A1Z5",
		ContactPerson: "Demo Contact",
		Phone:         "+919876543210",
		Email:         "orders@acmepharma.example.com",
		Address:       "Industrial Area Phase 2",
		IsActive:      true,
	}
	if err := m.db.Create(&vendor).Error; err != nil {
		return err
	}

	log.Printf("✅ Created demo vendor: %s", vendor.Name)
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"attachments",
		"audit_logs",
		"document_sequences",
		"goods_receipt_items",
		"goods_receipts",
		"purchase_order_items",
		"purchase_orders",
		"sale_return_items",
		"sale_returns",
		"sale_status_history",
		"sale_items",
		"sales",
		"credit_ledger_entries",
		"payments",
		"invoice_items",
		"invoices",
		"stock_ledger_entries",
		"prescription_items",
		"prescriptions",
		"visits",
		"patients",
		"reorder_watches",
		"products",
		"vendors",
		"stores",
		"drug_categories",
		"users",
		"tenants",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}

// CleanupDemoData removes development seed data (useful for production setup)
func (m *Migration) CleanupDemoData() error {
	log.Println("🧹 Cleaning up demo data...")

	result := m.db.Where("sku LIKE ?", "DEMO-%").Delete(&catalog.Product{})
	log.Printf("🗑️ Removed %d demo products", result.RowsAffected)

	result = m.db.Where("code = ?", "DEMO-VND").Delete(&catalog.Vendor{})
	log.Printf("🗑️ Removed %d demo vendors", result.RowsAffected)

	log.Println("✅ Demo data cleanup completed")
	return nil
}

// VerifyLedgerIntegrity checks that no batch scope has a negative
// on-hand balance. A non-empty result means the append guard was
// bypassed, most likely by manual data edits.
func (m *Migration) VerifyLedgerIntegrity() error {
	log.Println("🔍 Verifying stock ledger integrity...")

	type negativeRow struct {
		TenantID    uint
		StoreID     uint
		ProductID   uint
		BatchNumber string
		Balance     int
	}

	var rows []negativeRow
	err := m.db.Table("stock_ledger_entries").
		Select("tenant_id, store_id, product_id, batch_number, SUM(quantity_change) AS balance").
		Group("tenant_id, store_id, product_id, batch_number").
		Having("SUM(quantity_change) < 0").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("ledger integrity check failed: %w", err)
	}

	if len(rows) == 0 {
		log.Println("✅ Stock ledger integrity verified, no negative balances")
		return nil
	}

	for _, row := range rows {
		log.Printf("❌ Negative balance %d for tenant %d store %d product %d batch %s",
			row.Balance, row.TenantID, row.StoreID, row.ProductID, row.BatchNumber)
	}
	return fmt.Errorf("found %d batch scopes with negative balances", len(rows))
}
