// internal/domain/reports/service.go
package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hospital-backend/internal/config"
	"gorm.io/gorm"
)

// Service builds operational reports on top of the ledger and the
// transactional tables. Everything here is read-only aggregation.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new reports service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// DashboardStats is the operational summary for one tenant
type DashboardStats struct {
	// Sales activity
	SalesToday           int64           `json:"sales_today"`
	RevenueToday         decimal.Decimal `json:"revenue_today"`
	SalesThisMonth       int64           `json:"sales_this_month"`
	RevenueThisMonth     decimal.Decimal `json:"revenue_this_month"`
	SalesPendingApproval int64           `json:"sales_pending_approval"`

	// Returns and procurement in flight
	DraftReturns       int64 `json:"draft_returns"`
	OpenPurchaseOrders int64 `json:"open_purchase_orders"`

	// Stock health
	LowStockProducts int64 `json:"low_stock_products"`
	ExpiringBatches  int64 `json:"expiring_batches"`

	// Patients and credit exposure
	ActivePatients    int64           `json:"active_patients"`
	OutstandingCredit decimal.Decimal `json:"outstanding_credit"`
}

// SalesSummary aggregates completed sales over a trailing window
type SalesSummary struct {
	Days         int              `json:"days"`
	TotalSales   int64            `json:"total_sales"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	AvgSaleValue decimal.Decimal  `json:"avg_sale_value"`
	DailySales   []TimeSeriesRow  `json:"daily_sales"`
	TopProducts  []ProductSaleRow `json:"top_products"`
	ByStatus     []StatusRow      `json:"by_status"`
}

// TimeSeriesRow is one day's completed sales
type TimeSeriesRow struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// ProductSaleRow is one product's dispensed volume over the window
type ProductSaleRow struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// StatusRow is the sale count and value in one lifecycle status
type StatusRow struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// StockValuation prices current holdings at purchase cost
type StockValuation struct {
	TotalUnits int64               `json:"total_units"`
	TotalValue decimal.Decimal     `json:"total_value"`
	Stores     []StoreValuationRow `json:"stores"`
}

// StoreValuationRow is one store's on-hand units and value
type StoreValuationRow struct {
	StoreID   uint            `json:"store_id"`
	StoreName string          `json:"store_name"`
	Units     int64           `json:"units"`
	Value     decimal.Decimal `json:"value"`
}

// GetDashboardStats computes the operational summary for a tenant
func (s *Service) GetDashboardStats(tenantID uint) (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := time.Now().UTC()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// Sales activity
	s.db.Raw("SELECT COUNT(*) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, today).Scan(&stats.SalesToday)
	s.db.Raw("SELECT COALESCE(SUM(net_amount), 0) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, today).Scan(&stats.RevenueToday)
	s.db.Raw("SELECT COUNT(*) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, thisMonth).Scan(&stats.SalesThisMonth)
	s.db.Raw("SELECT COALESCE(SUM(net_amount), 0) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, thisMonth).Scan(&stats.RevenueThisMonth)
	s.db.Raw("SELECT COUNT(*) FROM sales WHERE tenant_id = ? AND status = 'PENDING_APPROVAL'",
		tenantID).Scan(&stats.SalesPendingApproval)

	// Work in flight
	s.db.Raw("SELECT COUNT(*) FROM sale_returns WHERE tenant_id = ? AND status = 'DRAFT'",
		tenantID).Scan(&stats.DraftReturns)
	s.db.Raw("SELECT COUNT(*) FROM purchase_orders WHERE tenant_id = ? AND status IN ('APPROVED', 'SENT', 'PARTIAL')",
		tenantID).Scan(&stats.OpenPurchaseOrders)

	// Stock health, derived from the ledger
	s.db.Raw(`
		SELECT COUNT(*) FROM (
			SELECT w.store_id, w.product_id
			FROM reorder_watches w
			LEFT JOIN stock_ledger_entries e
				ON e.tenant_id = w.tenant_id AND e.store_id = w.store_id AND e.product_id = w.product_id
			WHERE w.tenant_id = ?
			GROUP BY w.store_id, w.product_id, w.reorder_level
			HAVING COALESCE(SUM(e.quantity_change), 0) <= w.reorder_level
		) low
	`, tenantID).Scan(&stats.LowStockProducts)

	horizon := now.AddDate(0, 0, s.config.Pharmacy.ExpiryWarningDays)
	s.db.Raw(`
		SELECT COUNT(*) FROM (
			SELECT e.store_id, e.product_id, e.batch_number
			FROM stock_ledger_entries e
			WHERE e.tenant_id = ? AND e.expiry_date IS NOT NULL AND e.expiry_date <= ?
			GROUP BY e.store_id, e.product_id, e.batch_number
			HAVING SUM(e.quantity_change) > 0
		) expiring
	`, tenantID, horizon).Scan(&stats.ExpiringBatches)

	// Patients and credit
	s.db.Raw("SELECT COUNT(*) FROM patients WHERE tenant_id = ? AND status = 'ACTIVE'",
		tenantID).Scan(&stats.ActivePatients)

	// Each patient's current balance is their newest credit ledger row
	s.db.Raw(`
		SELECT COALESCE(SUM(balance), 0) FROM (
			SELECT DISTINCT ON (patient_id) balance
			FROM credit_ledger_entries
			WHERE tenant_id = ?
			ORDER BY patient_id, id DESC
		) tails
	`, tenantID).Scan(&stats.OutstandingCredit)

	return stats, nil
}

// GetSalesSummary aggregates completed sales over the trailing window.
// Days below 1 falls back to 30.
func (s *Service) GetSalesSummary(tenantID uint, days int) (*SalesSummary, error) {
	if days <= 0 {
		days = 30
	}

	summary := &SalesSummary{Days: days}
	startDate := time.Now().UTC().AddDate(0, 0, -days)

	s.db.Raw("SELECT COUNT(*) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, startDate).Scan(&summary.TotalSales)
	s.db.Raw("SELECT COALESCE(SUM(net_amount), 0) FROM sales WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?",
		tenantID, startDate).Scan(&summary.TotalRevenue)

	if summary.TotalSales > 0 {
		summary.AvgSaleValue = summary.TotalRevenue.DivRound(decimal.NewFromInt(summary.TotalSales), 2)
	}

	rows, err := s.db.Raw(`
		SELECT
			TO_CHAR(created_at::date, 'YYYY-MM-DD') AS date,
			COALESCE(SUM(net_amount), 0) AS amount,
			COUNT(*) AS count
		FROM sales
		WHERE tenant_id = ? AND status = 'COMPLETED' AND created_at >= ?
		GROUP BY created_at::date
		ORDER BY date
	`, tenantID, startDate).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row TimeSeriesRow
		if err := rows.Scan(&row.Date, &row.Amount, &row.Count); err != nil {
			continue
		}
		summary.DailySales = append(summary.DailySales, row)
	}

	productRows, err := s.db.Raw(`
		SELECT
			p.id,
			p.name,
			p.sku,
			COALESCE(SUM(si.quantity), 0) AS quantity_sold,
			COALESCE(SUM(si.total_amount), 0) AS revenue
		FROM products p
		JOIN sale_items si ON si.product_id = p.id
		JOIN sales sl ON sl.id = si.sale_id
		WHERE sl.tenant_id = ? AND sl.status = 'COMPLETED' AND sl.created_at >= ?
		GROUP BY p.id, p.name, p.sku
		ORDER BY quantity_sold DESC
		LIMIT 10
	`, tenantID, startDate).Rows()

	if err == nil {
		defer productRows.Close()
		for productRows.Next() {
			var row ProductSaleRow
			if err := productRows.Scan(&row.ProductID, &row.ProductName, &row.SKU, &row.QuantitySold, &row.Revenue); err != nil {
				continue
			}
			summary.TopProducts = append(summary.TopProducts, row)
		}
	}

	statusRows, err := s.db.Raw(`
		SELECT
			status,
			COUNT(*) AS count,
			COALESCE(SUM(net_amount), 0) AS amount
		FROM sales
		WHERE tenant_id = ? AND created_at >= ?
		GROUP BY status
		ORDER BY count DESC
	`, tenantID, startDate).Rows()

	if err == nil {
		defer statusRows.Close()
		for statusRows.Next() {
			var row StatusRow
			if err := statusRows.Scan(&row.Status, &row.Count, &row.Amount); err != nil {
				continue
			}
			summary.ByStatus = append(summary.ByStatus, row)
		}
	}

	return summary, nil
}

// GetStockValuation prices every store's holdings at the products'
// current purchase price. The ledger does not record per-entry cost,
// so this is a replacement valuation, not a historical one.
func (s *Service) GetStockValuation(tenantID uint) (*StockValuation, error) {
	valuation := &StockValuation{TotalValue: decimal.Zero}

	rows, err := s.db.Raw(`
		SELECT
			st.id,
			st.name,
			COALESCE(SUM(e.quantity_change), 0) AS units,
			COALESCE(SUM(e.quantity_change * p.purchase_price), 0) AS value
		FROM stores st
		LEFT JOIN stock_ledger_entries e ON e.store_id = st.id AND e.tenant_id = st.tenant_id
		LEFT JOIN products p ON p.id = e.product_id
		WHERE st.tenant_id = ?
		GROUP BY st.id, st.name
		ORDER BY st.name
	`, tenantID).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock valuation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row StoreValuationRow
		if err := rows.Scan(&row.StoreID, &row.StoreName, &row.Units, &row.Value); err != nil {
			continue
		}
		valuation.Stores = append(valuation.Stores, row)
		valuation.TotalUnits += row.Units
		valuation.TotalValue = valuation.TotalValue.Add(row.Value)
	}

	return valuation, nil
}
