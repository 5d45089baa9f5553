// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/interfaces/http/handlers"
	"github.com/your-org/hospital-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route group onto the base group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupAuthRoutes(rg, db, redisClient, cfg)
	SetupPatientRoutes(rg, db, redisClient, cfg)
	SetupPharmacyRoutes(rg, db, redisClient, cfg)
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupProcurementRoutes(rg, db, redisClient, cfg)
	SetupBillingRoutes(rg, db, redisClient, cfg)
	SetupCatalogRoutes(rg, db, redisClient, cfg)
	SetupUploadRoutes(rg, db, redisClient, cfg)
	SetupReportRoutes(rg, db, redisClient, cfg)
	SetupAdminRoutes(rg, db, redisClient, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.POST("/change-password", authHandler.ChangePassword)
		}
	}
}

// SetupPatientRoutes sets up patient, visit and prescription routes
func SetupPatientRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	patientHandler := handlers.NewPatientHandler(db, cfg)
	prescriptionHandler := handlers.NewPrescriptionHandler(db, cfg)

	canManagePatients := middleware.RequirePermission(db, redisClient, cfg, "patient.manage")
	canPrescribe := middleware.RequirePermission(db, redisClient, cfg, "prescription.create")

	patients := rg.Group("/patients")
	patients.Use(middleware.AuthMiddleware(cfg))
	patients.Use(canManagePatients)
	{
		patients.POST("", patientHandler.Register)
		patients.GET("/:id", patientHandler.Get)
		patients.GET("/mrn/:mrn", patientHandler.GetByMRN)
		patients.PUT("/:id", patientHandler.Update)

		patients.POST("/:id/visits", patientHandler.OpenVisit)
		patients.GET("/:id/visits", patientHandler.ListVisits)
		patients.POST("/visits/:id/close", patientHandler.CloseVisit)

		patients.POST("/:id/prescriptions", canPrescribe, prescriptionHandler.Create)
		patients.GET("/:id/prescriptions", prescriptionHandler.ListByPatient)
	}

	prescriptions := rg.Group("/prescriptions")
	prescriptions.Use(middleware.AuthMiddleware(cfg))
	{
		prescriptions.GET("/:id", canManagePatients, prescriptionHandler.Get)
		prescriptions.POST("/:id/cancel", canPrescribe, prescriptionHandler.Cancel)
	}
}

// SetupPharmacyRoutes sets up sale and return routes
func SetupPharmacyRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	saleHandler := handlers.NewSaleHandler(db, redisClient, cfg)
	returnHandler := handlers.NewReturnHandler(db, redisClient, cfg)

	pharmacy := rg.Group("/pharmacy")
	pharmacy.Use(middleware.AuthMiddleware(cfg))
	{
		canCreate := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.sale.create")
		canApprove := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.sale.approve")
		canCancel := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.sale.cancel")
		canRead := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.sale.read")

		sales := pharmacy.Group("/sales")
		{
			sales.POST("", canCreate, saleHandler.Create)
			sales.GET("/:id", canRead, saleHandler.Get)
			sales.GET("/number/:number", canRead, saleHandler.GetByNumber)
			sales.POST("/:id/approve", canApprove, saleHandler.Approve)
			sales.POST("/:id/cancel", canCancel, saleHandler.Cancel)
			sales.GET("/:id/invoice/pdf", canRead, saleHandler.InvoicePDF)
		}

		canCreateReturn := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.return.create")
		canApproveReturn := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.return.approve")
		canCancelReturn := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.return.cancel")
		canReadReturn := middleware.RequirePermission(db, redisClient, cfg, "pharmacy.return.read")

		returns := pharmacy.Group("/returns")
		{
			returns.POST("", canCreateReturn, returnHandler.Create)
			returns.GET("/:id", canReadReturn, returnHandler.Get)
			returns.POST("/:id/approve", canApproveReturn, returnHandler.Approve)
			returns.POST("/:id/cancel", canCancelReturn, returnHandler.Cancel)
		}
	}
}

// SetupInventoryRoutes sets up ledger-backed stock report routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	stockHandler := handlers.NewStockHandler(db, cfg)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	inventory.Use(middleware.RequirePermission(db, redisClient, cfg, "inventory.stock.read"))
	{
		inventory.GET("/stores/:id/stock", stockHandler.StoreStock)
		inventory.GET("/stores/:id/stock/low", stockHandler.LowStock)
		inventory.GET("/stores/:id/stock/expiring", stockHandler.ExpiringBatches)
		inventory.GET("/stores/:id/stock/batches", stockHandler.BatchStocks)
		inventory.GET("/ledger", stockHandler.Ledger)
	}
}

// SetupProcurementRoutes sets up purchase order and goods receipt routes
func SetupProcurementRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	procurementHandler := handlers.NewProcurementHandler(db, redisClient, cfg)

	procurement := rg.Group("/procurement")
	procurement.Use(middleware.AuthMiddleware(cfg))
	{
		canCreatePO := middleware.RequirePermission(db, redisClient, cfg, "procurement.po.create")
		canApprovePO := middleware.RequirePermission(db, redisClient, cfg, "procurement.po.approve")
		canReadPO := middleware.RequirePermission(db, redisClient, cfg, "procurement.po.read")
		canCreateGRN := middleware.RequirePermission(db, redisClient, cfg, "procurement.grn.create")
		canReadGRN := middleware.RequirePermission(db, redisClient, cfg, "procurement.grn.read")

		pos := procurement.Group("/purchase-orders")
		{
			pos.POST("", canCreatePO, procurementHandler.CreatePurchaseOrder)
			pos.GET("/:id", canReadPO, procurementHandler.GetPurchaseOrder)
			pos.POST("/:id/approve", canApprovePO, procurementHandler.ApprovePurchaseOrder)
			pos.POST("/:id/send", canCreatePO, procurementHandler.SendPurchaseOrder)
			pos.POST("/:id/cancel", canApprovePO, procurementHandler.CancelPurchaseOrder)
			pos.GET("/:id/receipts", canReadGRN, procurementHandler.ListReceiptsForOrder)
		}

		grns := procurement.Group("/goods-receipts")
		{
			grns.POST("", canCreateGRN, procurementHandler.CreateGoodsReceipt)
			grns.GET("/:id", canReadGRN, procurementHandler.GetGoodsReceipt)
		}
	}
}

// SetupBillingRoutes sets up invoice, payment and credit routes
func SetupBillingRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	billingHandler := handlers.NewBillingHandler(db, cfg)

	billing := rg.Group("/billing")
	billing.Use(middleware.AuthMiddleware(cfg))
	{
		canRead := middleware.RequirePermission(db, redisClient, cfg, "billing.read")
		canPay := middleware.RequirePermission(db, redisClient, cfg, "billing.payment.create")

		billing.GET("/invoices/:id", canRead, billingHandler.GetInvoice)
		billing.POST("/invoices/:id/payments", canPay, billingHandler.RecordPayment)
		billing.GET("/patients/:id/credit", canRead, billingHandler.PatientCredit)
	}
}

// SetupCatalogRoutes sets up master data routes
func SetupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	catalogHandler := handlers.NewCatalogHandler(db, cfg)

	catalog := rg.Group("/catalog")
	catalog.Use(middleware.AuthMiddleware(cfg))
	catalog.Use(middleware.RequirePermission(db, redisClient, cfg, "catalog.manage"))
	{
		products := catalog.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("/:id", catalogHandler.GetProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)
		}

		categories := catalog.Group("/categories")
		{
			categories.POST("", catalogHandler.CreateCategory)
			categories.GET("/:id", catalogHandler.GetCategory)
		}

		stores := catalog.Group("/stores")
		{
			stores.POST("", catalogHandler.CreateStore)
			stores.GET("/:id", catalogHandler.GetStore)
		}

		vendors := catalog.Group("/vendors")
		{
			vendors.POST("", catalogHandler.CreateVendor)
			vendors.GET("/:id", catalogHandler.GetVendor)
		}

		catalog.PUT("/watchlist", catalogHandler.SetReorderWatch)
		catalog.DELETE("/watchlist", catalogHandler.RemoveReorderWatch)
	}
}

// SetupUploadRoutes sets up attachment routes
func SetupUploadRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	uploadHandler := handlers.NewUploadHandler(db, cfg)

	uploads := rg.Group("/uploads")
	uploads.Use(middleware.AuthMiddleware(cfg))
	uploads.Use(middleware.RequirePermission(db, redisClient, cfg, "upload.create"))
	{
		uploads.POST("", uploadHandler.Upload)
		uploads.GET("", uploadHandler.ListForEntity)
		uploads.GET("/:id", uploadHandler.Get)
		uploads.GET("/:id/download", uploadHandler.Download)
		uploads.DELETE("/:id", uploadHandler.Delete)
	}
}

// SetupReportRoutes sets up operational report routes
func SetupReportRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	reportsHandler := handlers.NewReportsHandler(db, cfg)

	reports := rg.Group("/reports")
	reports.Use(middleware.AuthMiddleware(cfg))
	reports.Use(middleware.RequirePermission(db, redisClient, cfg, "reports.read"))
	{
		reports.GET("/dashboard", reportsHandler.Dashboard)
		reports.GET("/sales", reportsHandler.SalesSummary)
		reports.GET("/stock-valuation", reportsHandler.StockValuation)
	}
}

// SetupAdminRoutes sets up staff administration and audit trail routes
func SetupAdminRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	staffHandler := handlers.NewStaffHandler(db, redisClient, cfg)
	auditHandler := handlers.NewAuditHandler(db, cfg)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		users := admin.Group("/users")
		{
			users.POST("", staffHandler.CreateStaff)
			users.GET("/:id", staffHandler.GetStaff)
			users.PUT("/:id/status", staffHandler.UpdateStaffStatus)
			users.PUT("/:id/role", staffHandler.UpdateStaffRole)
			users.POST("/:id/reset-password", staffHandler.ResetStaffPassword)
		}

		audit := admin.Group("/audit")
		{
			audit.GET("/:entity_type/:id", auditHandler.EntityTrail)
		}
	}
}
