// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every runtime setting, loaded once at boot. Services
// receive the whole struct; nothing reads the environment after Load.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Email    EmailConfig
	Upload   UploadConfig
	Pharmacy PharmacyConfig
	Logging  LoggingConfig
}

// AppConfig identifies the deployment and the hospital brand that
// appears on invoices and outgoing mail
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	// Hospital identity printed on invoices and outgoing mail
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string
	CompanyWebsite string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret               string
	AccessTokenExpiry    time.Duration
	RefreshTokenExpiry   time.Duration
	RefreshTokenRotation bool
}

// SecurityConfig groups hashing cost, rate limits, the permission
// cache TTL, and the CORS allowlists
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	PermissionCacheTTL time.Duration
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Provider    string
	APIKey      string
	FromEmail   string
	FromName    string
	ReplyTo     string
	BaseURL     string
	TemplateDir string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SMTPUseTLS  bool
}

// UploadConfig contains file upload configuration for attachments
// (prescription scans, vendor invoices)
type UploadConfig struct {
	MaxSize           int64
	AllowedExtensions []string
	LocalPath         string
}

// PharmacyConfig contains pharmacy business-rule configuration
type PharmacyConfig struct {
	// Aggregate discount percentage above which a sale needs manager approval.
	// The boundary is inclusive: exactly this value completes immediately.
	DiscountApprovalThreshold decimal.Decimal
	// Batch marker stored on sale items while allocation is deferred
	PendingBatchMarker string
	// Default patient credit ceiling when registration does not set one
	DefaultCreditLimit decimal.Decimal
	// Days ahead the expiring-stock report looks
	ExpiryWarningDays int
	// TTL for the per-store stock lock held around stock mutations
	StockLockTTL time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:           getEnv("APP_NAME", "Hospital Pharmacy Backend"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvAsBool("APP_DEBUG", true),
			CompanyName:    getEnv("COMPANY_NAME", "City Care Hospital"),
			CompanyAddress: getEnv("COMPANY_ADDRESS", "12 Hospital Road"),
			CompanyPhone:   getEnv("COMPANY_PHONE", ""),
			CompanyEmail:   getEnv("COMPANY_EMAIL", "billing@example.com"),
			CompanyWebsite: getEnv("COMPANY_WEBSITE", ""),
		},
		Server: ServerConfig{
			Port:         getEnv("APP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "hospital_db"),
			User:         getEnv("DB_USER", "hospital_user"),
			Password:     getEnv("DB_PASSWORD", "hospital_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:               getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			AccessTokenExpiry:    getEnvAsDuration("JWT_ACCESS_EXPIRE", 12*time.Hour),
			RefreshTokenExpiry:   getEnvAsDuration("JWT_REFRESH_EXPIRE", 7*24*time.Hour),
			RefreshTokenRotation: getEnvAsBool("JWT_REFRESH_ROTATION", true),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			PermissionCacheTTL: getEnvAsDuration("PERMISSION_CACHE_TTL", 10*time.Minute),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Email: EmailConfig{
			Provider:    getEnv("EMAIL_PROVIDER", "smtp"),
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			FromEmail:   getEnv("FROM_EMAIL", "pharmacy@example.com"),
			FromName:    getEnv("FROM_NAME", "Hospital Pharmacy"),
			ReplyTo:     getEnv("EMAIL_REPLY_TO", ""),
			BaseURL:     getEnv("EMAIL_BASE_URL", "http://localhost:3000"),
			TemplateDir: getEnv("EMAIL_TEMPLATE_DIR", "./templates/emails"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			SMTPUseTLS:  getEnvAsBool("SMTP_USE_TLS", false),
		},
		Upload: UploadConfig{
			MaxSize:           getEnvAsInt64("UPLOAD_MAX_SIZE", 10485760), // 10MB
			AllowedExtensions: getEnvAsSlice("UPLOAD_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "pdf"}),
			LocalPath:         getEnv("UPLOAD_LOCAL_PATH", "./uploads"),
		},
		Pharmacy: PharmacyConfig{
			DiscountApprovalThreshold: getEnvAsDecimal("DISCOUNT_APPROVAL_THRESHOLD", decimal.NewFromInt(10)),
			PendingBatchMarker:        getEnv("PENDING_BATCH_MARKER", "PENDING"),
			DefaultCreditLimit:        getEnvAsDecimal("DEFAULT_CREDIT_LIMIT", decimal.NewFromInt(50000)),
			ExpiryWarningDays:         getEnvAsInt("EXPIRY_WARNING_DAYS", 90),
			StockLockTTL:              getEnvAsDuration("STOCK_LOCK_TTL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", "logs/app.log"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"DB_HOST", c.Database.Host},
		{"DB_NAME", c.Database.Name},
		{"DB_USER", c.Database.User},
		{"REDIS_HOST", c.Redis.Host},
		{"APP_PORT", c.Server.Port},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	// Invoices are unusable without a hospital identity in production
	if c.IsProduction() && c.App.CompanyName == "" {
		return fmt.Errorf("COMPANY_NAME is required in production")
	}

	if c.Pharmacy.DiscountApprovalThreshold.IsNegative() {
		return fmt.Errorf("DISCOUNT_APPROVAL_THRESHOLD must not be negative")
	}
	if c.Pharmacy.PendingBatchMarker == "" {
		return fmt.Errorf("PENDING_BATCH_MARKER must not be empty")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Environment parsing helpers. Unset variables and unparseable values
// both fall back to the default; Validate catches anything that must
// not be defaulted.

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if parsed, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return parsed
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if parsed, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return parsed
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if parsed, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return parsed
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return parsed
	}
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return strings.Split(raw, ",")
	}
	return fallback
}
