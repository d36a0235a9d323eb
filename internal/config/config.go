package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"go-agency-ledger/pkg/database"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Database database.Config
	Auth     AuthConfig
	Stock    StockConfig
	Seed     SeedConfig
	LogLevel string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	AppName        string
	AllowedOrigins string
	BodyLimitBytes int
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	IdleTimeout time.Duration
	Issuer      string
}

// StockConfig holds the low-stock alert settings.
type StockConfig struct {
	LowStockThresholdKgs decimal.Decimal
	LowStockCron         string
	BillNumberPrefix     string
}

// SeedConfig is the bootstrap master admin account.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	threshold, err := decimal.NewFromString(getenvWithDefault("LOW_STOCK_THRESHOLD_KGS", "50"))
	if err != nil {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD_KGS: %w", err)
	}
	tokenTTL, err := time.ParseDuration(getenvWithDefault("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	idle, err := time.ParseDuration(getenvWithDefault("SESSION_IDLE_TIMEOUT", "5m"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT: %w", err)
	}
	bodyLimit, err := strconv.Atoi(getenvWithDefault("BODY_LIMIT_BYTES", "1048576"))
	if err != nil {
		return nil, fmt.Errorf("BODY_LIMIT_BYTES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("PORT", "3000"),
			AppName:        getenvWithDefault("APP_NAME", "Agency Ledger v1.0"),
			AllowedOrigins: getenvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
			BodyLimitBytes: bodyLimit,
		},
		Database: database.Config{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getenvWithDefault("DB_HOST", "localhost"),
			Port:     getenvWithDefault("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getenvWithDefault("DB_NAME", "agency_ledger"),
			SSLMode:  getenvWithDefault("DB_SSLMODE", "disable"),
			TimeZone: getenvWithDefault("DB_TIMEZONE", "Asia/Kolkata"),
			LogSQL:   strings.EqualFold(os.Getenv("DB_LOG_SQL"), "true"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			TokenTTL:    tokenTTL,
			IdleTimeout: idle,
			Issuer:      getenvWithDefault("JWT_ISSUER", "go-agency-ledger"),
		},
		Stock: StockConfig{
			LowStockThresholdKgs: threshold,
			LowStockCron:         getenvWithDefault("LOW_STOCK_CRON", "0 8 * * *"),
			BillNumberPrefix:     getenvWithDefault("BILL_NUMBER_PREFIX", "BILL"),
		},
		Seed: SeedConfig{
			AdminEmail:    getenvWithDefault("ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}

	if c.Database.URL == "" && (c.Database.User == "" || c.Database.Name == "") {
		return errors.New("DATABASE_URL or DB_USER and DB_NAME must be provided")
	}

	switch {
	case c.Auth.JWTSecret == "":
		return errors.New("JWT_SECRET must be provided")
	case len(c.Auth.JWTSecret) < 16:
		return errors.New("JWT_SECRET must be at least 16 characters")
	case c.Auth.TokenTTL <= 0:
		return errors.New("JWT_TTL must be positive")
	}

	if c.Stock.LowStockThresholdKgs.IsNegative() {
		return errors.New("LOW_STOCK_THRESHOLD_KGS must not be negative")
	}

	if c.Stock.LowStockCron == "" {
		return errors.New("LOW_STOCK_CRON must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
