package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the API server.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	InvoiceServiceURL      string        `mapstructure:"INVOICE_SERVICE_URL"`
	InvoiceServiceTimeout  time.Duration `mapstructure:"INVOICE_SERVICE_TIMEOUT"`
	OCRServiceURL          string        `mapstructure:"OCR_SERVICE_URL"`
	OCRServiceTimeout      time.Duration `mapstructure:"OCR_SERVICE_TIMEOUT"`
	AnalyticsServiceURL    string        `mapstructure:"ANALYTICS_SERVICE_URL"`
	AnalyticsTimeout       time.Duration `mapstructure:"ANALYTICS_TIMEOUT"`
	AnalyticsNotifyTimeout time.Duration `mapstructure:"ANALYTICS_NOTIFY_TIMEOUT"`

	MatcherCacheTTL   time.Duration `mapstructure:"MATCHER_CACHE_TTL"`
	LowStockThreshold int           `mapstructure:"LOW_STOCK_THRESHOLD"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var keys = []string{
	"PORT", "GIN_MODE",
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"JWT_SECRET", "CORS_ORIGINS",
	"INVOICE_SERVICE_URL", "INVOICE_SERVICE_TIMEOUT",
	"OCR_SERVICE_URL", "OCR_SERVICE_TIMEOUT",
	"ANALYTICS_SERVICE_URL", "ANALYTICS_TIMEOUT", "ANALYTICS_NOTIFY_TIMEOUT",
	"MATCHER_CACHE_TTL", "LOW_STOCK_THRESHOLD",
	"LOG_LEVEL", "LOG_FORMAT",
}

// Load reads configs/.env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env file is fine: everything can come from the environment.
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "medisys")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:3000")
	v.SetDefault("INVOICE_SERVICE_URL", "http://127.0.0.1:5001/api/invoice/parse")
	v.SetDefault("INVOICE_SERVICE_TIMEOUT", "10m")
	v.SetDefault("OCR_SERVICE_URL", "http://localhost:3001/api/ocr")
	v.SetDefault("OCR_SERVICE_TIMEOUT", "2m")
	v.SetDefault("ANALYTICS_SERVICE_URL", "http://127.0.0.1:5001/api")
	v.SetDefault("ANALYTICS_TIMEOUT", "2m")
	v.SetDefault("ANALYTICS_NOTIFY_TIMEOUT", "5s")
	v.SetDefault("MATCHER_CACHE_TTL", "5m")
	v.SetDefault("LOW_STOCK_THRESHOLD", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// CORS_ORIGINS comes in as one comma separated string from the environment
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsRelease() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in release mode")
	}
	if c.LowStockThreshold <= 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must be positive")
	}
	if c.InvoiceServiceTimeout <= 0 || c.OCRServiceTimeout <= 0 || c.AnalyticsTimeout <= 0 || c.AnalyticsNotifyTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}
	if c.MatcherCacheTTL <= 0 {
		return fmt.Errorf("MATCHER_CACHE_TTL must be positive")
	}
	return nil
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// DSN returns DATABASE_URL, or builds one from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
