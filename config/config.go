package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"klineDownloader/internal/adapters/logger" // Import the logger package for LogLevel
	"klineDownloader/internal/domain"
)

const dateLayout = "2006-01-02"

// validIntervals are the bucket sizes the exchanges accept (Bybit v5 codes).
var validIntervals = map[string]bool{
	"1": true, "3": true, "5": true, "15": true, "30": true, "60": true,
	"120": true, "240": true, "360": true, "720": true, "D": true, "W": true, "M": true,
}

// ValidInterval reports whether interval is a supported kline interval code.
func ValidInterval(interval string) bool {
	return validIntervals[interval]
}

var validCategories = map[domain.Category]bool{
	domain.CategorySpot: true, domain.CategoryLinear: true, domain.CategoryInverse: true,
}

// Config holds all application configuration.
type Config struct {
	// Exchange
	Exchange    domain.Exchange
	APIKey      string // Optional; only the sampled listing path may need it
	SecretKey   string
	IsTestnet   bool
	HTTPTimeout time.Duration

	// Download span
	KlineCategory   domain.Category
	ListingCategory domain.Category
	StartDate       time.Time
	EndDate         time.Time
	ChunkDuration   time.Duration // Width of one fetch window, e.g. 120h
	Interval        string        // Bucket size in minutes, or D/W/M
	SampleSize      int           // Symbols processed in "random" mode

	// Output
	OutputDir string
	DBPath    string // Empty disables the SQLite store

	// Logging
	LogLevel      logger.LogLevel
	LogFile       string // Empty logs to stderr
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// StartMs returns the start of the download span in epoch milliseconds.
func (c *Config) StartMs() int64 { return c.StartDate.UnixMilli() }

// EndMs returns the end of the download span in epoch milliseconds.
func (c *Config) EndMs() int64 { return c.EndDate.UnixMilli() }

// LoadConfig loads configuration from environment variables (.env file),
// layered over an optional YAML file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	src := envSource{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		src.file = fc.values()
	}
	return load(src)
}

func load(src envSource) (*Config, error) {
	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Exchange
	exchangeName := src.get("EXCHANGE", string(domain.ExchangeBybit))
	ex, ok := domain.ParseExchange(exchangeName)
	if !ok {
		errs = append(errs, fmt.Sprintf("EXCHANGE must be one of bybit, binance (got %q)", exchangeName))
	}
	cfg.Exchange = ex
	cfg.APIKey = src.get("API_KEY", "")
	cfg.SecretKey = src.get("API_SECRET", "")
	cfg.IsTestnet = src.getBool("IS_TESTNET", false)
	if (cfg.APIKey == "") != (cfg.SecretKey == "") {
		errs = append(errs, "API_KEY and API_SECRET must be set together")
	}

	timeoutSeconds, err := src.getIntRequired("HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HTTP_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	// Download span
	// Binance serves no inverse klines through this client, so its default is linear.
	defaultKlineCategory := domain.CategoryInverse
	if cfg.Exchange == domain.ExchangeBinance {
		defaultKlineCategory = domain.CategoryLinear
	}
	cfg.KlineCategory = domain.Category(strings.ToLower(src.get("KLINE_CATEGORY", string(defaultKlineCategory))))
	cfg.ListingCategory = domain.Category(strings.ToLower(src.get("LISTING_CATEGORY", string(domain.CategoryLinear))))
	for _, c := range []struct {
		key      string
		category domain.Category
	}{{"KLINE_CATEGORY", cfg.KlineCategory}, {"LISTING_CATEGORY", cfg.ListingCategory}} {
		switch {
		case !validCategories[c.category]:
			errs = append(errs, fmt.Sprintf("%s must be one of spot, linear, inverse (got %q)", c.key, c.category))
		case cfg.Exchange == domain.ExchangeBinance && c.category == domain.CategoryInverse:
			errs = append(errs, fmt.Sprintf("%s inverse is not supported for binance", c.key))
		}
	}

	cfg.StartDate, err = ParseDate(src.get("START_DATE", "2024-06-01"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid START_DATE: %v", err))
	}
	cfg.EndDate, err = ParseDate(src.get("END_DATE", "2025-02-01"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid END_DATE: %v", err))
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && !cfg.StartDate.Before(cfg.EndDate) {
		errs = append(errs, "START_DATE must be before END_DATE")
	}

	chunkHours, err := src.getIntRequired("CHUNK_HOURS", 120)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CHUNK_HOURS: %v", err))
	} else if chunkHours <= 0 {
		errs = append(errs, "CHUNK_HOURS must be positive")
	}
	cfg.ChunkDuration = time.Duration(chunkHours) * time.Hour

	cfg.Interval = strings.ToUpper(src.get("INTERVAL", domain.DefaultInterval))
	if !validIntervals[cfg.Interval] {
		errs = append(errs, fmt.Sprintf("INTERVAL %q is not a supported kline interval", cfg.Interval))
	}

	cfg.SampleSize, err = src.getIntRequired("SAMPLE_SIZE", 50)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SAMPLE_SIZE: %v", err))
	} else if cfg.SampleSize <= 0 {
		errs = append(errs, "SAMPLE_SIZE must be positive")
	}

	// Output
	cfg.OutputDir = src.get("OUTPUT_DIR", "bybit_data")
	cfg.DBPath = src.get("DB_PATH", "")

	// Logging
	cfg.LogLevel = logger.ParseLevel(src.get("LOG_LEVEL", "INFO"))
	cfg.LogFile = src.get("LOG_FILE", "")
	cfg.LogMaxSizeMB = src.getInt("LOG_MAX_SIZE_MB", 100)
	cfg.LogMaxBackups = src.getInt("LOG_MAX_BACKUPS", 3)
	cfg.LogMaxAgeDays = src.getInt("LOG_MAX_AGE_DAYS", 28)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ParseDate accepts a plain date (UTC midnight) or an RFC 3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("'%s' is neither YYYY-MM-DD nor RFC 3339", value)
	}
	return t.UTC(), nil
}

// --- Env Var Helpers ---

// envSource resolves keys from the process environment first, then the config file.
type envSource struct {
	file map[string]string
}

func (s envSource) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s envSource) get(key, defaultValue string) string {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (s envSource) getInt(key string, defaultValue int) int {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s envSource) getIntRequired(key string, defaultValue int) (int, error) {
	valueStr := s.lookup(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func (s envSource) getBool(key string, defaultValue bool) bool {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
