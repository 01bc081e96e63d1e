package config

import (
	"errors"
	"os"
	"strconv"
)

// Config holds all application-level configuration
type Config struct {
	// Catalog storage
	StoreDriver string `json:"storeDriver"` // json | postgres | sqlite
	CatalogPath string `json:"catalogPath"`
	DatabaseURL string `json:"databaseUrl"`
	BackupDir   string `json:"backupDir"`
	RawCSVDir   string `json:"rawCsvDir"`

	// Mall configuration
	MallsPath string `json:"mallsPath"`

	// Scraper
	MaxConcurrency       int    `json:"maxConcurrency"`
	RateLimitDelay       int    `json:"rateLimitDelayMs"` // milliseconds between requests to one mall
	MaxRetries           int    `json:"maxRetries"`
	MaxPages             int    `json:"maxPages"`
	RequestTimeoutSec    int    `json:"requestTimeoutSec"`
	MaxRedirects         int    `json:"maxRedirects"`
	NavigationTimeoutSec int    `json:"navigationTimeoutSec"`
	RenderSettleMs       int    `json:"renderSettleMs"`
	RunTimeoutSec        int    `json:"runTimeoutSec"`
	UserAgent            string `json:"userAgent"`

	// Normalization
	PriceCeiling int64 `json:"priceCeiling"`

	// Merge
	MergeAttempts int `json:"mergeAttempts"`

	LogLevel string `json:"logLevel"`

	// Sources lists the config files that were merged, in order
	Sources []string `json:"-"`
}

// DefaultUserAgent is a current desktop Chrome user-agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		StoreDriver:          "json",
		CatalogPath:          "data/products.json",
		BackupDir:            "data/backups",
		MallsPath:            "malls.json5",
		MaxConcurrency:       3,
		RateLimitDelay:       1500,
		MaxRetries:           3,
		MaxPages:             10,
		RequestTimeoutSec:    30,
		MaxRedirects:         5,
		NavigationTimeoutSec: 45,
		RenderSettleMs:       3000,
		RunTimeoutSec:        600,
		UserAgent:            DefaultUserAgent,
		PriceCeiling:         10_000_000,
		MergeAttempts:        3,
		LogLevel:             "info",
	}
}

// Load builds the configuration from defaults, the optional config file (with its
// .local override) and finally environment variables
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, sources, err := ReadConfig[Config](path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := overlay(cfg, fileCfg); err != nil {
				return nil, err
			}
			cfg.Sources = sources
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.CatalogPath = getEnv("CATALOG_PATH", cfg.CatalogPath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.BackupDir = getEnv("BACKUP_DIR", cfg.BackupDir)
	cfg.RawCSVDir = getEnv("RAW_CSV_DIR", cfg.RawCSVDir)
	cfg.MallsPath = getEnv("MALLS_PATH", cfg.MallsPath)
	cfg.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", cfg.MaxConcurrency)
	cfg.RateLimitDelay = getEnvInt("RATE_LIMIT_DELAY_MS", cfg.RateLimitDelay)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.MaxPages = getEnvInt("MAX_PAGES", cfg.MaxPages)
	cfg.RequestTimeoutSec = getEnvInt("REQUEST_TIMEOUT_SEC", cfg.RequestTimeoutSec)
	cfg.MaxRedirects = getEnvInt("MAX_REDIRECTS", cfg.MaxRedirects)
	cfg.NavigationTimeoutSec = getEnvInt("NAVIGATION_TIMEOUT_SEC", cfg.NavigationTimeoutSec)
	cfg.RenderSettleMs = getEnvInt("RENDER_SETTLE_MS", cfg.RenderSettleMs)
	cfg.RunTimeoutSec = getEnvInt("RUN_TIMEOUT_SEC", cfg.RunTimeoutSec)
	cfg.UserAgent = getEnv("USER_AGENT", cfg.UserAgent)
	cfg.PriceCeiling = int64(getEnvInt("PRICE_CEILING", int(cfg.PriceCeiling)))
	cfg.MergeAttempts = getEnvInt("MERGE_ATTEMPTS", cfg.MergeAttempts)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
