package pipeline

import (
	"context"
	"fmt"
	"time"

	"mallcatalog/config"
	"mallcatalog/scraper"
	"mallcatalog/services"
	"mallcatalog/storage"
	"mallcatalog/utils"
)

// NewFetcher builds the static and browser fetchers behind one render-mode router
func NewFetcher(cfg *config.Config, logger *utils.Logger) scraper.Fetcher {
	return &scraper.RouterFetcher{
		Static: scraper.NewStaticFetcher(scraper.StaticOptions{
			UserAgent:    cfg.UserAgent,
			Timeout:      time.Duration(cfg.RequestTimeoutSec) * time.Second,
			MaxRedirects: cfg.MaxRedirects,
		}),
		Rendered: scraper.NewBrowserFetcher(scraper.BrowserOptions{
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: time.Duration(cfg.NavigationTimeoutSec) * time.Second,
			Settle:            time.Duration(cfg.RenderSettleMs) * time.Millisecond,
		}, logger),
	}
}

// OpenStore opens the catalog store selected by cfg.StoreDriver
func OpenStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.CatalogStore, error) {
	switch cfg.StoreDriver {
	case "", "json":
		return storage.NewJSONStore(cfg.CatalogPath, logger), nil
	case storage.DriverPostgres, storage.DriverSQLite:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("store driver %q needs DATABASE_URL", cfg.StoreDriver)
		}
		return storage.NewSQLStore(ctx, cfg.StoreDriver, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewMerger builds the catalog merger over store, with backups when a backup dir is set
func NewMerger(cfg *config.Config, store storage.CatalogStore, logger *utils.Logger) *services.Merger {
	var backups *storage.BackupWriter
	if cfg.BackupDir != "" {
		backups = storage.NewBackupWriter(cfg.BackupDir, logger)
	}
	return services.NewMerger(store, backups, cfg.MergeAttempts, logger)
}

// NewRawStorage returns the raw CSV dump writer, or nil when RawCSVDir is unset
func NewRawStorage(cfg *config.Config, logger *utils.Logger) storage.RawStorage {
	if cfg.RawCSVDir == "" {
		return nil
	}
	return storage.NewCSVWriter(cfg.RawCSVDir, logger)
}
