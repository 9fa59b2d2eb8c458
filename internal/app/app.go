// Package app wires the store, repositories and services shared by the
// HTTP server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"go-cookieconsent/internal/cache"
	"go-cookieconsent/internal/config"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/docstore"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/metrics"
	"go-cookieconsent/internal/service"

	"github.com/jmoiron/sqlx"
)

// App holds the initialized application layers.
type App struct {
	Store docstore.Store
	// DB is the SQL pool behind Store, nil for the mongo and memory drivers.
	DB      *sqlx.DB
	Metrics *metrics.Metrics

	Categories *data.CategoryRepository
	Settings   *data.SettingsRepository
	Records    *data.ConsentRecordRepository

	ConfigCache *cache.Cache[*service.Snapshot]
	Config      *service.ConfigService
	Consent     *service.ConsentService
	Admin       *service.AdminService
}

func newCache(cfg config.CacheConfig) (cache.Store[*service.Snapshot], error) {
	switch cfg.Driver {
	case "sqlite":
		return cache.NewSQLite[*service.Snapshot](cfg.FilePath)
	case "memory":
		return cache.NewMemory[*service.Snapshot](), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}

// New opens the configured store (applying SQL migrations) and builds the services.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	store, db, err := docstore.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.Mongo.URI, cfg.DB.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.DB.Driver, err)
	}

	cacheStore, err := newCache(cfg.Cache)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	a := &App{
		Store:       store,
		DB:          db,
		Metrics:     metrics.New(),
		Categories:  data.NewCategoryRepository(store),
		Settings:    data.NewSettingsRepository(store),
		Records:     data.NewConsentRecordRepository(store),
		ConfigCache: cache.New[*service.Snapshot](cacheStore, cfg.Cache.TTL, cache.SystemClock),
	}
	a.Config = service.NewConfigService(a.Categories, a.Settings, a.ConfigCache, a.Metrics, log)
	a.Consent = service.NewConsentService(a.Records, cfg.Privacy.IPHashKey, a.Metrics, log)
	a.Admin = service.NewAdminService(a.Categories, a.Settings, a.Records, a.Config, a.Metrics, log)
	return a, nil
}

// Close releases the cache and the store.
func (a *App) Close() error {
	cacheErr := a.ConfigCache.Close()
	if err := a.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}
