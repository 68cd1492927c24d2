package providers

import (
	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/config"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DatabasePath()
	db, err := sqlite.Open(dbPath, log.WithComponent("store").Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// CacheHandle wraps the two-tier cache with shutdown capability.
type CacheHandle struct {
	*cache.TwoTier
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the memory + disk cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c := cache.New(cache.Config{
		Dir:            cfg.CachePath(),
		MaxMemoryBytes: cfg.Cache.MaxMemoryBytes,
		Logger:         log.WithComponent("cache").Logger,
	})
	if err := c.Initialize(); err != nil {
		return nil, err
	}

	log.Info("Cache initialized",
		"path", cfg.CachePath(),
		"memory_ttl", cfg.Cache.MemoryTTL,
		"disk_ttl", cfg.Cache.DiskTTL,
	)

	return &CacheHandle{TwoTier: c}, nil
}
