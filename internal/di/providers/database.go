package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/recshelf/recshelf-server/internal/config"
	"github.com/recshelf/recshelf-server/internal/logger"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/store/postgres"
	"github.com/recshelf/recshelf-server/internal/store/sqlite"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// StoreHandle wraps the account database with shutdown capability.
type StoreHandle struct {
	store.Database
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the account database selected by DB_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return OpenDatabase(cfg, log)
}

// OpenDatabase opens the configured account database. Shared with the
// operator CLI, which runs without the container.
func OpenDatabase(cfg *config.Config, log *logger.Logger) (*StoreHandle, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		db, err := postgres.Open(ctx, cfg.Database.PostgresURL, log.Component("postgres"))
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverPostgres)
		return &StoreHandle{Database: db}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.SQLitePath, log.Component("sqlite"))
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverSQLite, "path", cfg.Database.SQLitePath)
		return &StoreHandle{Database: db}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// VisitorRegistryHandle wraps the visitor registry with Shutdownable.
type VisitorRegistryHandle struct {
	*visitor.Registry
}

// Shutdown implements do.Shutdownable.
func (h *VisitorRegistryHandle) Shutdown() error {
	return h.Close()
}

// ProvideVisitorRegistry provides the per-visitor stores, persisted to
// badger when VISITOR_PERSIST is set.
func ProvideVisitorRegistry(i do.Injector) (*VisitorRegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return OpenVisitorRegistry(cfg, log)
}

// OpenVisitorRegistry builds the registry described by cfg.Visitor.
func OpenVisitorRegistry(cfg *config.Config, log *logger.Logger) (*VisitorRegistryHandle, error) {
	var persister visitor.Persister
	if cfg.Visitor.Persist {
		p, err := visitor.OpenBadger(cfg.Visitor.StorePath, log.Component("visitor-badger"))
		if err != nil {
			return nil, fmt.Errorf("open visitor store: %w", err)
		}
		persister = p
		log.Info("Visitor stores persisted", "path", cfg.Visitor.StorePath)
	}

	registry := visitor.NewRegistry(visitor.Samples(), persister, log.Component("visitor"),
		visitor.WithIdleTTL(cfg.Visitor.IdleTTL))
	return &VisitorRegistryHandle{Registry: registry}, nil
}
