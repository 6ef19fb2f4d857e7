package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/config"
	"github.com/recshelf/recshelf-server/internal/logger"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/validation"
)

// CacheHandle wraps the query cache and its session listener.
type CacheHandle struct {
	cache.Cache
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideCache provides the query cache selected by CACHE_BACKEND and
// subscribes it to session changes.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	notifier := do.MustInvoke[*NotifierHandle](i)

	var (
		c   cache.Cache
		err error
	)
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		c, err = cache.NewRedis(context.Background(), cfg.Cache.RedisAddr, cfg.Cache.TTL, log.Component("cache"))
	default:
		c, err = cache.NewMemory(cfg.Cache.TTL)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := notifier.Subscribe(ctx)
	if err != nil {
		cancel()
		c.Close()
		return nil, err
	}
	go cache.InvalidateOnSessionChange(ctx, c, events, log.Component("cache"))

	log.Info("Query cache ready", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	return &CacheHandle{Cache: c, cancel: cancel}, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideFacade provides the storage facade.
func ProvideFacade(i do.Injector) (*storage.Facade, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	visitors := do.MustInvoke[*VisitorRegistryHandle](i)
	oracle := do.MustInvoke[*session.Oracle](i)

	return storage.New(storeHandle.Database, visitors.Registry, oracle, storage.Options{
		AllowVisitorWrites: cfg.Visitor.AllowWrites,
		DevReadLatency:     cfg.Visitor.DevReadLatency,
	}, log.Component("storage")), nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	facade := do.MustInvoke[*storage.Facade](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewRecommendationService(facade, cacheHandle.Cache, validator, cfg.Visitor.Limit, log.Logger), nil
}

// ProvideTransferService provides the visitor-to-account transfer.
func ProvideTransferService(i do.Injector) (*service.TransferService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	facade := do.MustInvoke[*storage.Facade](i)
	visitors := do.MustInvoke[*VisitorRegistryHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)

	return service.NewTransferService(facade, visitors.Registry, cacheHandle.Cache, log.Component("transfer")), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Database, tokens, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	transfer := do.MustInvoke[*service.TransferService](i)
	notifier := do.MustInvoke[*NotifierHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Database, tokens, sessions, transfer, notifier.Notifier, validator, log.Logger), nil
}
