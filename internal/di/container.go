// Package di provides dependency injection configuration for the Recshelf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/config"
	"github.com/recshelf/recshelf-server/internal/di/providers"
	"github.com/recshelf/recshelf-server/internal/logger"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideVisitorRegistry)

	// Auth and session layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideTokenVerifier)
	do.Provide(injector, providers.ProvideOracle)
	do.Provide(injector, providers.ProvideNotifier)

	// Query layer
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideFacade)

	// Business services
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvideTransferService)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[providers.AuthKey](injector),
		invoke[*validation.Validator](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.VisitorRegistryHandle](injector),
		invoke[*auth.TokenService](injector),
		invoke[*service.TokenVerifier](injector),
		invoke[*session.Oracle](injector),
		invoke[*providers.NotifierHandle](injector),
		invoke[*providers.CacheHandle](injector),
		invoke[*storage.Facade](injector),
		invoke[*service.RecommendationService](injector),
		invoke[*service.TransferService](injector),
		invoke[*service.SessionService](injector),
		invoke[*service.AuthService](injector),
		invoke[*providers.SessionCleanupJob](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
