// Package di provides dependency injection configuration for the Tug server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/config"
	"github.com/tugapp/tug/internal/di/providers"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to injector. The config provider is
// included; tests override it with do.OverrideValue before invoking.
func Register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideAvatarStorage)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Integrations
	do.Provide(injector, providers.ProvideStravaClient)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideValueService)
	do.Provide(injector, providers.ProvideActivityService)
	do.Provide(injector, providers.ProvideStravaService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideProgressService)

	// Workers
	do.Provide(injector, providers.ProvideCacheSweepJob)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services. Invoking the HTTP server starts it.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.StravaClientHandle](injector)

	// Business services
	_ = do.MustInvoke[*providers.AuthServiceHandle](injector)
	_ = do.MustInvoke[*service.ValueService](injector)
	_ = do.MustInvoke[*service.ActivityService](injector)
	_ = do.MustInvoke[*service.StravaService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.ProgressService](injector)

	// Workers
	_ = do.MustInvoke[*providers.CacheSweepJob](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
