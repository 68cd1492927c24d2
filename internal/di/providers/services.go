package providers

import (
	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/config"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/media/avatars"
	"github.com/tugapp/tug/internal/service"
)

// AuthServiceHandle wraps the auth service, which owns a rate limiter.
type AuthServiceHandle struct {
	*service.AuthService
}

// Shutdown implements do.Shutdownable.
func (h *AuthServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*AuthServiceHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return &AuthServiceHandle{
		AuthService: service.NewAuthService(storeHandle.Store, tokenService, log.WithComponent("auth").Logger),
	}, nil
}

// ProvideValueService provides the value service.
func ProvideValueService(i do.Injector) (*service.ValueService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewValueService(storeHandle.Store, log.WithComponent("values").Logger), nil
}

// ProvideActivityService provides the activity service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(storeHandle.Store, cacheHandle.TwoTier, service.ActivityConfig{
		CommunityTTL:         cfg.Cache.CommunityTTL,
		BaselineDailyMinutes: cfg.Progress.CommunityBaselineDailyMinutes,
	}, log.WithComponent("activities").Logger), nil
}

// ProvideStravaService provides the Strava link and import service.
func ProvideStravaService(i do.Injector) (*service.StravaService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*StravaClientHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	activities := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStravaService(
		storeHandle.Store,
		clientHandle.Client,
		tokenService,
		activities,
		log.WithComponent("strava").Logger,
	), nil
}

// ProvideUserService provides the profile and account service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	authHandle := do.MustInvoke[*AuthServiceHandle](i)
	stravaService := do.MustInvoke[*service.StravaService](i)
	avatarStorage := do.MustInvoke[*avatars.Storage](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(
		storeHandle.Store,
		authHandle.AuthService,
		stravaService,
		avatarStorage,
		cacheHandle.TwoTier,
		log.WithComponent("users").Logger,
	), nil
}

// ProvideProgressService provides the server-side dashboard pipeline.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	values := do.MustInvoke[*service.ValueService](i)
	activities := do.MustInvoke[*service.ActivityService](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProgressService(values, activities, cacheHandle.TwoTier, service.ProgressConfig{
		MemoryTTL:            cfg.Cache.MemoryTTL,
		DiskTTL:              cfg.Cache.DiskTTL,
		BaselineDailyMinutes: cfg.Progress.CommunityBaselineDailyMinutes,
	}, log.WithComponent("progress").Logger), nil
}
