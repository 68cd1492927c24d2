package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/config"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/media/avatars"
	"github.com/tugapp/tug/internal/strava"
)

// ProvideAvatarStorage provides profile picture storage.
func ProvideAvatarStorage(i do.Injector) (*avatars.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := avatars.NewStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("avatar storage: %w", err)
	}

	log.Info("Avatar storage initialized")
	return storage, nil
}

// StravaClientHandle wraps the Strava client, which is nil when Strava is
// not configured.
type StravaClientHandle struct {
	Client *strava.Client
}

// Shutdown implements do.Shutdownable.
func (h *StravaClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideStravaClient provides the Strava API client.
func ProvideStravaClient(i do.Injector) (*StravaClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Strava.Enabled() {
		log.Info("Strava import disabled: no client credentials configured")
		return &StravaClientHandle{}, nil
	}

	client := strava.New(strava.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  cfg.Strava.RedirectURL,
		Logger:       log.WithComponent("strava").Logger,
	})

	log.Info("Strava client ready", "redirect_url", cfg.Strava.RedirectURL)
	return &StravaClientHandle{Client: client}, nil
}
