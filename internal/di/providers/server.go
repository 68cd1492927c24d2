package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/api"
	"github.com/tugapp/tug/internal/config"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/service"
)

// APIServerHandle wraps the API handler, which owns a rate limiter.
type APIServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *APIServerHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideAPIServer provides the routed API handler.
func ProvideAPIServer(i do.Injector) (*APIServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	authHandle := do.MustInvoke[*AuthServiceHandle](i)

	services := &api.Services{
		Auth:       authHandle.AuthService,
		Values:     do.MustInvoke[*service.ValueService](i),
		Activities: do.MustInvoke[*service.ActivityService](i),
		Progress:   do.MustInvoke[*service.ProgressService](i),
		Users:      do.MustInvoke[*service.UserService](i),
		Strava:     do.MustInvoke[*service.StravaService](i),
	}

	handler := api.NewServer(
		api.Infrastructure{Store: storeHandle.Store, Cache: cacheHandle.TwoTier},
		services,
		api.Options{
			Version:     Version,
			CORSOrigins: cfg.Server.CORSOrigins,
			PublicURL:   cfg.Server.PublicURL,
		},
		log.WithComponent("http").Logger,
	)
	return &APIServerHandle{Server: handler}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer binds the listen address and starts serving in the
// background. A port already in use fails here rather than in the goroutine.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*APIServerHandle](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		log.Info("HTTP server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", ln.Addr().String())

	return &HTTPServerHandle{Server: srv}, nil
}
