package api

import (
	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/service"
	"github.com/tugapp/tug/internal/store"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Auth       *service.AuthService
	Values     *service.ValueService
	Activities *service.ActivityService
	Progress   *service.ProgressService
	Users      *service.UserService
	Strava     *service.StravaService
}

// Infrastructure is what the health check probes. Cache may be nil.
type Infrastructure struct {
	Store store.Store
	Cache *cache.TwoTier
}
