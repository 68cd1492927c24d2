package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// cacheSweepInterval is how often expired disk cache entries are purged.
	cacheSweepInterval = 30 * time.Minute
)

// Version is reported by /health and the OpenAPI document. Set with
// -ldflags "-X github.com/tugapp/tug/internal/di/providers.Version=...".
var Version = "dev"
