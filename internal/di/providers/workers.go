package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/tugapp/tug/internal/logger"
)

// CacheSweepJob periodically purges expired disk cache entries.
type CacheSweepJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *CacheSweepJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideCacheSweepJob provides the periodic cache sweep.
func ProvideCacheSweepJob(i do.Injector) (*CacheSweepJob, error) {
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &CacheSweepJob{cancel: cancel, done: make(chan struct{})}

	sweep := func() {
		if removed, err := cacheHandle.Sweep(ctx); err != nil {
			if ctx.Err() == nil {
				log.Warn("Cache sweep failed", "error", err)
			}
		} else if removed > 0 {
			log.Info("Cache sweep completed", "expired", removed)
		}
	}

	go func() {
		defer close(job.done)
		ticker := time.NewTicker(cacheSweepInterval)
		defer ticker.Stop()

		// Initial sweep on startup
		sweep()

		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Cache sweep job started", "interval", cacheSweepInterval)

	return job, nil
}
