package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/progress"
)

// ProgressConfig tunes server-side dashboard runs.
type ProgressConfig struct {
	MemoryTTL            time.Duration
	DiskTTL              time.Duration
	BaselineDailyMinutes int
}

// ProgressReport is one run of the dashboard pipeline for a user.
type ProgressReport struct {
	Timeframe       domain.Timeframe          `json:"timeframe"`
	Mode            domain.ValueKind          `json:"mode"`
	Start           time.Time                 `json:"start"`
	End             time.Time                 `json:"end"`
	Source          progress.FetchSource      `json:"source"`
	Values          []domain.Value            `json:"values"`
	Aggregates      domain.AggregateMap       `json:"aggregates"`
	Statistics      domain.ActivityStatistics `json:"statistics"`
	Alignment       string                    `json:"alignment"` // "NN%" or "N/A"
	ValueAlignments []domain.ValueAlignment   `json:"value_alignments"`
	Insight         string                    `json:"insight"`
	Warning         string                    `json:"warning,omitempty"`
}

// ProgressService runs the dashboard pipeline on the server: fetch through
// the per-user cache, then alignment and insight.
type ProgressService struct {
	values     *ValueService
	activities *ActivityService
	cache      *cache.TwoTier
	cfg        ProgressConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewProgressService creates a progress service. The cache may be nil.
func NewProgressService(values *ValueService, activities *ActivityService, c *cache.TwoTier, cfg ProgressConfig, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProgressService{
		values:     values,
		activities: activities,
		cache:      c,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Progress computes the dashboard for userID. refresh drops the user's
// cached aggregates and bypasses the cache for this run.
func (s *ProgressService) Progress(ctx context.Context, userID string, tf domain.Timeframe, kind domain.ValueKind, refresh bool) (*ProgressReport, error) {
	if !tf.Valid() {
		tf = domain.TimeframeWeekly
	}
	if !kind.Valid() {
		kind = domain.KindValue
	}

	var c progress.Cache
	if s.cache != nil {
		ns := s.cache.Namespace(userID)
		if refresh {
			if err := ns.ClearByPrefix(ctx, progress.ActivityCachePrefix); err != nil {
				s.logger.Debug("cache clear failed", "user_id", userID, "error", err)
			}
		}
		c = ns
	}

	values, err := s.values.ListValues(ctx, userID, kind, true)
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	var warning string
	fetcher := progress.NewFetcher(progress.FetcherConfig{
		Cache:                c,
		Source:               userActivitySource{activities: s.activities, userID: userID},
		Notifier:             progress.NotifierFunc(func(msg string) { warning = msg }),
		Logger:               s.logger.With("user_id", userID),
		Now:                  s.now,
		MemoryTTL:            s.cfg.MemoryTTL,
		DiskTTL:              s.cfg.DiskTTL,
		BaselineDailyMinutes: s.cfg.BaselineDailyMinutes,
	})

	result := fetcher.Fetch(ctx, tf, progress.FetchOptions{
		Force:  refresh,
		Values: func(context.Context) []domain.Value { return values },
	})
	stats := fetcher.FetchStatistics(ctx, tf, refresh)

	return &ProgressReport{
		Timeframe:       tf,
		Mode:            kind,
		Start:           result.Start,
		End:             result.End,
		Source:          result.Source,
		Values:          values,
		Aggregates:      result.Data,
		Statistics:      stats,
		Alignment:       progress.CalculateAlignment(values, result.Data).String(),
		ValueAlignments: progress.ValueAlignments(values, result.Data),
		Insight:         progress.GenerateInsight(values, result.Data),
		Warning:         warning,
	}, nil
}

// userActivitySource binds the activity service to one user.
type userActivitySource struct {
	activities *ActivityService
	userID     string
}

func (u userActivitySource) GetActivityStatistics(ctx context.Context, start, end time.Time, force bool) (domain.ActivityStatistics, error) {
	return u.activities.GetActivityStatistics(ctx, u.userID, start, end, force)
}

func (u userActivitySource) GetActivitySummary(ctx context.Context, start, end time.Time, force bool) (domain.ActivitySummary, error) {
	return u.activities.GetActivitySummary(ctx, u.userID, start, end, force)
}

func (u userActivitySource) GetActivities(ctx context.Context, start, end time.Time, force bool) ([]domain.ActivityRecord, error) {
	return u.activities.GetActivities(ctx, u.userID, start, end, force)
}
