package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/id"
	"github.com/tugapp/tug/internal/progress"
	"github.com/tugapp/tug/internal/store"
)

// CommunityCachePrefix starts every community average cache key.
const CommunityCachePrefix = "community_"

// Activity limits.
const (
	MaxActivityMinutes = 24 * 60

	defaultCommunityTTL = 15 * time.Minute
)

// ActivityConfig tunes the activity service.
type ActivityConfig struct {
	// CommunityTTL bounds how stale shared community averages may be.
	CommunityTTL time.Duration
	// BaselineDailyMinutes stands in for the community average of a value
	// name nobody else has logged, scaled by the window length in days.
	BaselineDailyMinutes int
}

// ActivityService records activities and answers the dashboard's
// statistics, summary and listing queries.
type ActivityService struct {
	store  store.Store
	cache  *cache.TwoTier
	cfg    ActivityConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewActivityService creates a new activity service. The cache may be nil.
func NewActivityService(store store.Store, c *cache.TwoTier, cfg ActivityConfig, logger *slog.Logger) *ActivityService {
	if cfg.CommunityTTL <= 0 {
		cfg.CommunityTTL = defaultCommunityTTL
	}
	if cfg.BaselineDailyMinutes <= 0 {
		cfg.BaselineDailyMinutes = progress.DefaultBaselineDailyMinutes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ActivityService{store: store, cache: c, cfg: cfg, logger: logger, now: time.Now}
}

// LogActivityRequest holds a manually logged activity.
type LogActivityRequest struct {
	ValueID    string    `json:"value_id" validate:"required"`
	Name       string    `json:"name,omitempty" validate:"maxrunes=100"`
	Minutes    int       `json:"duration" validate:"gte=1,lte=1440"`
	OccurredAt time.Time `json:"date,omitzero"`
	Notes      string    `json:"notes,omitempty" validate:"maxrunes=1000"`
}

// GetActivityStatistics returns the user's counters for [start, end].
// Statistics are always computed fresh; force exists so every source
// method shares one shape.
func (s *ActivityService) GetActivityStatistics(ctx context.Context, userID string, start, end time.Time, _ bool) (domain.ActivityStatistics, error) {
	if err := checkWindow(start, end); err != nil {
		return domain.ActivityStatistics{}, err
	}
	stats, err := s.store.ActivityStatistics(ctx, userID, start, end)
	if err != nil {
		return domain.ActivityStatistics{}, fmt.Errorf("activity statistics: %w", err)
	}
	return stats, nil
}

// GetActivitySummary returns minutes per active value in [start, end], each
// with the community average for values of the same name. Community data is
// shared across users and cached unless force is set.
func (s *ActivityService) GetActivitySummary(ctx context.Context, userID string, start, end time.Time, force bool) (domain.ActivitySummary, error) {
	if err := checkWindow(start, end); err != nil {
		return domain.ActivitySummary{}, err
	}

	values, err := s.store.ListValues(ctx, userID, "", true)
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("list values: %w", err)
	}
	minutes, err := s.store.SumMinutesByValue(ctx, userID, start, end)
	if err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("sum minutes: %w", err)
	}
	community, err := s.community(ctx, start, end, force)
	if err != nil {
		return domain.ActivitySummary{}, err
	}

	baseline := s.cfg.BaselineDailyMinutes * windowDays(start, end)
	summary := domain.ActivitySummary{Values: make([]domain.ActivityAggregate, 0, len(values))}
	for _, v := range values {
		avg := community[v.Name].Average()
		if avg == 0 {
			avg = baseline
		}
		summary.Values = append(summary.Values, domain.ActivityAggregate{
			ValueName:    v.Name,
			Minutes:      minutes[v.ID],
			CommunityAvg: avg,
		})
	}
	return summary, nil
}

// GetActivities returns the user's raw activities in [start, end].
func (s *ActivityService) GetActivities(ctx context.Context, userID string, start, end time.Time, _ bool) ([]domain.ActivityRecord, error) {
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}
	records, err := s.store.ListActivities(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return records, nil
}

// ListActivitiesPage returns one page of the user's activities in [start, end].
func (s *ActivityService) ListActivitiesPage(ctx context.Context, userID string, start, end time.Time, params store.PaginationParams) (store.Page[domain.ActivityRecord], error) {
	records, err := s.GetActivities(ctx, userID, start, end, false)
	if err != nil {
		return store.Page[domain.ActivityRecord]{}, err
	}
	page, err := store.Paginate(records, params)
	if err != nil {
		return store.Page[domain.ActivityRecord]{}, domainerrors.Validation("invalid cursor").WithCause(err)
	}
	return page, nil
}

// LogActivity records time spent on one of the user's values.
func (s *ActivityService) LogActivity(ctx context.Context, userID string, req LogActivityRequest) (*domain.ActivityRecord, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetValue(ctx, userID, req.ValueID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Validation("value_id does not match any of your values")
		}
		return nil, fmt.Errorf("get value: %w", err)
	}

	now := s.now()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	if occurredAt.After(now.Add(time.Minute)) {
		return nil, domainerrors.Validation("date cannot be in the future")
	}

	activityID, err := id.Generate(id.PrefixActivity)
	if err != nil {
		return nil, fmt.Errorf("generate activity ID: %w", err)
	}
	a := &domain.ActivityRecord{
		ID:         activityID,
		UserID:     userID,
		ValueID:    req.ValueID,
		Name:       req.Name,
		Minutes:    req.Minutes,
		OccurredAt: occurredAt,
		Notes:      req.Notes,
		Source:     domain.SourceManual,
		CreatedAt:  now,
	}
	if err := s.store.CreateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	s.invalidate(ctx, userID)

	s.logger.Debug("activity logged", "user_id", userID, "value_id", a.ValueID, "minutes", a.Minutes)
	return a, nil
}

// DeleteActivity removes one of the user's activities.
func (s *ActivityService) DeleteActivity(ctx context.Context, userID, activityID string) error {
	if err := s.store.DeleteActivity(ctx, userID, activityID); err != nil {
		return notFound(err, "activity not found")
	}
	s.invalidate(ctx, userID)
	return nil
}

// importActivity stores an activity from an external source. It reports
// false when the activity was already imported.
func (s *ActivityService) importActivity(ctx context.Context, a *domain.ActivityRecord) (bool, error) {
	exists, err := s.store.ActivityExistsByExternalID(ctx, a.UserID, a.Source, a.ExternalID)
	if err != nil {
		return false, fmt.Errorf("check imported: %w", err)
	}
	if exists {
		return false, nil
	}

	if a.ID == "" {
		if a.ID, err = id.Generate(id.PrefixActivity); err != nil {
			return false, fmt.Errorf("generate activity ID: %w", err)
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if err := s.store.CreateActivity(ctx, a); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create activity: %w", err)
	}
	return true, nil
}

// invalidate drops the user's cached dashboard aggregates after a write.
func (s *ActivityService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Namespace(userID).ClearByPrefix(ctx, progress.ActivityCachePrefix); err != nil {
		s.logger.Debug("cache invalidation failed", "user_id", userID, "error", err)
	}
}

// community returns community totals per value name. Windows end at "now"
// and never repeat exactly, so the cache key buckets both bounds to the
// community TTL.
func (s *ActivityService) community(ctx context.Context, start, end time.Time, force bool) (map[string]store.CommunityStat, error) {
	key := CommunityCachePrefix +
		strconv.FormatInt(start.Truncate(s.cfg.CommunityTTL).Unix(), 10) + "_" +
		strconv.FormatInt(end.Truncate(s.cfg.CommunityTTL).Unix(), 10)

	if s.cache != nil && !force {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("community cache read failed", "key", key, "error", err)
		}
		if ok {
			var stats map[string]store.CommunityStat
			if err := json.Unmarshal(raw, &stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.store.CommunityMinutesByValueName(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("community minutes: %w", err)
	}

	if s.cache != nil {
		raw, err := json.Marshal(stats)
		if err == nil {
			err = s.cache.Set(ctx, key, raw, s.cfg.CommunityTTL, s.cfg.CommunityTTL)
		}
		if err != nil {
			s.logger.Debug("community cache write failed", "key", key, "error", err)
		}
	}
	return stats, nil
}

func checkWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domainerrors.Validation("start and end are required")
	}
	if end.Before(start) {
		return domainerrors.Validation("end must not be before start")
	}
	return nil
}

// windowDays is the window length in whole days, at least one.
func windowDays(start, end time.Time) int {
	return max(int(math.Round(end.Sub(start).Hours()/24)), 1)
}
