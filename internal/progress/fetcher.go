package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/tugapp/tug/internal/domain"
)

// ActivityCachePrefix starts every activity aggregate cache key.
const ActivityCachePrefix = "activity_"

// Default cache lifetimes for fetched aggregates.
const (
	DefaultMemoryTTL = 10 * time.Minute
	DefaultDiskTTL   = time.Hour
)

// DefaultBaselineDailyMinutes is the per-day community average assumed when
// aggregates are computed locally from raw activities.
const DefaultBaselineDailyMinutes = 30

// FetchWarning is the notification shown when remote data is unavailable.
const FetchWarning = "Couldn't load your activity data. Showing empty totals for now."

// Cache is the two-tier cache the fetcher reads through.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, memTTL, diskTTL time.Duration) error
	ClearByPrefix(ctx context.Context, prefix string) error
}

// ActivitySource is the remote activity service.
type ActivitySource interface {
	GetActivityStatistics(ctx context.Context, start, end time.Time, force bool) (domain.ActivityStatistics, error)
	GetActivitySummary(ctx context.Context, start, end time.Time, force bool) (domain.ActivitySummary, error)
	GetActivities(ctx context.Context, start, end time.Time, force bool) ([]domain.ActivityRecord, error)
}

// Notifier surfaces non-blocking warnings to the user.
type Notifier interface {
	Warn(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Warn calls f.
func (f NotifierFunc) Warn(message string) { f(message) }

// FetchSource records where a FetchResult came from.
type FetchSource string

// Fetch sources.
const (
	SourceCache    FetchSource = "cache"
	SourceSummary  FetchSource = "summary"
	SourceLocal    FetchSource = "local"    // aggregated from raw activities
	SourceDefaults FetchSource = "defaults" // remote failed; zeroed aggregates
)

// ValuesFunc resolves the user's values for the local aggregation join and
// the zeroed defaults. It may block until values are loaded.
type ValuesFunc func(ctx context.Context) []domain.Value

// FetchOptions controls cache use for one fetch.
type FetchOptions struct {
	// Force skips the cache read.
	Force bool
	// FirstLoad skips the cache read on a screen's first fetch.
	FirstLoad bool
	// Values is consulted only when the summary is unavailable or every
	// remote call failed. Nil means no known values.
	Values ValuesFunc
}

// FetchResult is the outcome of a fetch. Remote failures never surface as
// errors; Err records the failure behind a SourceDefaults result.
type FetchResult struct {
	Data   domain.AggregateMap
	Source FetchSource
	Start  time.Time
	End    time.Time
	Err    error
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Cache    Cache
	Source   ActivitySource
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time

	MemoryTTL time.Duration
	DiskTTL   time.Duration
	// BaselineDailyMinutes scales the community average of locally
	// aggregated data by the window length. Non-positive uses the default.
	BaselineDailyMinutes int
}

// Fetcher produces per-value activity aggregates for a timeframe.
type Fetcher struct {
	cache    Cache
	source   ActivitySource
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	memTTL   time.Duration
	diskTTL  time.Duration
	baseline int
}

// NewFetcher creates a Fetcher. Cache and Notifier may be nil.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		cache:    cfg.Cache,
		source:   cfg.Source,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      cfg.Now,
		memTTL:   cfg.MemoryTTL,
		diskTTL:  cfg.DiskTTL,
		baseline: cfg.BaselineDailyMinutes,
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.memTTL <= 0 {
		f.memTTL = DefaultMemoryTTL
	}
	if f.diskTTL <= 0 {
		f.diskTTL = DefaultDiskTTL
	}
	if f.baseline <= 0 {
		f.baseline = DefaultBaselineDailyMinutes
	}
	return f
}

// CacheKey returns the aggregate cache key for a window:
// activity_<timeframe>_<start date>_<end date>. Only the calendar dates are
// keyed, so fetches later the same day share an entry until its TTL runs out.
func CacheKey(tf domain.Timeframe, start, end time.Time) string {
	return ActivityCachePrefix + string(tf) + "_" + start.Format(time.DateOnly) + "_" + end.Format(time.DateOnly)
}

// Fetch returns aggregates for tf's window ending now.
//
// Without Force or FirstLoad the cache is consulted first and a hit returns
// without any remote call. Otherwise the summary endpoint is asked, falling
// back to aggregating raw activities; the result is cached before it is
// returned. If every remote call fails the result is zeroed aggregates for
// all known values and a warning is sent to the notifier.
func (f *Fetcher) Fetch(ctx context.Context, tf domain.Timeframe, opts FetchOptions) FetchResult {
	start, end := tf.Window(f.now())
	key := CacheKey(tf, start, end)
	log := f.logger.With("timeframe", tf, "key", key)

	if !opts.Force && !opts.FirstLoad {
		if data, ok := f.readCache(ctx, key, log); ok {
			return FetchResult{Data: data, Source: SourceCache, Start: start, End: end}
		}
	}

	data, source, err := f.fetchRemote(ctx, tf, start, end, opts, log)
	if err != nil {
		log.Warn("activity fetch failed, using defaults", "error", err)
		if f.notifier != nil {
			f.notifier.Warn(FetchWarning)
		}
		return FetchResult{
			Data:   domain.ZeroAggregates(resolve(ctx, opts.Values)),
			Source: SourceDefaults,
			Start:  start,
			End:    end,
			Err:    err,
		}
	}

	f.writeCache(ctx, key, data, log)
	return FetchResult{Data: data, Source: source, Start: start, End: end}
}

// FetchStatistics returns counters for tf's window, or zeros if the remote
// call fails.
func (f *Fetcher) FetchStatistics(ctx context.Context, tf domain.Timeframe, force bool) domain.ActivityStatistics {
	start, end := tf.Window(f.now())
	stats, err := f.source.GetActivityStatistics(ctx, start, end, force)
	if err != nil {
		f.logger.Warn("activity statistics unavailable", "timeframe", tf, "error", err)
		return domain.ActivityStatistics{}
	}
	return stats
}

func (f *Fetcher) fetchRemote(ctx context.Context, tf domain.Timeframe, start, end time.Time, opts FetchOptions, log *slog.Logger) (domain.AggregateMap, FetchSource, error) {
	summary, summaryErr := f.source.GetActivitySummary(ctx, start, end, opts.Force)
	if summaryErr == nil {
		return summary.ToMap(), SourceSummary, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	log.Debug("activity summary unavailable, aggregating locally", "error", summaryErr)

	records, err := f.source.GetActivities(ctx, start, end, opts.Force)
	if err != nil {
		return nil, "", errors.Join(summaryErr, err)
	}
	communityAvg := f.baseline * tf.Days()
	return Aggregate(resolve(ctx, opts.Values), records, communityAvg), SourceLocal, nil
}

func (f *Fetcher) readCache(ctx context.Context, key string, log *slog.Logger) (domain.AggregateMap, bool) {
	if f.cache == nil {
		return nil, false
	}
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		log.Debug("cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var data domain.AggregateMap
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Debug("cache entry undecodable", "error", err)
		return nil, false
	}
	return data, true
}

func (f *Fetcher) writeCache(ctx context.Context, key string, data domain.AggregateMap, log *slog.Logger) {
	if f.cache == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		log.Debug("cache encode failed", "error", err)
		return
	}
	if err := f.cache.Set(ctx, key, raw, f.memTTL, f.diskTTL); err != nil {
		log.Debug("cache write failed", "error", err)
	}
}

// Aggregate sums record minutes per value and keys the result by value
// name. Every value gets an entry; records for unknown values are dropped.
// Each entry carries communityAvg.
func Aggregate(values []domain.Value, records []domain.ActivityRecord, communityAvg int) domain.AggregateMap {
	names := make(map[string]string, len(values))
	out := make(domain.AggregateMap, len(values))
	for _, v := range values {
		names[v.ID] = v.Name
		out[v.Name] = domain.ActivityAggregate{ValueName: v.Name, CommunityAvg: communityAvg}
	}
	for _, r := range records {
		name, ok := names[r.ValueID]
		if !ok {
			continue
		}
		agg := out[name]
		agg.Minutes += max(r.Minutes, 0)
		out[name] = agg
	}
	return out
}

func resolve(ctx context.Context, fn ValuesFunc) []domain.Value {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
