package progress

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tugapp/tug/internal/domain"
)

// ErrClosed is returned by operations on a closed dashboard.
var ErrClosed = errors.New("dashboard closed")

// ValuesLoader loads the user's values of one kind.
type ValuesLoader interface {
	LoadValues(ctx context.Context, kind domain.ValueKind, force bool) ([]domain.Value, error)
}

// DashboardConfig configures a Dashboard.
type DashboardConfig struct {
	Values  ValuesLoader
	Fetcher *Fetcher
	// Cache is cleared of activity entries on Refresh. May be nil.
	Cache Cache
	// Mode selects values or vices. Nil means values only.
	Mode      *ModeStore
	Timeframe domain.Timeframe
	// WarmCache lets Initialize answer from the cache. Set it when the
	// cache outlives the dashboard, as a CLI's disk cache does.
	WarmCache bool
	Logger    *slog.Logger
}

// View is a snapshot of the dashboard for rendering. It shares nothing
// with the dashboard's live state.
type View struct {
	Timeframe       domain.Timeframe
	Mode            domain.ValueKind
	Values          ValuesState
	ActivityLoading bool
	Data            domain.AggregateMap
	Source          FetchSource
	Start, End      time.Time
	Statistics      domain.ActivityStatistics
	Alignment       domain.Alignment
	ValueAlignments []domain.ValueAlignment
	Insight         string
}

// Dashboard is the progress screen state machine.
//
// Every values load and activity fetch takes a generation number when it
// starts; its result is applied only if no newer load or fetch has started
// since and the dashboard is still open. A superseded result is dropped.
type Dashboard struct {
	values  ValuesLoader
	fetcher *Fetcher
	cache   Cache
	mode    *ModeStore
	warm    bool
	logger  *slog.Logger

	mu              sync.Mutex
	timeframe       domain.Timeframe
	valuesState     ValuesState
	activityLoading bool
	data            domain.AggregateMap
	source          FetchSource
	start, end      time.Time
	stats           domain.ActivityStatistics
	valuesGen       uint64
	fetchGen        uint64
	closed          bool

	// bg scopes work started by mode changes; Close cancels it.
	bg          context.Context
	cancelBg    context.CancelFunc
	inflight    sync.WaitGroup
	unsubscribe func()
}

// NewDashboard creates a dashboard in the loading state. Call Initialize to
// load data.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	tf := cfg.Timeframe
	if !tf.Valid() {
		tf = domain.TimeframeWeekly
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bg, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		values:      cfg.Values,
		fetcher:     cfg.Fetcher,
		cache:       cfg.Cache,
		mode:        cfg.Mode,
		warm:        cfg.WarmCache,
		logger:      logger,
		timeframe:   tf,
		valuesState: ValuesLoading{},
		data:        domain.AggregateMap{},
		bg:          bg,
		cancelBg:    cancel,
	}
	if d.mode != nil {
		d.unsubscribe = d.mode.Subscribe(d.onModeChange)
	}
	return d
}

// Initialize loads values and the first activity fetch concurrently. The
// fetch only waits for values if it needs them for its fallback. The first
// fetch skips the cache unless the dashboard was built with WarmCache.
func (d *Dashboard) Initialize(ctx context.Context) error {
	if d.isClosed() {
		return ErrClosed
	}

	valuesDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(valuesDone)
		d.loadValues(gctx, false)
		return nil
	})
	g.Go(func() error {
		d.fetchActivity(gctx, FetchOptions{
			FirstLoad: !d.warm,
			Values: func(ctx context.Context) []domain.Value {
				select {
				case <-valuesDone:
				case <-ctx.Done():
				}
				return d.activeValues()
			},
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Refresh clears cached activity data, reloads values, then refetches
// activity, all before returning.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if d.isClosed() {
		return ErrClosed
	}

	if d.cache != nil {
		if err := d.cache.ClearByPrefix(ctx, ActivityCachePrefix); err != nil {
			d.logger.Debug("cache clear failed", "error", err)
		}
	}
	d.loadValues(ctx, true)
	d.fetchActivity(ctx, FetchOptions{Force: true, Values: d.currentValues})
	return ctx.Err()
}

// SelectTimeframe switches the window immediately and performs one forced
// refetch for it.
func (d *Dashboard) SelectTimeframe(ctx context.Context, tf domain.Timeframe) error {
	if !tf.Valid() {
		return errors.New("invalid timeframe: " + string(tf))
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.timeframe = tf
	d.mu.Unlock()

	d.fetchActivity(ctx, FetchOptions{Force: true, Values: d.currentValues})
	return ctx.Err()
}

// View returns a consistent snapshot of the dashboard.
func (d *Dashboard) View() View {
	d.mu.Lock()
	v := View{
		Timeframe:       d.timeframe,
		Mode:            d.currentMode(),
		Values:          d.valuesState,
		ActivityLoading: d.activityLoading,
		Data:            maps.Clone(d.data),
		Source:          d.source,
		Start:           d.start,
		End:             d.end,
		Statistics:      d.stats,
	}
	d.mu.Unlock()

	active := activeValuesOf(v.Values)
	v.Alignment = CalculateAlignment(active, v.Data)
	v.ValueAlignments = ValueAlignments(active, v.Data)
	v.Insight = GenerateInsight(active, v.Data)
	return v
}

// Close disposes of the dashboard. Results of loads still in flight are
// dropped, and Close waits for mode-triggered reloads to return.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.cancelBg()
	d.inflight.Wait()
}

func (d *Dashboard) onModeChange(kind domain.ValueKind) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.inflight.Done()
		d.logger.Debug("mode changed, reloading values", "mode", kind)
		d.loadValues(d.bg, false)
	}()
}

func (d *Dashboard) loadValues(ctx context.Context, force bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.valuesGen++
	gen := d.valuesGen
	kind := d.currentMode()
	d.valuesState = ValuesLoading{}
	d.mu.Unlock()

	values, err := d.values.LoadValues(ctx, kind, force)

	var next ValuesState = ValuesLoaded{Values: values}
	if err != nil {
		d.logger.Warn("values load failed", "mode", kind, "error", err)
		next = ValuesFailed{Message: err.Error()}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.valuesGen {
		d.logger.Debug("dropping superseded values load", "generation", gen)
		return
	}
	d.valuesState = next
}

// fetchActivity runs one fetch for the current timeframe. The loading flag
// is set for its duration unless a newer fetch has taken over.
func (d *Dashboard) fetchActivity(ctx context.Context, opts FetchOptions) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.fetchGen++
	gen := d.fetchGen
	tf := d.timeframe
	d.activityLoading = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if gen == d.fetchGen {
			d.activityLoading = false
		}
		d.mu.Unlock()
	}()

	var (
		result FetchResult
		stats  domain.ActivityStatistics
	)
	var g errgroup.Group
	g.Go(func() error {
		result = d.fetcher.Fetch(ctx, tf, opts)
		return nil
	})
	g.Go(func() error {
		stats = d.fetcher.FetchStatistics(ctx, tf, opts.Force || opts.FirstLoad)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // both goroutines always return nil

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.fetchGen {
		d.logger.Debug("dropping superseded activity fetch", "timeframe", tf, "generation", gen)
		return
	}
	d.data = result.Data
	d.source = result.Source
	d.start, d.end = result.Start, result.End
	d.stats = stats
}

func (d *Dashboard) currentValues(context.Context) []domain.Value {
	return d.activeValues()
}

func (d *Dashboard) activeValues() []domain.Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	return activeValuesOf(d.valuesState)
}

// currentMode reads the mode store; it takes no dashboard lock.
func (d *Dashboard) currentMode() domain.ValueKind {
	if d.mode == nil {
		return domain.KindValue
	}
	return d.mode.Current()
}

func (d *Dashboard) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
