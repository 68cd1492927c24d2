package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tugapp/tug/internal/domain"
)

// hookSource lets a test decide each summary response by call number.
type hookSource struct {
	fakeSource
	n         atomic.Int32
	onSummary func(ctx context.Context, call int) (domain.ActivitySummary, error)
}

func (h *hookSource) GetActivitySummary(ctx context.Context, start, end time.Time, force bool) (domain.ActivitySummary, error) {
	call := int(h.n.Add(1))
	h.mu.Lock()
	h.summaryCalls++
	h.lastForce = force
	h.lastStart, h.lastEnd = start, end
	h.mu.Unlock()
	return h.onSummary(ctx, call)
}

type dashboardFixture struct {
	dash   *Dashboard
	source ActivitySource
	values *fakeValues
	cache  *mapCache
	mode   *ModeStore
}

func newDashboardFixture(t *testing.T, src ActivitySource) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{
		source: src,
		values: &fakeValues{byKind: map[domain.ValueKind][]domain.Value{
			domain.KindValue: {value("val-1", "Health", 5), value("val-2", "Family", 4)},
			domain.KindVice:  {{ID: "vice-1", Name: "Doomscrolling", Importance: 2, Kind: domain.KindVice, Active: true}},
		}},
		cache: newMapCache(),
		mode:  NewModeStore(domain.KindValue, nil),
	}
	fetcher := NewFetcher(FetcherConfig{
		Cache:  f.cache,
		Source: src,
		Now:    func() time.Time { return fixedNow },
	})
	f.dash = NewDashboard(DashboardConfig{
		Values:  f.values,
		Fetcher: fetcher,
		Cache:   f.cache,
		Mode:    f.mode,
	})
	t.Cleanup(f.dash.Close)
	return f
}

func loadedValues(t *testing.T, s ValuesState) []domain.Value {
	t.Helper()
	loaded, ok := s.(ValuesLoaded)
	require.True(t, ok, "values state is %T", s)
	return loaded.Values
}

func TestDashboard_Initialize(t *testing.T) {
	src := &fakeSource{
		summary: domain.ActivitySummary{Values: []domain.ActivityAggregate{
			{ValueName: "Health", Minutes: 100, CommunityAvg: 100},
			{ValueName: "Family", Minutes: 20, CommunityAvg: 100},
		}},
		stats: domain.ActivityStatistics{TotalActivities: 4, TotalMinutes: 120, AverageMinutes: 30},
	}
	fx := newDashboardFixture(t, src)

	view := fx.dash.View()
	assert.IsType(t, ValuesLoading{}, view.Values)
	assert.Equal(t, domain.TimeframeWeekly, view.Timeframe)

	require.NoError(t, fx.dash.Initialize(context.Background()))

	view = fx.dash.View()
	assert.Len(t, loadedValues(t, view.Values), 2)
	assert.False(t, view.ActivityLoading)
	assert.Equal(t, SourceSummary, view.Source)
	assert.Equal(t, 100, view.Data["Health"].Minutes)
	assert.Equal(t, 120, view.Statistics.TotalMinutes)
	assert.Equal(t, fixedNow, view.End)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), view.Start)

	// Health stated 100 actual 100; Family stated 80 actual 20.
	assert.Equal(t, domain.Alignment{Available: true, Percent: 50}, view.Alignment)
	assert.Len(t, view.ValueAlignments, 2)
	assert.Equal(t, "You're most aligned with Health. Consider spending more time on Family to better reflect its importance to you.", view.Insight)
}

func TestDashboard_InitializeSkipsCache(t *testing.T) {
	src := &fakeSource{summary: healthSummary(10, 10)}
	fx := newDashboardFixture(t, src)

	start, end := domain.TimeframeWeekly.Window(fixedNow)
	require.NoError(t, fx.cache.Set(context.Background(), CacheKey(domain.TimeframeWeekly, start, end),
		[]byte(`{"Health":{"name":"Health","minutes":999,"community_avg":1}}`), 0, 0))

	require.NoError(t, fx.dash.Initialize(context.Background()))
	assert.Equal(t, 10, fx.dash.View().Data["Health"].Minutes)
}

func TestDashboard_WarmCacheInitializeReadsCache(t *testing.T) {
	src := &fakeSource{summary: healthSummary(10, 10)}
	c := newMapCache()
	d := NewDashboard(DashboardConfig{
		Values: &fakeValues{byKind: map[domain.ValueKind][]domain.Value{
			domain.KindValue: {value("val-1", "Health", 5)},
		}},
		Fetcher:   NewFetcher(FetcherConfig{Cache: c, Source: src, Now: func() time.Time { return fixedNow }}),
		Cache:     c,
		WarmCache: true,
	})
	t.Cleanup(d.Close)

	start, end := domain.TimeframeWeekly.Window(fixedNow)
	require.NoError(t, c.Set(context.Background(), CacheKey(domain.TimeframeWeekly, start, end),
		[]byte(`{"Health":{"name":"Health","minutes":999,"community_avg":1}}`), time.Hour, time.Hour))

	require.NoError(t, d.Initialize(context.Background()))
	view := d.View()
	assert.Equal(t, SourceCache, view.Source)
	assert.Equal(t, 999, view.Data["Health"].Minutes)

	summaryCalls, _ := src.calls()
	assert.Zero(t, summaryCalls)
}

func TestDashboard_InitializeFallbackWaitsForValues(t *testing.T) {
	src := &fakeSource{
		summaryErr: errors.New("summary endpoint missing"),
		records: []domain.ActivityRecord{
			{ValueID: "val-1", Minutes: 40},
			{ValueID: "val-2", Minutes: 15},
		},
	}
	fx := newDashboardFixture(t, src)

	require.NoError(t, fx.dash.Initialize(context.Background()))

	view := fx.dash.View()
	assert.Equal(t, SourceLocal, view.Source)
	assert.Equal(t, domain.AggregateMap{
		"Health": {ValueName: "Health", Minutes: 40, CommunityAvg: 210},
		"Family": {ValueName: "Family", Minutes: 15, CommunityAvg: 210},
	}, view.Data)
}

func TestDashboard_ValuesFailure(t *testing.T) {
	fx := newDashboardFixture(t, &fakeSource{summary: healthSummary(10, 10)})
	fx.values.err = errors.New("values service down")

	require.NoError(t, fx.dash.Initialize(context.Background()))

	view := fx.dash.View()
	assert.Equal(t, ValuesFailed{Message: "values service down"}, view.Values)
	assert.Equal(t, InsightAddValues, view.Insight)
	assert.False(t, view.Alignment.Available)
}

func TestDashboard_Refresh(t *testing.T) {
	src := &fakeSource{summary: healthSummary(10, 10)}
	fx := newDashboardFixture(t, src)
	ctx := context.Background()
	require.NoError(t, fx.dash.Initialize(ctx))

	src.setSummary(healthSummary(25, 10))
	require.NoError(t, fx.dash.Refresh(ctx))

	assert.Equal(t, []string{ActivityCachePrefix}, fx.cache.cleared)
	assert.Equal(t, 1, fx.values.forced)
	assert.True(t, src.lastForce)
	assert.Equal(t, 25, fx.dash.View().Data["Health"].Minutes)
}

func TestDashboard_SelectTimeframe(t *testing.T) {
	src := &fakeSource{summary: healthSummary(10, 10)}
	fx := newDashboardFixture(t, src)
	ctx := context.Background()
	require.NoError(t, fx.dash.Initialize(ctx))
	before, _ := src.calls()

	require.NoError(t, fx.dash.SelectTimeframe(ctx, domain.TimeframeMonthly))

	after, _ := src.calls()
	assert.Equal(t, 1, after-before, "exactly one fetch per timeframe change")
	assert.True(t, src.lastForce)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), src.lastStart)

	view := fx.dash.View()
	assert.Equal(t, domain.TimeframeMonthly, view.Timeframe)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), view.Start)

	assert.Error(t, fx.dash.SelectTimeframe(ctx, "yearly"))
	assert.Equal(t, domain.TimeframeMonthly, fx.dash.View().Timeframe)
}

func TestDashboard_SupersededFetchDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &hookSource{onSummary: func(ctx context.Context, call int) (domain.ActivitySummary, error) {
		if call == 1 {
			close(started)
			<-release
			return healthSummary(1, 10), nil
		}
		return healthSummary(2, 10), nil
	}}
	fx := newDashboardFixture(t, src)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Go(func() {
		_ = fx.dash.SelectTimeframe(ctx, domain.TimeframeDaily)
	})
	<-started

	require.NoError(t, fx.dash.SelectTimeframe(ctx, domain.TimeframeMonthly))
	assert.False(t, fx.dash.View().ActivityLoading)

	close(release)
	wg.Wait()

	view := fx.dash.View()
	assert.Equal(t, 2, view.Data["Health"].Minutes, "stale result must not overwrite newer data")
	assert.Equal(t, domain.TimeframeMonthly, view.Timeframe)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), view.Start)
	assert.False(t, view.ActivityLoading)
}

func TestDashboard_CloseDropsInflightResults(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &hookSource{onSummary: func(ctx context.Context, call int) (domain.ActivitySummary, error) {
		close(started)
		<-release
		return healthSummary(50, 10), nil
	}}
	fx := newDashboardFixture(t, src)

	done := make(chan error, 1)
	go func() { done <- fx.dash.Initialize(context.Background()) }()
	<-started

	fx.dash.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, fx.dash.View().Data)
	assert.ErrorIs(t, fx.dash.Initialize(context.Background()), ErrClosed)
	assert.ErrorIs(t, fx.dash.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, fx.dash.SelectTimeframe(context.Background(), domain.TimeframeDaily), ErrClosed)
	assert.Zero(t, fx.mode.Subscribers())

	fx.dash.Close()
}

func TestDashboard_ModeChangeReloadsValues(t *testing.T) {
	fx := newDashboardFixture(t, &fakeSource{summary: healthSummary(10, 10)})
	require.NoError(t, fx.dash.Initialize(context.Background()))
	assert.Equal(t, "Health", loadedValues(t, fx.dash.View().Values)[0].Name)

	fx.mode.Set(domain.KindVice)

	assert.Eventually(t, func() bool {
		loaded, ok := fx.dash.View().Values.(ValuesLoaded)
		return ok && len(loaded.Values) == 1 && loaded.Values[0].Name == "Doomscrolling"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.KindVice, fx.dash.View().Mode)
}

func TestDashboard_ViewIsSnapshot(t *testing.T) {
	fx := newDashboardFixture(t, &fakeSource{summary: healthSummary(10, 10)})
	require.NoError(t, fx.dash.Initialize(context.Background()))

	view := fx.dash.View()
	view.Data["Health"] = domain.ActivityAggregate{Minutes: 9000}
	assert.Equal(t, 10, fx.dash.View().Data["Health"].Minutes)
}
