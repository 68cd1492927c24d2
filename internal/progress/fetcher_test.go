package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/domain"
)

func newTestFetcher(src ActivitySource, c Cache, n Notifier) *Fetcher {
	return NewFetcher(FetcherConfig{
		Cache:    c,
		Source:   src,
		Notifier: n,
		Now:      func() time.Time { return fixedNow },
	})
}

func healthSummary(minutes, avg int) domain.ActivitySummary {
	return domain.ActivitySummary{Values: []domain.ActivityAggregate{
		{ValueName: "Health", Minutes: minutes, CommunityAvg: avg},
	}}
}

func TestCacheKey(t *testing.T) {
	start, end := domain.TimeframeWeekly.Window(fixedNow)
	assert.Equal(t,
		"activity_weekly_2026-04-08_2026-04-15",
		CacheKey(domain.TimeframeWeekly, start, end))
}

func TestFetch_MissFetchesAndCaches(t *testing.T) {
	src := &fakeSource{summary: healthSummary(90, 120)}
	c := newMapCache()
	f := newTestFetcher(src, c, nil)

	res := f.Fetch(context.Background(), domain.TimeframeWeekly, FetchOptions{})
	assert.Equal(t, SourceSummary, res.Source)
	assert.Equal(t, domain.ActivityAggregate{ValueName: "Health", Minutes: 90, CommunityAvg: 120}, res.Data["Health"])
	assert.NoError(t, res.Err)

	raw, ok, err := c.Get(context.Background(), CacheKey(domain.TimeframeWeekly, res.Start, res.End))
	require.NoError(t, err)
	require.True(t, ok)
	var cached domain.AggregateMap
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, res.Data, cached)
}

func TestFetch_HitSkipsRemote(t *testing.T) {
	src := &fakeSource{summary: healthSummary(90, 120)}
	f := newTestFetcher(src, newMapCache(), nil)
	ctx := context.Background()

	f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{})
	src.setSummary(healthSummary(999, 1))

	res := f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{})
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 90, res.Data["Health"].Minutes)

	summaryCalls, _ := src.calls()
	assert.Equal(t, 1, summaryCalls)
}

func TestFetch_HitLaterSameDay(t *testing.T) {
	src := &fakeSource{summary: healthSummary(90, 120)}
	now := fixedNow
	f := NewFetcher(FetcherConfig{
		Cache:  newMapCache(),
		Source: src,
		Now:    func() time.Time { return now },
	})
	ctx := context.Background()

	first := f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{})
	require.Equal(t, SourceSummary, first.Source)

	now = now.Add(3 * time.Second)
	res := f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{})
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 90, res.Data["Health"].Minutes)
	assert.Equal(t, now, res.End)

	summaryCalls, _ := src.calls()
	assert.Equal(t, 1, summaryCalls)
}

func TestFetch_NewDayMisses(t *testing.T) {
	src := &fakeSource{summary: healthSummary(90, 120)}
	now := fixedNow
	f := NewFetcher(FetcherConfig{
		Cache:  newMapCache(),
		Source: src,
		Now:    func() time.Time { return now },
	})
	ctx := context.Background()

	f.Fetch(ctx, domain.TimeframeDaily, FetchOptions{})
	now = now.Add(12 * time.Hour)
	res := f.Fetch(ctx, domain.TimeframeDaily, FetchOptions{})
	assert.Equal(t, SourceSummary, res.Source)

	summaryCalls, _ := src.calls()
	assert.Equal(t, 2, summaryCalls)
}

func TestFetch_ForceAndFirstLoadBypassCache(t *testing.T) {
	for _, opts := range []FetchOptions{{Force: true}, {FirstLoad: true}} {
		src := &fakeSource{summary: healthSummary(90, 120)}
		c := newMapCache()
		f := newTestFetcher(src, c, nil)
		ctx := context.Background()

		f.Fetch(ctx, domain.TimeframeDaily, FetchOptions{})
		src.setSummary(healthSummary(15, 30))

		res := f.Fetch(ctx, domain.TimeframeDaily, opts)
		assert.Equal(t, SourceSummary, res.Source, "opts %+v", opts)
		assert.Equal(t, 15, res.Data["Health"].Minutes, "opts %+v", opts)

		summaryCalls, _ := src.calls()
		assert.Equal(t, 2, summaryCalls)
	}
}

func TestFetch_ForcePassedToSource(t *testing.T) {
	src := &fakeSource{summary: healthSummary(1, 1)}
	newTestFetcher(src, nil, nil).Fetch(context.Background(), domain.TimeframeDaily, FetchOptions{Force: true})
	assert.True(t, src.lastForce)
}

func TestFetch_FallsBackToLocalAggregation(t *testing.T) {
	src := &fakeSource{
		summaryErr: errors.New("404 summary not available"),
		records: []domain.ActivityRecord{
			{ValueID: "val-1", Minutes: 30},
			{ValueID: "val-1", Minutes: 45},
			{ValueID: "val-2", Minutes: 10},
			{ValueID: "val-gone", Minutes: 500},
		},
	}
	values := []domain.Value{value("val-1", "Health", 5), value("val-2", "Family", 4), value("val-3", "Craft", 2)}
	n := &recordingNotifier{}
	f := newTestFetcher(src, newMapCache(), n)

	res := f.Fetch(context.Background(), domain.TimeframeWeekly, FetchOptions{
		Values: func(context.Context) []domain.Value { return values },
	})

	assert.Equal(t, SourceLocal, res.Source)
	assert.Equal(t, domain.AggregateMap{
		"Health": {ValueName: "Health", Minutes: 75, CommunityAvg: 210},
		"Family": {ValueName: "Family", Minutes: 10, CommunityAvg: 210},
		"Craft":  {ValueName: "Craft", Minutes: 0, CommunityAvg: 210},
	}, res.Data)
	assert.Zero(t, n.count())
}

func TestFetch_RemoteFailureYieldsDefaults(t *testing.T) {
	src := &fakeSource{summaryErr: errOffline, recordsErr: errOffline}
	c := newMapCache()
	n := &recordingNotifier{}
	f := newTestFetcher(src, c, n)
	values := []domain.Value{value("val-1", "Health", 5), value("val-2", "Family", 3)}

	res := f.Fetch(context.Background(), domain.TimeframeMonthly, FetchOptions{
		Force:  true,
		Values: func(context.Context) []domain.Value { return values },
	})

	assert.Equal(t, SourceDefaults, res.Source)
	assert.ErrorIs(t, res.Err, errOffline)
	assert.Equal(t, domain.ZeroAggregates(values), res.Data)
	assert.Equal(t, 1, n.count())
	assert.Zero(t, c.len(), "defaults must not be cached")
}

func TestFetch_DefaultsWithoutValues(t *testing.T) {
	src := &fakeSource{summaryErr: errOffline, recordsErr: errOffline}
	res := newTestFetcher(src, nil, nil).Fetch(context.Background(), domain.TimeframeDaily, FetchOptions{})
	assert.Equal(t, SourceDefaults, res.Source)
	assert.Empty(t, res.Data)
}

func TestFetch_CacheFailuresIgnored(t *testing.T) {
	src := &fakeSource{summary: healthSummary(5, 10)}
	c := newMapCache()
	c.getErr = errors.New("disk full")

	res := newTestFetcher(src, c, nil).Fetch(context.Background(), domain.TimeframeDaily, FetchOptions{})
	assert.Equal(t, SourceSummary, res.Source)
	assert.Equal(t, 5, res.Data["Health"].Minutes)
}

func TestFetch_UndecodableCacheEntryIsMiss(t *testing.T) {
	src := &fakeSource{summary: healthSummary(5, 10)}
	c := newMapCache()
	f := newTestFetcher(src, c, nil)

	start, end := domain.TimeframeDaily.Window(fixedNow)
	require.NoError(t, c.Set(context.Background(), CacheKey(domain.TimeframeDaily, start, end), []byte("{not json"), 0, 0))

	res := f.Fetch(context.Background(), domain.TimeframeDaily, FetchOptions{})
	assert.Equal(t, SourceSummary, res.Source)
}

func TestFetch_TwoTierCacheExpiry(t *testing.T) {
	now := fixedNow
	clock := func() time.Time { return now }

	tc := cache.New(cache.Config{Dir: t.TempDir(), Now: clock})
	require.NoError(t, tc.Initialize())
	defer tc.Close()

	src := &fakeSource{summary: healthSummary(90, 120)}
	f := NewFetcher(FetcherConfig{Cache: tc, Source: src, Now: func() time.Time { return fixedNow }})
	ctx := context.Background()

	f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{})
	assert.Equal(t, SourceCache, f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{}).Source)

	now = now.Add(DefaultDiskTTL)
	assert.Equal(t, SourceSummary, f.Fetch(ctx, domain.TimeframeWeekly, FetchOptions{}).Source)
}

func TestFetchStatistics(t *testing.T) {
	src := &fakeSource{stats: domain.ActivityStatistics{TotalActivities: 3, TotalMinutes: 90, AverageMinutes: 30}}
	f := newTestFetcher(src, nil, nil)
	assert.Equal(t, 90, f.FetchStatistics(context.Background(), domain.TimeframeDaily, false).TotalMinutes)

	src.statsErr = errOffline
	assert.Equal(t, domain.ActivityStatistics{}, f.FetchStatistics(context.Background(), domain.TimeframeDaily, false))
}

func TestAggregate_IgnoresNegativeMinutes(t *testing.T) {
	got := Aggregate([]domain.Value{value("v", "Health", 3)}, []domain.ActivityRecord{{ValueID: "v", Minutes: -10}, {ValueID: "v", Minutes: 5}}, 30)
	assert.Equal(t, 5, got["Health"].Minutes)
}
