package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tugapp/tug/internal/domain"
)

var errOffline = errors.New("network unreachable")

// fakeSource is an ActivitySource with scripted responses and call counts.
type fakeSource struct {
	mu sync.Mutex

	summary    domain.ActivitySummary
	summaryErr error
	records    []domain.ActivityRecord
	recordsErr error
	stats      domain.ActivityStatistics
	statsErr   error

	// gate, when set, blocks GetActivitySummary until a value is received.
	gate chan struct{}

	summaryCalls, listCalls, statsCalls int
	lastForce                           bool
	lastStart, lastEnd                  time.Time
}

func (f *fakeSource) GetActivityStatistics(_ context.Context, _, _ time.Time, _ bool) (domain.ActivityStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return f.stats, f.statsErr
}

func (f *fakeSource) GetActivitySummary(ctx context.Context, start, end time.Time, force bool) (domain.ActivitySummary, error) {
	f.mu.Lock()
	f.summaryCalls++
	f.lastForce = force
	f.lastStart, f.lastEnd = start, end
	gate := f.gate
	summary, err := f.summary, f.summaryErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ActivitySummary{}, ctx.Err()
		}
	}
	return summary, err
}

func (f *fakeSource) GetActivities(_ context.Context, _, _ time.Time, _ bool) ([]domain.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.records, f.recordsErr
}

func (f *fakeSource) setSummary(s domain.ActivitySummary) {
	f.mu.Lock()
	f.summary = s
	f.mu.Unlock()
}

func (f *fakeSource) calls() (summary, list int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls, f.listCalls
}

// mapCache is a Cache without expiry.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	cleared []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) ClearByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, prefix)
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// recordingNotifier collects warnings.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Warn(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// fakeValues is a ValuesLoader keyed by kind.
type fakeValues struct {
	mu     sync.Mutex
	byKind map[domain.ValueKind][]domain.Value
	err    error
	calls  int
	forced int
}

func (f *fakeValues) LoadValues(_ context.Context, kind domain.ValueKind, force bool) ([]domain.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if force {
		f.forced++
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.byKind[kind], nil
}

var fixedNow = time.Date(2026, 4, 15, 14, 30, 0, 0, time.UTC)

func value(id, name string, importance int) domain.Value {
	return domain.Value{ID: id, Name: name, Importance: importance, Kind: domain.KindValue, Active: true}
}
