package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/store"
)

func logActivity(t *testing.T, s *Store, id, userID, valueID string, minutes int, at time.Time) {
	t.Helper()
	err := s.CreateActivity(context.Background(), &domain.ActivityRecord{
		ID: id, UserID: userID, ValueID: valueID, Minutes: minutes, OccurredAt: at, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("CreateActivity(%s): %v", id, err)
	}
}

func TestListActivities_Window(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	v := seedValue(t, s, "usr-1", "val-1", "Health", 4)

	end := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -7)

	logActivity(t, s, "act-before", "usr-1", v.ID, 10, start.Add(-time.Second))
	logActivity(t, s, "act-start", "usr-1", v.ID, 20, start)
	logActivity(t, s, "act-mid", "usr-1", v.ID, 30, start.Add(72*time.Hour))
	logActivity(t, s, "act-end", "usr-1", v.ID, 40, end)
	logActivity(t, s, "act-after", "usr-1", v.ID, 50, end.Add(time.Nanosecond))

	got, err := s.ListActivities(ctx, "usr-1", start, end)
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	want := []string{"act-end", "act-mid", "act-start"}
	if len(got) != len(want) {
		t.Fatalf("got %d activities, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Source != domain.SourceManual {
		t.Errorf("default source: got %q", got[0].Source)
	}
}

func TestActivityStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	v := seedValue(t, s, "usr-1", "val-1", "Health", 4)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	logActivity(t, s, "act-1", "usr-1", v.ID, 30, now.Add(-time.Hour))
	logActivity(t, s, "act-2", "usr-1", v.ID, 45, now.Add(-2*time.Hour))

	stats, err := s.ActivityStatistics(ctx, "usr-1", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("ActivityStatistics: %v", err)
	}
	if stats.TotalActivities != 2 || stats.TotalMinutes != 75 || stats.AverageMinutes != 37.5 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	empty, err := s.ActivityStatistics(ctx, "usr-1", now.Add(time.Hour), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ActivityStatistics: %v", err)
	}
	if empty != (domain.ActivityStatistics{}) {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

func TestSumMinutesByValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	health := seedValue(t, s, "usr-1", "val-h", "Health", 4)
	family := seedValue(t, s, "usr-1", "val-f", "Family", 5)
	seedValue(t, s, "usr-1", "val-c", "Craft", 2)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	logActivity(t, s, "act-1", "usr-1", health.ID, 30, now.Add(-time.Hour))
	logActivity(t, s, "act-2", "usr-1", health.ID, 15, now.Add(-2*time.Hour))
	logActivity(t, s, "act-3", "usr-1", family.ID, 60, now.Add(-3*time.Hour))

	got, err := s.SumMinutesByValue(ctx, "usr-1", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("SumMinutesByValue: %v", err)
	}
	if got[health.ID] != 45 || got[family.ID] != 60 {
		t.Errorf("unexpected sums: %v", got)
	}
	if _, ok := got["val-c"]; ok {
		t.Error("value without activity should be absent")
	}
}

func TestCommunityMinutesByValueName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	seedUser(t, s, "usr-2", "b@example.com")
	a := seedValue(t, s, "usr-1", "val-1", "Health", 4)
	b := seedValue(t, s, "usr-2", "val-2", "Health", 3)
	c := seedValue(t, s, "usr-2", "val-3", "Reading", 3)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	logActivity(t, s, "act-1", "usr-1", a.ID, 30, now.Add(-time.Hour))
	logActivity(t, s, "act-2", "usr-1", a.ID, 30, now.Add(-2*time.Hour))
	logActivity(t, s, "act-3", "usr-2", b.ID, 100, now.Add(-time.Hour))
	logActivity(t, s, "act-4", "usr-2", c.ID, 20, now.Add(-time.Hour))

	got, err := s.CommunityMinutesByValueName(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("CommunityMinutesByValueName: %v", err)
	}

	health := got["Health"]
	if health.TotalMinutes != 160 || health.Users != 2 || health.Average() != 80 {
		t.Errorf("Health: %+v", health)
	}
	if got["Reading"].Average() != 20 {
		t.Errorf("Reading: %+v", got["Reading"])
	}
}

func TestActivity_ExternalIDDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	v := seedValue(t, s, "usr-1", "val-1", "Health", 4)

	now := time.Now()
	imported := &domain.ActivityRecord{
		ID: "act-1", UserID: "usr-1", ValueID: v.ID, Name: "Morning Run", Minutes: 32,
		OccurredAt: now, Source: domain.SourceStrava, ExternalID: "987654", CreatedAt: now,
	}
	if err := s.CreateActivity(ctx, imported); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}

	exists, err := s.ActivityExistsByExternalID(ctx, "usr-1", domain.SourceStrava, "987654")
	if err != nil || !exists {
		t.Fatalf("ActivityExistsByExternalID: %v %v", exists, err)
	}
	exists, err = s.ActivityExistsByExternalID(ctx, "usr-1", domain.SourceStrava, "111")
	if err != nil || exists {
		t.Errorf("unknown id reported as existing: %v %v", exists, err)
	}

	dup := *imported
	dup.ID = "act-2"
	if err := s.CreateActivity(ctx, &dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate import: got %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	v := seedValue(t, s, "usr-1", "val-1", "Health", 4)
	logActivity(t, s, "act-1", "usr-1", v.ID, 10, time.Now())

	if err := s.DeleteActivity(ctx, "usr-2", "act-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete by other user: got %v", err)
	}
	if err := s.DeleteActivity(ctx, "usr-1", "act-1"); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}
	if err := s.DeleteActivity(ctx, "usr-1", "act-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestDeleteValue_CascadesActivities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "usr-1", "a@example.com")
	v := seedValue(t, s, "usr-1", "val-1", "Health", 4)
	now := time.Now()
	logActivity(t, s, "act-1", "usr-1", v.ID, 10, now)

	if err := s.DeleteValue(ctx, "usr-1", v.ID); err != nil {
		t.Fatalf("DeleteValue: %v", err)
	}
	got, err := s.ListActivities(ctx, "usr-1", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("activities should cascade, got %d", len(got))
	}
}
