package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/store"
)

// activityColumns must match the scan order in scanActivity.
const activityColumns = `id, user_id, value_id, name, minutes, occurred_at, notes, source, external_id, created_at`

func scanActivity(scanner rowScanner) (domain.ActivityRecord, error) {
	var (
		a                     domain.ActivityRecord
		source                string
		externalID            sql.NullString
		occurredAt, createdAt string
	)
	err := scanner.Scan(&a.ID, &a.UserID, &a.ValueID, &a.Name, &a.Minutes, &occurredAt,
		&a.Notes, &source, &externalID, &createdAt)
	if err != nil {
		return a, err
	}

	a.Source = domain.ActivitySource(source)
	a.ExternalID = externalID.String
	if a.OccurredAt, err = parseTime(occurredAt); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return a, err
	}
	return a, nil
}

// CreateActivity inserts a new activity.
// Returns store.ErrAlreadyExists if the ID, or the (source, external id) pair
// for the user, is taken.
func (s *Store) CreateActivity(ctx context.Context, a *domain.ActivityRecord) error {
	source := a.Source
	if source == "" {
		source = domain.SourceManual
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ValueID, a.Name, a.Minutes, formatTime(a.OccurredAt), a.Notes,
		string(source), nullString(a.ExternalID), formatTime(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivities returns the user's activities with start <= occurred_at <= end,
// newest first.
func (s *Store) ListActivities(ctx context.Context, userID string, start, end time.Time) ([]domain.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at DESC, id`,
		userID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := []domain.ActivityRecord{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteActivity removes one of the user's activities.
// Returns store.ErrNotFound if it does not exist for userID.
func (s *Store) DeleteActivity(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ActivityExistsByExternalID reports whether an import with this external id
// was already recorded for the user.
func (s *Store) ActivityExistsByExternalID(ctx context.Context, userID string, source domain.ActivitySource, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM activities WHERE user_id = ? AND source = ? AND external_id = ? LIMIT 1`,
		userID, string(source), externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ActivityStatistics counts the user's activities and minutes in the window.
func (s *Store) ActivityStatistics(ctx context.Context, userID string, start, end time.Time) (domain.ActivityStatistics, error) {
	var stats domain.ActivityStatistics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(minutes), 0) FROM activities
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?`,
		userID, formatTime(start), formatTime(end)).Scan(&stats.TotalActivities, &stats.TotalMinutes)
	if err != nil {
		return stats, fmt.Errorf("activity statistics: %w", err)
	}
	if stats.TotalActivities > 0 {
		stats.AverageMinutes = float64(stats.TotalMinutes) / float64(stats.TotalActivities)
	}
	return stats, nil
}

// SumMinutesByValue returns the user's minutes in the window keyed by value ID.
// Values with no activity are absent.
func (s *Store) SumMinutesByValue(ctx context.Context, userID string, start, end time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value_id, SUM(minutes) FROM activities
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
		GROUP BY value_id`,
		userID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("sum minutes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			valueID string
			minutes int
		)
		if err := rows.Scan(&valueID, &minutes); err != nil {
			return nil, err
		}
		out[valueID] = minutes
	}
	return out, rows.Err()
}

// CommunityMinutesByValueName totals every user's minutes in the window,
// grouped by the name of the value they were logged against.
func (s *Store) CommunityMinutesByValueName(ctx context.Context, start, end time.Time) (map[string]store.CommunityStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.name, SUM(a.minutes), COUNT(DISTINCT a.user_id)
		FROM activities a
		JOIN "values" v ON v.id = a.value_id
		WHERE a.occurred_at >= ? AND a.occurred_at <= ?
		GROUP BY v.name`,
		formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("community minutes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]store.CommunityStat)
	for rows.Next() {
		var (
			name string
			stat store.CommunityStat
		)
		if err := rows.Scan(&name, &stat.TotalMinutes, &stat.Users); err != nil {
			return nil, err
		}
		out[name] = stat
	}
	return out, rows.Err()
}
