package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/store"
)

const stravaColumns = `user_id, athlete_id, access_token, refresh_token, token_type, expiry,
	scope, default_value_id, connected_at, updated_at`

func scanStravaConnection(scanner rowScanner) (*domain.StravaConnection, error) {
	var (
		c                              domain.StravaConnection
		defaultValueID                 sql.NullString
		expiry, connectedAt, updatedAt string
	)
	err := scanner.Scan(&c.UserID, &c.AthleteID, &c.AccessToken, &c.RefreshToken, &c.TokenType,
		&expiry, &c.Scope, &defaultValueID, &connectedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.DefaultValueID = defaultValueID.String
	if c.Expiry, err = parseTime(expiry); err != nil {
		return nil, err
	}
	if c.ConnectedAt, err = parseTime(connectedAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetStravaConnection returns the user's linked Strava account.
// Returns store.ErrNotFound if the user has not connected.
func (s *Store) GetStravaConnection(ctx context.Context, userID string) (*domain.StravaConnection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stravaColumns+` FROM strava_connections WHERE user_id = ?`, userID)

	c, err := scanStravaConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

// SaveStravaConnection inserts or replaces the user's connection. Token
// refreshes go through here too, so connected_at is kept on conflict.
func (s *Store) SaveStravaConnection(ctx context.Context, c *domain.StravaConnection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strava_connections (`+stravaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			athlete_id       = excluded.athlete_id,
			access_token     = excluded.access_token,
			refresh_token    = excluded.refresh_token,
			token_type       = excluded.token_type,
			expiry           = excluded.expiry,
			scope            = excluded.scope,
			default_value_id = excluded.default_value_id,
			updated_at       = excluded.updated_at`,
		c.UserID, c.AthleteID, c.AccessToken, c.RefreshToken, c.TokenType, formatTime(c.Expiry),
		c.Scope, nullString(c.DefaultValueID), formatTime(c.ConnectedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save strava connection: %w", err)
	}
	return nil
}

// DeleteStravaConnection forgets the user's Strava tokens.
// Returns store.ErrNotFound if there was no connection.
func (s *Store) DeleteStravaConnection(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strava_connections WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete strava connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
