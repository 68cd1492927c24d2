package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/store"
)

// profileColumns must match the scan order in scanProfile.
const profileColumns = `user_id, display_name, bio, avatar_path, avatar_blurhash, created_at, updated_at`

func scanProfile(scanner rowScanner) (*domain.UserProfile, error) {
	var (
		p                    domain.UserProfile
		avatarPath, blurHash sql.NullString
		createdAt, updatedAt string
	)

	err := scanner.Scan(&p.UserID, &p.DisplayName, &p.Bio, &avatarPath, &blurHash, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.AvatarPath = avatarPath.String
	p.AvatarBlurHash = blurHash.String
	p.HasAvatar = avatarPath.Valid && avatarPath.String != ""

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserProfile retrieves a user profile by user ID.
// Returns store.ErrNotFound if the profile does not exist.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// SaveUserProfile inserts or replaces the profile for profile.UserID.
func (s *Store) SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name    = excluded.display_name,
			bio             = excluded.bio,
			avatar_path     = excluded.avatar_path,
			avatar_blurhash = excluded.avatar_blurhash,
			updated_at      = excluded.updated_at`,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		nullString(profile.AvatarPath),
		nullString(profile.AvatarBlurHash),
		formatTime(profile.CreatedAt),
		formatTime(profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
