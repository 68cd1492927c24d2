package domain

import "time"

// UserProfile holds the user's display settings.
// Stored separately from User to keep auth concerns apart.
type UserProfile struct {
	UserID         string    `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio,omitempty"`
	AvatarPath     string    `json:"-"`
	AvatarBlurHash string    `json:"avatar_blurhash,omitempty"`
	HasAvatar      bool      `json:"has_avatar"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUserProfile creates a default profile for a user.
func NewUserProfile(userID, displayName string, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
