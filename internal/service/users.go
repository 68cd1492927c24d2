package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/media/avatars"
	"github.com/tugapp/tug/internal/store"
)

// UserService manages profiles, profile pictures and account removal.
type UserService struct {
	store   store.Store
	auth    *AuthService
	strava  *StravaService
	avatars *avatars.Storage
	cache   *cache.TwoTier
	logger  *slog.Logger
	now     func() time.Time
}

// NewUserService creates a new user service. strava and cache may be nil.
func NewUserService(
	store store.Store,
	auth *AuthService,
	strava *StravaService,
	avatarStorage *avatars.Storage,
	c *cache.TwoTier,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{
		store:   store,
		auth:    auth,
		strava:  strava,
		avatars: avatarStorage,
		cache:   c,
		logger:  logger,
		now:     time.Now,
	}
}

// UpdateProfileRequest holds profile edits.
type UpdateProfileRequest struct {
	DisplayName string  `json:"display_name" validate:"required,notblank,maxrunes=50"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,maxrunes=280"`
}

// GetCurrentUserProfile returns the user's profile, creating a default one
// for accounts that predate profiles.
func (s *UserService) GetCurrentUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	profile = domain.NewUserProfile(userID, displayNameFromEmail(user.Email), s.now())
	if err := s.store.SaveUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// UpdateUserProfile saves profile edits. A blank display name is rejected
// and nothing is saved.
func (s *UserService) UpdateUserProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.UserProfile, error) {
	req.DisplayName = normalizeName(req.DisplayName)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	profile, err := s.GetCurrentUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.DisplayName = req.DisplayName
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}
	profile.UpdatedAt = s.now()

	if err := s.store.SaveUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// UploadProfilePicture stores a base64 image (optionally a data URL) as
// the user's avatar and records a BlurHash placeholder for it.
func (s *UserService) UploadProfilePicture(ctx context.Context, userID, encoded string) (*domain.UserProfile, error) {
	data, err := decodeImage(encoded)
	if err != nil {
		return nil, err
	}

	profile, err := s.GetCurrentUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	path, err := s.avatars.Save(userID, data)
	if err != nil {
		switch {
		case errors.Is(err, avatars.ErrUnsupportedType), errors.Is(err, avatars.ErrEmpty):
			return nil, domainerrors.Validation("image must be JPEG, PNG, GIF or WebP").WithCause(err)
		case errors.Is(err, avatars.ErrTooLarge):
			return nil, domainerrors.Validationf("image must be at most %d MB", avatars.MaxSize>>20)
		}
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	hash, err := avatars.ComputeBlurHash(data)
	if err != nil {
		s.logger.Warn("blurhash failed", "user_id", userID, "error", err)
		hash = ""
	}

	profile.AvatarPath = path
	profile.AvatarBlurHash = hash
	profile.HasAvatar = true
	profile.UpdatedAt = s.now()
	if err := s.store.SaveUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.Info("profile picture updated", "user_id", userID, "bytes", len(data))
	return profile, nil
}

// GetProfilePicture returns the user's avatar and its MIME type.
func (s *UserService) GetProfilePicture(_ context.Context, userID string) ([]byte, string, error) {
	data, contentType, err := s.avatars.Get(userID)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", domainerrors.NotFound("no profile picture")
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// DeleteAccount removes the user and everything they own once cred
// re-authenticates them. A linked Strava account is deauthorized first,
// best effort.
func (s *UserService) DeleteAccount(ctx context.Context, userID string, cred domain.Credential) error {
	if err := s.auth.Reauthenticate(ctx, userID, cred); err != nil {
		return err
	}

	if s.strava != nil {
		if err := s.strava.Disconnect(ctx, userID); err != nil && !errors.Is(err, domainerrors.ErrNotConnected) {
			s.logger.Warn("strava disconnect during account deletion failed", "user_id", userID, "error", err)
		}
	}

	if err := s.store.DeleteUserData(ctx, userID); err != nil {
		return notFound(err, "user not found")
	}

	if err := s.avatars.Delete(userID); err != nil {
		s.logger.Warn("avatar cleanup failed", "user_id", userID, "error", err)
	}
	if s.cache != nil {
		if err := s.cache.Namespace(userID).ClearByPrefix(ctx, ""); err != nil {
			s.logger.Debug("cache cleanup failed", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("account deleted", "user_id", userID)
	return nil
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		_, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, domainerrors.Validation("malformed data URL")
		}
		encoded = payload
	}
	if encoded == "" {
		return nil, domainerrors.Validation("image is required")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, domainerrors.Validation("image must be base64 encoded").WithCause(err)
	}
	return data, nil
}
