package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/id"
	"github.com/tugapp/tug/internal/ratelimit"
	"github.com/tugapp/tug/internal/store"
)

// Credential attempts allowed per key: five per minute, refilling steadily.
const (
	attemptsPerSecond = 5.0 / 60
	attemptBurst      = 5
)

// AuthService handles registration, login, token verification and
// re-authentication before destructive actions.
type AuthService struct {
	store   store.Store
	tokens  *auth.TokenService
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		store:   store,
		tokens:  tokens,
		limiter: ratelimit.New(attemptsPerSecond, attemptBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// Close stops the attempt limiter.
func (s *AuthService) Close() {
	s.limiter.Stop()
}

// RegisterRequest contains new account data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name,omitempty" validate:"maxrunes=50"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains an access token and the signed-in user.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	ExpiresIn   int          `json:"expires_in"` // seconds
}

// Register creates an account and its profile, and signs the user in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	displayName := normalizeName(req.DisplayName)
	if displayName == "" {
		displayName = displayNameFromEmail(user.Email)
	}
	if err := s.store.SaveUserProfile(ctx, domain.NewUserProfile(userID, displayName, now)); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID)
	return s.issue(user)
}

// Login verifies credentials and returns an access token. Attempts are
// rate limited per email address.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	key := "login:" + strings.ToLower(req.Email)
	if !s.limiter.Allow(key) {
		return nil, domainerrors.ErrTooManyRequests
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.logger.Debug("login rejected", "user_id", user.ID)
		return nil, domainerrors.ErrInvalidCredentials
	}

	s.limiter.Reset(key)
	return s.issue(user)
}

// VerifyAccessToken validates a token and returns its user.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Reauthenticate confirms that cred belongs to userID. Failures carry a
// code a client can turn into a specific message:
// TOO_MANY_REQUESTS, USER_NOT_FOUND, USER_MISMATCH or WRONG_PASSWORD.
func (s *AuthService) Reauthenticate(ctx context.Context, userID string, cred domain.Credential) error {
	key := "reauth:" + userID
	if !s.limiter.Allow(key) {
		return domainerrors.ErrTooManyRequests
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(cred.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	// Identity first, so a guess at someone else's password learns nothing.
	if user.ID != userID {
		s.logger.Warn("reauthentication with another user's credentials", "user_id", userID)
		return domainerrors.ErrUserMismatch
	}
	if !auth.VerifyPassword(user.PasswordHash, cred.Password) {
		return domainerrors.ErrWrongPassword
	}

	s.limiter.Reset(key)
	return nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   int(s.tokens.AccessTokenDuration().Seconds()),
	}, nil
}
