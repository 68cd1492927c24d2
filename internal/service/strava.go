package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/store"
	"github.com/tugapp/tug/internal/strava"
)

// DefaultStravaListLimit is the page size used when no limit is given.
const DefaultStravaListLimit = 30

// StravaStatus describes a user's Strava link.
type StravaStatus struct {
	Enabled        bool      `json:"enabled"`
	Connected      bool      `json:"connected"`
	AthleteID      int64     `json:"athlete_id,omitempty"`
	DefaultValueID string    `json:"default_value_id,omitempty"`
	ConnectedAt    time.Time `json:"connected_at,omitzero"`
}

// StravaService links Strava accounts and imports their activities.
type StravaService struct {
	store      store.Store
	client     *strava.Client
	tokens     *auth.TokenService
	activities *ActivityService
	logger     *slog.Logger
	now        func() time.Time
}

// NewStravaService creates a Strava service. A nil client disables the
// integration: every operation except Status fails with NOT_CONNECTED.
func NewStravaService(
	store store.Store,
	client *strava.Client,
	tokens *auth.TokenService,
	activities *ActivityService,
	logger *slog.Logger,
) *StravaService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StravaService{
		store:      store,
		client:     client,
		tokens:     tokens,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// Enabled reports whether Strava credentials are configured.
func (s *StravaService) Enabled() bool {
	return s.client != nil
}

// Status returns the user's link state.
func (s *StravaService) Status(ctx context.Context, userID string) (*StravaStatus, error) {
	st := &StravaStatus{Enabled: s.Enabled()}
	conn, err := s.store.GetStravaConnection(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strava connection: %w", err)
	}
	st.Connected = true
	st.AthleteID = conn.AthleteID
	st.DefaultValueID = conn.DefaultValueID
	st.ConnectedAt = conn.ConnectedAt
	return st, nil
}

// IsConnected reports whether the user has linked Strava.
func (s *StravaService) IsConnected(ctx context.Context, userID string) (bool, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Connected, nil
}

// AuthorizationURL returns the Strava consent URL. Its state parameter is
// a signed token naming userID, verified again on the callback.
// redirectURI, when set, must point at the local machine; it lets a
// terminal client receive the redirect instead of this server.
func (s *StravaService) AuthorizationURL(_ context.Context, userID, redirectURI string) (string, error) {
	if err := s.requireEnabled(); err != nil {
		return "", err
	}
	if redirectURI != "" && !strava.IsLoopbackRedirect(redirectURI) {
		return "", domainerrors.Validation("redirect_uri must be a loopback http URL")
	}
	state, err := s.tokens.GenerateState(userID)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return s.client.AuthCodeURL(state, redirectURI), nil
}

// HandleCallback completes a browser redirect from Strava and returns the
// user it connected.
func (s *StravaService) HandleCallback(ctx context.Context, q url.Values) (string, error) {
	if err := s.requireEnabled(); err != nil {
		return "", err
	}
	cb, err := strava.ParseCallback(q)
	if err != nil {
		return "", mapStravaError(err)
	}
	userID, err := s.tokens.VerifyState(cb.State)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeOAuthRedirect, "authorization state did not match")
	}
	if _, err := s.Connect(ctx, userID, cb.Code); err != nil {
		return "", err
	}
	return userID, nil
}

// ConnectWithState is Connect for a redirect captured by the client. A
// non-empty state must be one issued to userID.
func (s *StravaService) ConnectWithState(ctx context.Context, userID, code, state string) (*StravaStatus, error) {
	if state != "" {
		if err := s.requireEnabled(); err != nil {
			return nil, err
		}
		owner, err := s.tokens.VerifyState(state)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeOAuthRedirect, "authorization state did not match")
		}
		if owner != userID {
			return nil, domainerrors.NewCoded(domainerrors.CodeOAuthRedirect, "authorization state belongs to another user")
		}
	}
	return s.Connect(ctx, userID, code)
}

// Connect exchanges an authorization code and stores the resulting tokens.
// Reconnecting keeps the user's default import value.
func (s *StravaService) Connect(ctx context.Context, userID, code string) (*StravaStatus, error) {
	if err := s.requireEnabled(); err != nil {
		return nil, err
	}

	tok, athlete, err := s.client.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("strava code exchange failed", "user_id", userID, "error", err)
		return nil, mapStravaError(err)
	}

	now := s.now()
	conn := &domain.StravaConnection{UserID: userID, ConnectedAt: now}
	if existing, err := s.store.GetStravaConnection(ctx, userID); err == nil {
		conn.DefaultValueID = existing.DefaultValueID
		conn.ConnectedAt = existing.ConnectedAt
	}
	conn.AthleteID = athlete.ID
	conn.Scope = strava.Scope
	applyToken(conn, tok)
	conn.UpdatedAt = now

	if err := s.store.SaveStravaConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("save strava connection: %w", err)
	}

	s.logger.Info("strava connected", "user_id", userID, "athlete_id", athlete.ID)
	return s.Status(ctx, userID)
}

// Disconnect revokes Strava's grant and forgets the tokens. Revocation is
// best effort; the local link is removed either way.
func (s *StravaService) Disconnect(ctx context.Context, userID string) error {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return err
	}

	if s.client != nil {
		if err := s.client.Deauthorize(ctx, conn.AccessToken); err != nil {
			s.logger.Warn("strava deauthorize failed", "user_id", userID, "error", err)
		}
	}
	if err := s.store.DeleteStravaConnection(ctx, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete strava connection: %w", err)
	}

	s.logger.Info("strava disconnected", "user_id", userID)
	return nil
}

// GetAccessToken returns a valid access token, refreshing it if needed.
func (s *StravaService) GetAccessToken(ctx context.Context, userID string) (string, error) {
	ts, err := s.tokenSource(ctx, userID)
	if err != nil {
		return "", err
	}
	tok, err := ts.Token()
	if err != nil {
		return "", mapStravaError(strava.TokenError(err))
	}
	return tok.AccessToken, nil
}

// GetActivities lists the athlete's most recent activities, newest first.
func (s *StravaService) GetActivities(ctx context.Context, userID string, limit int) ([]domain.StravaActivity, error) {
	if limit <= 0 {
		limit = DefaultStravaListLimit
	}
	ts, err := s.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	activities, err := s.client.ListActivities(ctx, ts, userID, strava.ListOptions{PerPage: limit})
	if err != nil {
		return nil, mapStravaError(err)
	}
	return activities, nil
}

// ImportActivities logs Strava activities against valueID, or the user's
// default import value when valueID is empty. Activities imported before
// are skipped. It returns how many were added.
func (s *StravaService) ImportActivities(ctx context.Context, userID string, activities []domain.StravaActivity, valueID string) (int, error) {
	if valueID == "" {
		def, err := s.GetDefaultValueID(ctx, userID)
		if err != nil {
			return 0, err
		}
		valueID = def
	}
	if valueID == "" {
		return 0, domainerrors.Validation("choose a value to import activities into")
	}
	if _, err := s.store.GetValue(ctx, userID, valueID); err != nil {
		return 0, notFound(err, "value not found")
	}

	imported := 0
	for _, a := range activities {
		added, err := s.activities.importActivity(ctx, &domain.ActivityRecord{
			UserID:     userID,
			ValueID:    valueID,
			Name:       a.Name,
			Minutes:    min(a.Minutes(), MaxActivityMinutes),
			OccurredAt: a.StartDate,
			Source:     domain.SourceStrava,
			ExternalID: strconv.FormatInt(a.ID, 10),
		})
		if err != nil {
			return imported, err
		}
		if added {
			imported++
		}
	}
	if imported > 0 {
		s.activities.invalidate(ctx, userID)
	}

	s.logger.Info("strava activities imported", "user_id", userID, "value_id", valueID,
		"imported", imported, "skipped", len(activities)-imported)
	return imported, nil
}

// SyncRecent fetches up to limit recent activities and imports them.
func (s *StravaService) SyncRecent(ctx context.Context, userID, valueID string, limit int) (int, error) {
	activities, err := s.GetActivities(ctx, userID, limit)
	if err != nil {
		return 0, err
	}
	return s.ImportActivities(ctx, userID, activities, valueID)
}

// GetDefaultValueID returns the value Strava imports go to by default.
func (s *StravaService) GetDefaultValueID(ctx context.Context, userID string) (string, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return "", err
	}
	return conn.DefaultValueID, nil
}

// SetDefaultValueID sets the default import value. An empty ID clears it.
func (s *StravaService) SetDefaultValueID(ctx context.Context, userID, valueID string) error {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return err
	}
	if valueID != "" {
		if _, err := s.store.GetValue(ctx, userID, valueID); err != nil {
			return notFound(err, "value not found")
		}
	}
	conn.DefaultValueID = valueID
	conn.UpdatedAt = s.now()
	if err := s.store.SaveStravaConnection(ctx, conn); err != nil {
		return fmt.Errorf("save strava connection: %w", err)
	}
	return nil
}

func (s *StravaService) requireEnabled() error {
	if s.client == nil {
		return domainerrors.NewCoded(domainerrors.CodeNotConnected, "strava integration is not configured on this server")
	}
	return nil
}

func (s *StravaService) connection(ctx context.Context, userID string) (*domain.StravaConnection, error) {
	conn, err := s.store.GetStravaConnection(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NewCoded(domainerrors.CodeNotConnected, "strava is not connected")
	}
	if err != nil {
		return nil, fmt.Errorf("get strava connection: %w", err)
	}
	return conn, nil
}

func (s *StravaService) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	if err := s.requireEnabled(); err != nil {
		return nil, err
	}
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
		Expiry:       conn.Expiry,
	}
	return &persistingTokenSource{
		base:    s.client.TokenSource(ctx, tok),
		last:    conn.AccessToken,
		conn:    conn,
		service: s,
		ctx:     context.WithoutCancel(ctx),
	}, nil
}

// persistingTokenSource saves refreshed tokens so the next request starts
// from them.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	service *StravaService
	ctx     context.Context

	mu   sync.Mutex
	last string
	conn *domain.StravaConnection
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken
	applyToken(p.conn, tok)
	p.conn.UpdatedAt = p.service.now()
	if err := p.service.store.SaveStravaConnection(p.ctx, p.conn); err != nil {
		p.service.logger.Warn("persist refreshed strava token failed", "user_id", p.conn.UserID, "error", err)
	}
	return tok, nil
}

func applyToken(conn *domain.StravaConnection, tok *oauth2.Token) {
	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.TokenType = tok.TokenType
	conn.Expiry = tok.Expiry
}

// mapStravaError turns Strava client failures into coded domain errors.
func mapStravaError(err error) error {
	switch {
	case errors.Is(err, strava.ErrRedirect):
		return domainerrors.Wrap(err, domainerrors.CodeOAuthRedirect, "strava authorization failed")
	case errors.Is(err, strava.ErrUnauthorized):
		return domainerrors.Wrap(err, domainerrors.CodeNotConnected, "strava access was revoked; connect again")
	case errors.Is(err, strava.ErrRateLimited):
		return domainerrors.Wrap(err, domainerrors.CodeTooManyRequests, "strava rate limit reached; try again later")
	default:
		return domainerrors.Upstream(err, "strava request failed")
	}
}
