// Package strava talks to the Strava API: the OAuth consent and token
// exchange, activity listing and deauthorization.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/ratelimit"
)

const (
	defaultOAuthBaseURL = "https://www.strava.com/oauth"
	defaultAPIBaseURL   = "https://www.strava.com/api/v3"

	// Scope requests read access to the athlete's activities, private ones included.
	Scope = "read,activity:read_all"

	// MaxPerPage is the largest page Strava serves.
	MaxPerPage = 200
)

var (
	// ErrRedirect marks failures of the authorization redirect itself: the
	// athlete declined, the state did not round-trip, or the redirect URI
	// is not registered for the application.
	ErrRedirect = errors.New("strava authorization redirect failed")
	// ErrUnauthorized means the token was rejected or revoked.
	ErrUnauthorized = errors.New("strava rejected the credentials")
	// ErrRateLimited means Strava's quota, or ours, is exhausted.
	ErrRateLimited = errors.New("strava rate limit exceeded")
	// ErrServer means Strava failed on its side.
	ErrServer = errors.New("strava server error")
)

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// OAuthBaseURL and APIBaseURL override the Strava hosts in tests.
	OAuthBaseURL string
	APIBaseURL   string

	HTTPClient *http.Client
	// RequestsPerSecond and Burst bound outbound calls per user.
	// Strava allows 100 requests per 15 minutes per application.
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
}

// Athlete is the subset of the Strava athlete returned with a token.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// ListOptions narrows an activity listing.
type ListOptions struct {
	PerPage int
	// After restricts results to activities started after this instant.
	After time.Time
}

// Client is a Strava API client. Safe for concurrent use.
type Client struct {
	oauth      *oauth2.Config
	apiBaseURL string
	deauthURL  string
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	oauthBase := strings.TrimSuffix(cfg.OAuthBaseURL, "/")
	if oauthBase == "" {
		oauthBase = defaultOAuthBaseURL
	}
	apiBase := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100.0 / (15 * 60)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   oauthBase + "/authorize",
				TokenURL:  oauthBase + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: apiBase,
		deauthURL:  oauthBase + "/deauthorize",
		httpClient: httpClient,
		limiter:    ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		logger:     logger,
	}
}

// Close stops the limiter's background sweep.
func (c *Client) Close() {
	c.limiter.Stop()
}

// AuthCodeURL returns the consent page URL carrying state. A non-empty
// redirectURI replaces the configured redirect for this authorization.
func (c *Client) AuthCodeURL(state, redirectURI string) string {
	// Strava expects a comma-separated scope, which oauth2 would space-join.
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
		oauth2.SetAuthURLParam("scope", Scope),
	}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// IsLoopbackRedirect reports whether raw is an http URL on the local
// machine. Strava accepts those without registration, which lets a
// terminal client receive the redirect itself.
func IsLoopbackRedirect(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

// Exchange trades an authorization code for a token and the athlete it
// belongs to.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, *Athlete, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil, fmt.Errorf("%w: empty authorization code", ErrRedirect)
	}

	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, nil, classify(err, "exchange code")
	}
	return tok, athleteFromToken(tok), nil
}

// TokenSource returns a source that refreshes tok when it expires.
// Callers compare the returned token with the stored one to persist refreshes.
func (c *Client) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return c.oauth.TokenSource(c.withHTTPClient(ctx), tok)
}

// TokenError maps a failure from a TokenSource returned by TokenSource
// onto the package errors.
func TokenError(err error) error {
	return classify(err, "refresh token")
}

// ListActivities returns the athlete's most recent activities, newest first.
// key identifies the caller for outbound rate limiting.
func (c *Client) ListActivities(ctx context.Context, ts oauth2.TokenSource, key string, opts ListOptions) ([]domain.StravaActivity, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", "1")
	if !opts.After.IsZero() {
		q.Set("after", strconv.FormatInt(opts.After.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var activities []domain.StravaActivity
	if err := c.do(ctx, ts, key, req, &activities); err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []domain.StravaActivity{}
	}
	return activities, nil
}

// Deauthorize revokes the application's access for accessToken.
func (c *Client) Deauthorize(ctx context.Context, accessToken string) error {
	form := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deauthorize: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, ts oauth2.TokenSource, key string, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	tok, err := ts.Token()
	if err != nil {
		return classify(err, "refresh token")
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("strava request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("strava request",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// statusError maps a non-2xx response to one of the package errors.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return errorForStatus(resp.StatusCode, strings.TrimSpace(string(body)))
}

func errorForStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %d %s", ErrUnauthorized, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, body)
	case status >= 500:
		return fmt.Errorf("%w: %d %s", ErrServer, status, body)
	default:
		return fmt.Errorf("strava: unexpected status %d: %s", status, body)
	}
}

// classify maps oauth2 token endpoint failures onto the package errors.
func classify(err error, op string) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%s: %w", op, err)
	}

	body := string(re.Body)
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	switch {
	case strings.Contains(body, "redirect_uri") || strings.Contains(body, "RedirectUri"):
		return fmt.Errorf("%s: %w: redirect URI rejected", op, ErrRedirect)
	case status == http.StatusBadRequest && (re.ErrorCode == "invalid_grant" || strings.Contains(body, "invalid")):
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, body)
	case status != 0:
		return fmt.Errorf("%s: %w", op, errorForStatus(status, body))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func athleteFromToken(tok *oauth2.Token) *Athlete {
	raw, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return &Athlete{}
	}
	a := &Athlete{}
	if v, ok := raw["id"].(float64); ok {
		a.ID = int64(v)
	}
	a.Username, _ = raw["username"].(string)
	a.FirstName, _ = raw["firstname"].(string)
	a.LastName, _ = raw["lastname"].(string)
	return a
}
