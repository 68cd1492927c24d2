package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/progress"
)

var (
	_ progress.ActivitySource = (*Client)(nil)
	_ progress.ValuesLoader   = (*Client)(nil)
)

// activityPageSize is the page size used when walking activity listings.
const activityPageSize = 1000

// Session is a signed-in user and their token.
type Session struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Register creates an account and adopts its token.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"email":        email,
		"password":     password,
		"display_name": displayName,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.SetToken(s.AccessToken)
	return &s, nil
}

// Login signs in and adopts the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.SetToken(s.AccessToken)
	return &s, nil
}

// === Values ===

// NewValue is a value to create.
type NewValue struct {
	Name        string           `json:"name"`
	Importance  int              `json:"importance"`
	Color       string           `json:"color,omitempty"`
	Description string           `json:"description,omitempty"`
	Kind        domain.ValueKind `json:"kind,omitempty"`
}

// ListValues lists the user's values of kind (all kinds when empty).
func (c *Client) ListValues(ctx context.Context, kind domain.ValueKind, activeOnly bool) ([]domain.Value, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", string(kind))
	}
	if activeOnly {
		q.Set("active", "true")
	}
	var out struct {
		Values []domain.Value `json:"values"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/values", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// LoadValues implements progress.ValuesLoader with the active values of
// kind. Values are never cached client-side, so force has no effect.
func (c *Client) LoadValues(ctx context.Context, kind domain.ValueKind, _ bool) ([]domain.Value, error) {
	return c.ListValues(ctx, kind, true)
}

// CreateValue creates a value.
func (c *Client) CreateValue(ctx context.Context, v NewValue) (*domain.Value, error) {
	var out domain.Value
	if err := c.do(ctx, http.MethodPost, "/api/v1/values", nil, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteValue deletes a value and its activities.
func (c *Client) DeleteValue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/values/"+url.PathEscape(id), nil, nil, nil)
}

// === Activities ===

// NewActivity is a manually logged activity.
type NewActivity struct {
	ValueID string    `json:"value_id"`
	Name    string    `json:"name,omitempty"`
	Minutes int       `json:"duration"`
	Date    time.Time `json:"date,omitzero"`
	Notes   string    `json:"notes,omitempty"`
}

// LogActivity records an activity.
func (c *Client) LogActivity(ctx context.Context, a NewActivity) (*domain.ActivityRecord, error) {
	var out domain.ActivityRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/activities", nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func windowQuery(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.UTC().Format(time.RFC3339Nano)},
		"end":   {end.UTC().Format(time.RFC3339Nano)},
	}
}

// GetActivityStatistics implements progress.ActivitySource.
func (c *Client) GetActivityStatistics(ctx context.Context, start, end time.Time, _ bool) (domain.ActivityStatistics, error) {
	var out domain.ActivityStatistics
	err := c.do(ctx, http.MethodGet, "/api/v1/activities/statistics", windowQuery(start, end), nil, &out)
	return out, err
}

// GetActivitySummary implements progress.ActivitySource. force asks the
// server to recompute community averages.
func (c *Client) GetActivitySummary(ctx context.Context, start, end time.Time, force bool) (domain.ActivitySummary, error) {
	q := windowQuery(start, end)
	if force {
		q.Set("refresh", "true")
	}
	var out domain.ActivitySummary
	err := c.do(ctx, http.MethodGet, "/api/v1/activities/summary", q, nil, &out)
	return out, err
}

// GetActivities implements progress.ActivitySource, following cursors
// until the listing is exhausted.
func (c *Client) GetActivities(ctx context.Context, start, end time.Time, _ bool) ([]domain.ActivityRecord, error) {
	q := windowQuery(start, end)
	q.Set("limit", strconv.Itoa(c.pageSize))

	var all []domain.ActivityRecord
	for {
		var page struct {
			Items      []domain.ActivityRecord `json:"items"`
			NextCursor string                  `json:"next_cursor"`
			HasMore    bool                    `json:"has_more"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/v1/activities", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		q.Set("cursor", page.NextCursor)
	}
}

// === Profile ===

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadProfilePicture sets the avatar from raw image bytes.
func (c *Client) UploadProfilePicture(ctx context.Context, image []byte) (*domain.UserProfile, error) {
	var out domain.UserProfile
	body := map[string]string{"image": base64.StdEncoding.EncodeToString(image)}
	if err := c.do(ctx, http.MethodPut, "/api/v1/profile/picture", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// === Account ===

// DeleteAccount implements flow.AccountDeleter. On success the token is
// dropped, since it no longer names a user.
func (c *Client) DeleteAccount(ctx context.Context, cred domain.Credential) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/account", nil, cred, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}
