package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/flow"
	"github.com/tugapp/tug/internal/strava"
)

var _ flow.StravaConnector = (*Client)(nil)

// ErrCallbackTimeout is returned when the browser never comes back to the
// loopback listener.
var ErrCallbackTimeout = errors.New("timed out waiting for the Strava redirect")

// StravaStatus describes the user's Strava link.
type StravaStatus struct {
	Enabled        bool      `json:"enabled"`
	Connected      bool      `json:"connected"`
	AthleteID      int64     `json:"athlete_id,omitempty"`
	DefaultValueID string    `json:"default_value_id,omitempty"`
	ConnectedAt    time.Time `json:"connected_at,omitzero"`
}

// StravaStatus reports whether Strava is linked.
func (c *Client) StravaStatus(ctx context.Context) (*StravaStatus, error) {
	var out StravaStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/strava/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StravaAuthorizeURL returns the consent URL. redirectURI, when set, must
// be a loopback address the caller listens on.
func (c *Client) StravaAuthorizeURL(ctx context.Context, redirectURI string) (string, error) {
	q := url.Values{}
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/strava/authorize", q, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ConnectStravaWithCode implements flow.StravaConnector for a code the
// user pasted.
func (c *Client) ConnectStravaWithCode(ctx context.Context, code string) error {
	return c.connectStrava(ctx, code, "")
}

func (c *Client) connectStrava(ctx context.Context, code, state string) error {
	body := map[string]string{"code": code}
	if state != "" {
		body["state"] = state
	}
	return c.do(ctx, http.MethodPost, "/api/v1/strava/connect", nil, body, nil)
}

// ConnectStrava implements flow.StravaConnector. It listens on a loopback
// port, sends the user to Strava, and completes the link with the code the
// browser brings back. The listener is always shut down before returning.
func (c *Client) ConnectStrava(ctx context.Context) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	redirectURI := "http://" + ln.Addr().String() + "/callback"

	authURL, err := c.StravaAuthorizeURL(ctx, redirectURI)
	if err != nil {
		_ = ln.Close()
		return err
	}
	state, err := stateOf(authURL)
	if err != nil {
		_ = ln.Close()
		return err
	}

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Warn("strava callback listener stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.logger.Debug("waiting for strava redirect", "redirect_uri", redirectURI)
	if err := c.openURL(authURL); err != nil {
		return fmt.Errorf("open authorization URL: %w", err)
	}

	timer := time.NewTimer(c.callbackTimeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrCallbackTimeout
	case res = <-results:
	}
	if res.err != nil {
		return res.err
	}
	return c.connectStrava(ctx, res.code, state)
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler accepts the first redirect that reaches /callback.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		cb, err := strava.ParseCallback(r.URL.Query())
		if err == nil && cb.State != state {
			err = fmt.Errorf("%w: state mismatch", strava.ErrRedirect)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintln(w, "Strava authorization failed. You can close this tab and check the terminal.")
		} else {
			_, _ = fmt.Fprintln(w, "Strava authorized. You can close this tab and return to the terminal.")
		}

		select {
		case results <- callbackResult{code: cb.Code, err: err}:
		default:
		}
	})
	return mux
}

// stateOf extracts the state parameter the server put in the consent URL.
func stateOf(authURL string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("parse authorization URL: %w", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		return "", fmt.Errorf("%w: authorization URL has no state", strava.ErrRedirect)
	}
	return state, nil
}

// StravaActivities lists recent Strava activities without importing them.
func (c *Client) StravaActivities(ctx context.Context, limit int) ([]domain.StravaActivity, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Activities []domain.StravaActivity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/strava/activities", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

// ImportStrava imports recent Strava activities against valueID, or the
// saved default when valueID is empty. It returns how many were new.
func (c *Client) ImportStrava(ctx context.Context, valueID string, limit int) (int, error) {
	body := map[string]any{}
	if valueID != "" {
		body["value_id"] = valueID
	}
	if limit > 0 {
		body["limit"] = limit
	}
	var out struct {
		Imported int `json:"imported"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/strava/import", nil, body, &out); err != nil {
		return 0, err
	}
	return out.Imported, nil
}

// SetStravaDefaultValue sets the value imports are logged against.
func (c *Client) SetStravaDefaultValue(ctx context.Context, valueID string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/strava/default-value", nil, map[string]string{"value_id": valueID}, nil)
}

// DisconnectStrava unlinks Strava.
func (c *Client) DisconnectStrava(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/strava/disconnect", nil, nil, nil)
}
