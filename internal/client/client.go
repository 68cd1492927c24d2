// Package client is a typed HTTP client for the Tug API.
//
// Every response arrives in the shared envelope; failures come back as
// *errors.Error carrying the server's code, so callers branch with
// errors.Is exactly as they would against the services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	domainerrors "github.com/tugapp/tug/internal/errors"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultCallbackTimeout = 3 * time.Minute
	maxResponseBytes       = 16 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	// Token is the bearer token, if already signed in.
	Token      string
	HTTPClient *http.Client
	// Timeout applies to each request when HTTPClient is nil.
	Timeout time.Duration
	// OpenURL presents the Strava consent page to the user. The default
	// prints the URL to stderr.
	OpenURL func(string) error
	// CallbackTimeout bounds the wait for the browser redirect.
	CallbackTimeout time.Duration
	Logger          *slog.Logger
}

// Client talks to a Tug server. It is safe for concurrent use.
type Client struct {
	base            *url.URL
	http            *http.Client
	openURL         func(string) error
	callbackTimeout time.Duration
	logger          *slog.Logger
	pageSize        int

	mu    sync.RWMutex
	token string
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	openURL := cfg.OpenURL
	if openURL == nil {
		openURL = printURL
	}
	callbackTimeout := cfg.CallbackTimeout
	if callbackTimeout <= 0 {
		callbackTimeout = defaultCallbackTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:            base,
		http:            httpClient,
		openURL:         openURL,
		callbackTimeout: callbackTimeout,
		logger:          logger,
		pageSize:        activityPageSize,
		token:           cfg.Token,
	}, nil
}

func printURL(u string) error {
	_, err := fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize Strava:\n\n  %s\n\n", u)
	return err
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope is the wire shape of every JSON response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details any             `json:"details"`
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return domainerrors.NewCoded(domainerrors.CodeFromStatus(resp.StatusCode),
				fmt.Sprintf("%s %s: %s", method, path, http.StatusText(resp.StatusCode)))
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return envelopeError(resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// envelopeError rebuilds the server's domain error.
func envelopeError(status int, env envelope) error {
	code := domainerrors.Code(env.Code)
	if code == "" {
		code = domainerrors.CodeFromStatus(status)
	}
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	err := domainerrors.NewCoded(code, msg)
	if env.Details != nil {
		return err.WithDetails(env.Details)
	}
	return err
}
