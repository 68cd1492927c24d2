package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/media/avatars"
	"github.com/tugapp/tug/internal/store/sqlite"
	"github.com/tugapp/tug/internal/strava"
)

// testEnv wires every service against a temporary database, an in-memory
// cache and, optionally, a fake Strava.
type testEnv struct {
	store      *sqlite.Store
	cache      *cache.TwoTier
	tokens     *auth.TokenService
	auth       *AuthService
	values     *ValueService
	activities *ActivityService
	strava     *StravaService
	users      *UserService
	progress   *ProgressService
	fake       *fakeStrava
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	return setupTestWith(t, false)
}

func setupTestWithStrava(t *testing.T) *testEnv {
	t.Helper()
	return setupTestWith(t, true)
}

func setupTestWith(t *testing.T, withStrava bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := testLogger()

	s, err := sqlite.Open(filepath.Join(dir, "tug.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	c := cache.New(cache.Config{Logger: logger})
	require.NoError(t, c.Initialize())
	t.Cleanup(func() { _ = c.Close() })

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{9}, 32), time.Hour)
	require.NoError(t, err)

	avatarStorage, err := avatars.NewStorage(dir)
	require.NoError(t, err)

	env := &testEnv{store: s, cache: c, tokens: tokens}

	var client *strava.Client
	if withStrava {
		env.fake = newFakeStrava(t)
		client = strava.New(strava.Config{
			ClientID:          "42",
			ClientSecret:      "secret",
			RedirectURL:       "http://tug.test/api/v1/strava/callback",
			OAuthBaseURL:      env.fake.URL + "/oauth",
			APIBaseURL:        env.fake.URL + "/api/v3",
			RequestsPerSecond: 1000,
			Burst:             100,
		})
		t.Cleanup(client.Close)
	}

	env.auth = NewAuthService(s, tokens, logger)
	t.Cleanup(env.auth.Close)
	env.values = NewValueService(s, logger)
	env.activities = NewActivityService(s, c, ActivityConfig{}, logger)
	env.strava = NewStravaService(s, client, tokens, env.activities, logger)
	env.users = NewUserService(s, env.auth, env.strava, avatarStorage, c, logger)
	env.progress = NewProgressService(env.values, env.activities, c, ProgressConfig{}, logger)
	return env
}

// register creates an account and returns its user ID.
func (e *testEnv) register(t *testing.T, email, password string) string {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	return resp.User.ID
}

func (e *testEnv) createValue(t *testing.T, userID, name string, importance int) *domain.Value {
	t.Helper()
	v, err := e.values.CreateValue(context.Background(), userID, CreateValueRequest{Name: name, Importance: importance})
	require.NoError(t, err)
	return v
}

func (e *testEnv) logMinutes(t *testing.T, userID, valueID string, minutes int, at time.Time) {
	t.Helper()
	_, err := e.activities.LogActivity(context.Background(), userID, LogActivityRequest{
		ValueID:    valueID,
		Minutes:    minutes,
		OccurredAt: at,
	})
	require.NoError(t, err)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: 80, B: uint8(y * 16), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeStrava serves the token, deauthorize and activity endpoints.
type fakeStrava struct {
	*httptest.Server
	tokenStatus  atomic.Int32
	refreshes    atomic.Int32
	deauthorized atomic.Int32
	issued       atomic.Int32
}

func newFakeStrava(t *testing.T) *fakeStrava {
	t.Helper()
	f := &fakeStrava{}
	f.tokenStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		status := int(f.tokenStatus.Load())
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"Bad Request","errors":[{"resource":"AuthorizationCode","field":"code","code":"invalid"}]}`))
			return
		}
		if r.Form.Get("grant_type") == "refresh_token" {
			f.refreshes.Add(1)
		}
		n := f.issued.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token_type":    "Bearer",
			"access_token":  fmt.Sprintf("access-%d", n),
			"refresh_token": fmt.Sprintf("refresh-%d", n),
			"expires_in":    21600,
			"athlete":       map[string]any{"id": 777, "username": "climber"},
		})
	})
	mux.HandleFunc("POST /oauth/deauthorize", func(w http.ResponseWriter, r *http.Request) {
		f.deauthorized.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 501, "name": "Hill Repeats", "sport_type": "Ride", "start_date": "2026-04-14T06:00:00Z", "moving_time": 2700, "elapsed_time": 3000},
			{"id": 502, "name": "Easy Spin", "sport_type": "Ride", "start_date": "2026-04-13T18:00:00Z", "moving_time": 1200, "elapsed_time": 1300}
		]`))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}
