package service

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/strava"
)

func TestStravaService_Disabled(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")

	assert.False(t, env.strava.Enabled())

	st, err := env.strava.Status(ctx, userID)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.False(t, st.Connected)

	_, err = env.strava.AuthorizationURL(ctx, userID, "")
	assert.ErrorIs(t, err, domainerrors.ErrNotConnected)
	_, err = env.strava.Connect(ctx, userID, "code")
	assert.ErrorIs(t, err, domainerrors.ErrNotConnected)
}

func TestStravaService_AuthorizeAndCallback(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")

	raw, err := env.strava.AuthorizationURL(ctx, userID, "")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	connected, err := env.strava.HandleCallback(ctx, url.Values{"code": {"abc"}, "state": {state}, "scope": {strava.Scope}})
	require.NoError(t, err)
	assert.Equal(t, userID, connected)

	ok, err := env.strava.IsConnected(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	st, err := env.strava.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(777), st.AthleteID)
}

func TestStravaService_CallbackRedirectErrors(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")
	otherState, err := env.tokens.GenerateState(userID)
	require.NoError(t, err)

	for name, q := range map[string]url.Values{
		"declined":     {"error": {"access_denied"}, "state": {otherState}},
		"forged state": {"code": {"abc"}, "state": {"not-a-token"}},
		"missing code": {"state": {otherState}},
		"access token": {"code": {"abc"}, "state": {mustAccessToken(t, env, userID)}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.strava.HandleCallback(ctx, q)
			assert.ErrorIs(t, err, domainerrors.ErrOAuthRedirect)
		})
	}
}

func mustAccessToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	user, err := env.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	tok, _, err := env.tokens.GenerateAccessToken(user)
	require.NoError(t, err)
	return tok
}

func TestStravaService_LoopbackConnect(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	ana := env.register(t, "ana@example.com", "correct horse")
	ben := env.register(t, "ben@example.com", "battery staple")

	_, err := env.strava.AuthorizationURL(ctx, ana, "https://example.com/cb")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	raw, err := env.strava.AuthorizationURL(ctx, ana, "http://127.0.0.1:4567/callback")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:4567/callback", u.Query().Get("redirect_uri"))
	state := u.Query().Get("state")

	_, err = env.strava.ConnectWithState(ctx, ben, "abc", state)
	assert.ErrorIs(t, err, domainerrors.ErrOAuthRedirect, "state issued to someone else")

	st, err := env.strava.ConnectWithState(ctx, ana, "abc", state)
	require.NoError(t, err)
	assert.True(t, st.Connected)

	// Manual codes carry no state.
	_, err = env.strava.ConnectWithState(ctx, ben, "abc", "")
	require.NoError(t, err)
}

func TestStravaService_ConnectRejectedCode(t *testing.T) {
	env := setupTestWithStrava(t)
	userID := env.register(t, "ana@example.com", "correct horse")
	env.fake.tokenStatus.Store(http.StatusBadRequest)

	_, err := env.strava.Connect(context.Background(), userID, "stale-code")
	assert.ErrorIs(t, err, domainerrors.ErrNotConnected)
	assert.NotErrorIs(t, err, domainerrors.ErrOAuthRedirect)
}

func TestStravaService_ImportDedupes(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")
	health := env.createValue(t, userID, "Health", 5)

	_, err := env.strava.Connect(ctx, userID, "abc")
	require.NoError(t, err)

	_, err = env.strava.SyncRecent(ctx, userID, "", 10)
	assert.ErrorIs(t, err, domainerrors.ErrValidation, "no value and no default")

	require.NoError(t, env.strava.SetDefaultValueID(ctx, userID, health.ID))

	n, err := env.strava.SyncRecent(ctx, userID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.strava.SyncRecent(ctx, userID, "", 10)
	require.NoError(t, err)
	assert.Zero(t, n, "second import adds nothing")

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	records, err := env.activities.GetActivities(ctx, userID, start, start.AddDate(0, 1, 0), false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, domain.SourceStrava, r.Source)
		assert.Equal(t, health.ID, r.ValueID)
	}
}

func TestStravaService_DefaultValue(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")

	_, err := env.strava.GetDefaultValueID(ctx, userID)
	assert.ErrorIs(t, err, domainerrors.ErrNotConnected)

	_, err = env.strava.Connect(ctx, userID, "abc")
	require.NoError(t, err)

	assert.ErrorIs(t, env.strava.SetDefaultValueID(ctx, userID, "val-missing"), domainerrors.ErrNotFound)

	health := env.createValue(t, userID, "Health", 5)
	require.NoError(t, env.strava.SetDefaultValueID(ctx, userID, health.ID))

	// Reconnecting keeps the default.
	_, err = env.strava.Connect(ctx, userID, "def")
	require.NoError(t, err)
	got, err := env.strava.GetDefaultValueID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, health.ID, got)
}

func TestStravaService_RefreshPersists(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")

	_, err := env.strava.Connect(ctx, userID, "abc")
	require.NoError(t, err)

	conn, err := env.store.GetStravaConnection(ctx, userID)
	require.NoError(t, err)
	conn.Expiry = time.Now().Add(-time.Minute)
	require.NoError(t, env.store.SaveStravaConnection(ctx, conn))

	tok, err := env.strava.GetAccessToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)
	assert.Equal(t, int32(1), env.fake.refreshes.Load())

	conn, err = env.store.GetStravaConnection(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", conn.AccessToken)
	assert.Equal(t, "refresh-2", conn.RefreshToken)

	// A fresh token is reused without another refresh.
	_, err = env.strava.GetAccessToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), env.fake.refreshes.Load())
}

func TestStravaService_Disconnect(t *testing.T) {
	env := setupTestWithStrava(t)
	ctx := context.Background()
	userID := env.register(t, "ana@example.com", "correct horse")

	assert.ErrorIs(t, env.strava.Disconnect(ctx, userID), domainerrors.ErrNotConnected)

	_, err := env.strava.Connect(ctx, userID, "abc")
	require.NoError(t, err)
	require.NoError(t, env.strava.Disconnect(ctx, userID))

	assert.Equal(t, int32(1), env.fake.deauthorized.Load())
	ok, err := env.strava.IsConnected(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}
