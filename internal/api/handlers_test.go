package api

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/service"
	"github.com/tugapp/tug/internal/store"
)

func TestValues_CRUD(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")

	id := ts.createValue(t, bearer, "Health", 5)
	ts.createValue(t, bearer, "Craft", 3)

	resp := ts.api.Get("/api/v1/values", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[ValuesResponse](t, resp)
	assert.Len(t, list.Data.Values, 2)

	resp = ts.api.Patch("/api/v1/values/"+id, bearer, map[string]any{"importance": 4, "active": false})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decodeEnvelope[domain.Value](t, resp)
	assert.Equal(t, 4, updated.Data.Importance)
	assert.False(t, updated.Data.Active)

	active := decodeEnvelope[ValuesResponse](t, ts.api.Get("/api/v1/values?active=true", bearer))
	require.Len(t, active.Data.Values, 1)
	assert.Equal(t, "Craft", active.Data.Values[0].Name)

	resp = ts.api.Delete("/api/v1/values/"+id, bearer)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/values/"+id, bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp).Code)
}

func TestValues_Validation(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")

	resp := ts.api.Post("/api/v1/values", bearer, map[string]any{"name": "Health", "importance": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = ts.api.Post("/api/v1/values", bearer, map[string]any{"name": "Health", "importance": 3, "color": "red"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope[any](t, resp).Code)
}

func TestValues_OwnedPerUser(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.register(t, "ana@example.com")
	ben := ts.register(t, "ben@example.com")

	id := ts.createValue(t, ana, "Health", 5)

	resp := ts.api.Get("/api/v1/values/"+id, ben)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestActivities_LogListAndSummarize(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")
	health := ts.createValue(t, bearer, "Health", 5)

	now := time.Now().UTC()
	for _, minutes := range []int{30, 45, 20} {
		resp := ts.api.Post("/api/v1/activities", bearer, map[string]any{
			"value_id": health,
			"duration": minutes,
			"date":     now.Add(-time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	window := url.Values{
		"start": {now.Add(-24 * time.Hour).Format(time.RFC3339)},
		"end":   {now.Add(time.Hour).Format(time.RFC3339)},
	}

	q := url.Values{"limit": {"2"}}
	for k, v := range window {
		q[k] = v
	}
	resp := ts.api.Get("/api/v1/activities?"+q.Encode(), bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decodeEnvelope[store.Page[domain.ActivityRecord]](t, resp)
	assert.Len(t, page.Data.Items, 2)
	assert.Equal(t, 3, page.Data.Total)
	assert.True(t, page.Data.HasMore)
	require.NotEmpty(t, page.Data.NextCursor)

	q.Set("cursor", page.Data.NextCursor)
	page = decodeEnvelope[store.Page[domain.ActivityRecord]](t, ts.api.Get("/api/v1/activities?"+q.Encode(), bearer))
	assert.Len(t, page.Data.Items, 1)
	assert.False(t, page.Data.HasMore)

	stats := decodeEnvelope[domain.ActivityStatistics](t, ts.api.Get("/api/v1/activities/statistics?"+window.Encode(), bearer))
	assert.Equal(t, 3, stats.Data.TotalActivities)
	assert.Equal(t, 95, stats.Data.TotalMinutes)

	summary := decodeEnvelope[domain.ActivitySummary](t, ts.api.Get("/api/v1/activities/summary?"+window.Encode(), bearer))
	require.Len(t, summary.Data.Values, 1)
	assert.Equal(t, "Health", summary.Data.Values[0].ValueName)
	assert.Equal(t, 95, summary.Data.Values[0].Minutes)
}

func TestActivities_BadWindow(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")

	resp := ts.api.Get("/api/v1/activities/statistics?start=yesterday&end=today", bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope[any](t, resp).Code)
}

func TestActivities_Delete(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")
	health := ts.createValue(t, bearer, "Health", 5)

	resp := ts.api.Post("/api/v1/activities", bearer, map[string]any{"value_id": health, "duration": 15})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeEnvelope[domain.ActivityRecord](t, resp)

	resp = ts.api.Delete("/api/v1/activities/"+created.Data.ID, bearer)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Delete("/api/v1/activities/"+created.Data.ID, bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProgress_Report(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")
	health := ts.createValue(t, bearer, "Health", 5)

	resp := ts.api.Post("/api/v1/activities", bearer, map[string]any{"value_id": health, "duration": 60})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/progress?timeframe=daily", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	report := decodeEnvelope[service.ProgressReport](t, resp)
	assert.Equal(t, domain.TimeframeDaily, report.Data.Timeframe)
	assert.Equal(t, domain.KindValue, report.Data.Mode)
	assert.Equal(t, 60, report.Data.Aggregates["Health"].Minutes)
	assert.NotEmpty(t, report.Data.Alignment)
	assert.NotEmpty(t, report.Data.Insight)

	resp = ts.api.Get("/api/v1/progress?timeframe=yearly", bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestProfile_UpdateAndPicture(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")

	profile := decodeEnvelope[domain.UserProfile](t, ts.api.Get("/api/v1/profile", bearer))
	assert.Equal(t, "ana", profile.Data.DisplayName)

	resp := ts.api.Patch("/api/v1/profile", bearer, map[string]any{"display_name": "Ana B", "bio": "runs"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Ana B", decodeEnvelope[domain.UserProfile](t, resp).Data.DisplayName)

	resp = ts.api.Get("/api/v1/profile/picture", bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	img := testPNG(t)
	resp = ts.api.Put("/api/v1/profile/picture", bearer, map[string]any{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	uploaded := decodeEnvelope[domain.UserProfile](t, resp)
	assert.True(t, uploaded.Data.HasAvatar)
	assert.NotEmpty(t, uploaded.Data.AvatarBlurHash)

	resp = ts.api.Get("/api/v1/profile/picture", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, img, resp.Body.Bytes())
}

func TestAccount_Delete(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.register(t, "ana@example.com")
	ts.register(t, "ben@example.com")
	ts.createValue(t, ana, "Health", 5)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
		status   int
	}{
		{"wrong password", map[string]any{"email": "ana@example.com", "password": "nope nope nope"}, "WRONG_PASSWORD", http.StatusUnauthorized},
		{"other user", map[string]any{"email": "ben@example.com", "password": "correct horse battery"}, "USER_MISMATCH", http.StatusForbidden},
		{"unknown user", map[string]any{"email": "cy@example.com", "password": "correct horse battery"}, "USER_NOT_FOUND", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Delete("/api/v1/account", ana, tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Equal(t, tt.wantCode, decodeEnvelope[any](t, resp).Code)
		})
	}

	// Failed attempts deleted nothing.
	resp := ts.api.Get("/api/v1/values", ana)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeEnvelope[ValuesResponse](t, resp).Data.Values, 1)

	resp = ts.api.Delete("/api/v1/account", ana, map[string]any{"email": "ana@example.com", "password": "correct horse battery"})
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "correct horse battery"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestStrava_Disabled(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.register(t, "ana@example.com")

	status := decodeEnvelope[service.StravaStatus](t, ts.api.Get("/api/v1/strava/status", bearer))
	assert.False(t, status.Data.Enabled)
	assert.False(t, status.Data.Connected)

	resp := ts.api.Get("/api/v1/strava/authorize", bearer)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "NOT_CONNECTED", decodeEnvelope[any](t, resp).Code)
}

func TestStrava_ConnectImportDisconnect(t *testing.T) {
	ts := setupTestServerWith(t, testOptions{strava: true})
	bearer := ts.register(t, "ana@example.com")
	health := ts.createValue(t, bearer, "Health", 5)

	resp := ts.api.Get("/api/v1/strava/authorize?redirect_uri="+url.QueryEscape("http://127.0.0.1:8765/callback"), bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	authURL, err := url.Parse(decodeEnvelope[StravaAuthorizeResponse](t, resp).Data.URL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "http://127.0.0.1:8765/callback", authURL.Query().Get("redirect_uri"))

	resp = ts.api.Post("/api/v1/strava/connect", bearer, map[string]any{"code": "abc", "state": state})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	status := decodeEnvelope[service.StravaStatus](t, resp)
	assert.True(t, status.Data.Connected)
	assert.Equal(t, int64(777), status.Data.AthleteID)

	resp = ts.api.Put("/api/v1/strava/default-value", bearer, map[string]any{"value_id": health})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	def := decodeEnvelope[DefaultValueBody](t, ts.api.Get("/api/v1/strava/default-value", bearer))
	assert.Equal(t, health, def.Data.ValueID)

	list := decodeEnvelope[StravaActivitiesResponse](t, ts.api.Get("/api/v1/strava/activities?limit=5", bearer))
	require.Len(t, list.Data.Activities, 1)
	assert.Equal(t, "Hill Repeats", list.Data.Activities[0].Name)

	resp = ts.api.Post("/api/v1/strava/import", bearer, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decodeEnvelope[StravaImportResponse](t, resp).Data.Imported)

	resp = ts.api.Post("/api/v1/strava/import", bearer, map[string]any{})
	assert.Equal(t, 0, decodeEnvelope[StravaImportResponse](t, resp).Data.Imported)

	resp = ts.api.Post("/api/v1/strava/disconnect", bearer)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	status = decodeEnvelope[service.StravaStatus](t, ts.api.Get("/api/v1/strava/status", bearer))
	assert.False(t, status.Data.Connected)
}

func TestStrava_AuthorizeRejectsRemoteRedirect(t *testing.T) {
	ts := setupTestServerWith(t, testOptions{strava: true})
	bearer := ts.register(t, "ana@example.com")

	resp := ts.api.Get("/api/v1/strava/authorize?redirect_uri="+url.QueryEscape("https://evil.example/cb"), bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStrava_Callback(t *testing.T) {
	ts := setupTestServerWith(t, testOptions{strava: true})
	bearer := ts.register(t, "ana@example.com")

	resp := ts.api.Get("/api/v1/strava/authorize", bearer)
	authURL, err := url.Parse(decodeEnvelope[StravaAuthorizeResponse](t, resp).Data.URL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")

	resp = ts.api.Get("/api/v1/strava/callback?error=access_denied&state=" + url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, resp.Body.String(), "did not authorize")

	resp = ts.api.Get("/api/v1/strava/callback?code=abc&scope=read,activity:read_all&state=" + url.QueryEscape(state))
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Strava connected")

	status := decodeEnvelope[service.StravaStatus](t, ts.api.Get("/api/v1/strava/status", bearer))
	assert.True(t, status.Data.Connected)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: 120, B: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
