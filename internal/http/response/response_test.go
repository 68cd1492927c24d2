package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"status": "ok"}, discard)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.InDelta(t, float64(Version), body["v"], 0)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "code")
}

func TestOk_NullData(t *testing.T) {
	raw, err := json.Marshal(Ok(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"success":true}`, string(raw))
}

func TestFail(t *testing.T) {
	raw, err := json.Marshal(Fail(domainerrors.CodeConflict, "Entity already exists", map[string]string{"existing_id": "abc"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"v": 1,
		"success": false,
		"error": "Entity already exists",
		"code": "CONFLICT",
		"message": "Entity already exists",
		"details": {"existing_id": "abc"}
	}`, string(raw))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"domain", domainerrors.ErrWrongPassword, http.StatusUnauthorized, "WRONG_PASSWORD"},
		{"domain wrapped", domainerrors.Validation("bad").WithCause(errors.New("x")), http.StatusBadRequest, "VALIDATION"},
		{"store", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store conflict", store.ErrAlreadyExists.WithMessage("dup"), http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, discard)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errors.New("password column missing"), discard)
	assert.NotContains(t, w.Body.String(), "password column")
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequests(w, "slow down", discard)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decode(t, w)["code"])
}
