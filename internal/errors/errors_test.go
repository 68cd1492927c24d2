package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("delete account: %w", NewCoded(CodeWrongPassword, "password did not match"))

	assert.True(t, Is(err, ErrWrongPassword))
	assert.False(t, Is(err, ErrUserMismatch))
	assert.Equal(t, CodeWrongPassword, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeInternal, "save avatar")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save avatar: disk full", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())

	notFound := NotFound("no such activity").WithCause(cause)
	assert.ErrorIs(t, notFound, cause)
	assert.True(t, Is(notFound, ErrNotFound))
}

func TestWithDetails_KeepsCode(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"minutes": "must be positive"})

	assert.True(t, Is(err, ErrValidation))
	assert.Equal(t, map[string]string{"minutes": "must be positive"}, err.Details)
	assert.Nil(t, ErrValidation.Details)
}

func TestCodeHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:          http.StatusNotFound,
		CodeNotConnected:      http.StatusConflict,
		CodeWrongPassword:     http.StatusUnauthorized,
		CodeUserMismatch:      http.StatusForbidden,
		CodeOAuthRedirect:     http.StatusBadRequest,
		CodeTooManyRequests:   http.StatusTooManyRequests,
		CodeUpstream:          http.StatusBadGateway,
		Code("SOMETHING_NEW"): http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.HTTPStatus(), code)
	}
}

func TestCodeFromStatus(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeFromStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, CodeConflict, CodeFromStatus(http.StatusConflict))
	assert.Equal(t, CodeUpstream, CodeFromStatus(http.StatusBadGateway))
	assert.Equal(t, CodeInternal, CodeFromStatus(http.StatusServiceUnavailable))
}
