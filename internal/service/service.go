// Package service holds Tug's business logic. Handlers and the dashboard
// pipeline call services; services call the store, the cache and Strava.
package service

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/store"
	"github.com/tugapp/tug/internal/validation"
)

// validate is the shared request validator.
var validate = validation.New()

// notFound maps store.ErrNotFound to a domain not-found error with msg.
// Other errors pass through unchanged.
func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound(msg).WithCause(err)
	}
	return err
}

// normalizeName trims and NFC-normalizes a user-entered name so that
// visually identical names compare equal.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// displayNameFromEmail derives a default display name from an address.
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
