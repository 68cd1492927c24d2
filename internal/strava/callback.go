package strava

import (
	"fmt"
	"net/url"
)

// Callback is the query Strava appends to the redirect URL.
type Callback struct {
	Code  string
	State string
	Scope string
}

// ParseCallback extracts the authorization result from a redirect query.
// A declined consent, a missing code or a missing state is an ErrRedirect.
func ParseCallback(q url.Values) (Callback, error) {
	if e := q.Get("error"); e != "" {
		return Callback{}, fmt.Errorf("%w: %s", ErrRedirect, e)
	}

	cb := Callback{Code: q.Get("code"), State: q.Get("state"), Scope: q.Get("scope")}
	if cb.Code == "" {
		return Callback{}, fmt.Errorf("%w: missing code", ErrRedirect)
	}
	if cb.State == "" {
		return Callback{}, fmt.Errorf("%w: missing state", ErrRedirect)
	}
	return cb, nil
}
