package api

import (
	"strconv"
	"time"

	domainerrors "github.com/tugapp/tug/internal/errors"
)

// WindowParams are the start/end query parameters shared by the activity
// endpoints. Both accept RFC3339 or epoch milliseconds.
type WindowParams struct {
	Start string `query:"start" required:"true" doc:"Window start, RFC3339 or epoch milliseconds"`
	End   string `query:"end" required:"true" doc:"Window end, RFC3339 or epoch milliseconds"`
}

// Window parses both bounds.
func (p WindowParams) Window() (start, end time.Time, err error) {
	if start, err = parseTimeParam("start", p.Start); err != nil {
		return
	}
	end, err = parseTimeParam("end", p.End)
	return
}

func parseTimeParam(name, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, domainerrors.Validationf("%s must be RFC3339 or epoch milliseconds, got %q", name, s)
}
