// Package flow holds the interactive client flows that need user input
// mid-operation: linking Strava with a recovery choice when the automatic
// path fails, and deleting the account behind a credential prompt.
//
// The flows depend only on small interfaces, so the terminal client, tests
// and any other front end supply their own connector, deleter and prompts.
package flow

import (
	"errors"
	"log/slog"
)

// ErrPromptCancelled is returned by a prompt the user dismissed.
var ErrPromptCancelled = errors.New("prompt cancelled")

// Failure is a flow error carrying the message to show the user.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// UserMessage returns the message to show for err: a Failure's message, or
// err's text.
func UserMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
