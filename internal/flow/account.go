package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
)

// User-facing messages for account deletion failures.
const (
	MsgWrongPassword  = "The password you entered is incorrect."
	MsgUserMismatch   = "Those credentials belong to a different account. Sign in with the account you want to delete."
	MsgUserNotFound   = "No account matches that email address."
	MsgTooManyTries   = "Too many attempts. Wait a minute and try again."
	MsgDeleteCanceled = "Account deletion cancelled."
	MsgDeleteFailed   = "Couldn't delete your account. Please try again."
)

// AccountDeleter deletes the signed-in user's account after re-authentication.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, cred domain.Credential) error
}

// CredentialPrompt is an open credential dialog. Close releases whatever it
// holds (terminal modes, windows) and must be safe to call once per Open.
type CredentialPrompt interface {
	// Credential blocks until the user submits or dismisses the prompt.
	// Dismissal returns ErrPromptCancelled.
	Credential(ctx context.Context) (domain.Credential, error)
	Close() error
}

// CredentialPrompter opens credential prompts.
type CredentialPrompter interface {
	OpenCredentialPrompt(ctx context.Context) (CredentialPrompt, error)
}

// WithCredential opens a prompt, reads one credential and passes it to fn.
// The prompt is closed before WithCredential returns, on every path.
func WithCredential(ctx context.Context, prompter CredentialPrompter, fn func(domain.Credential) error) (err error) {
	prompt, err := prompter.OpenCredentialPrompt(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := prompt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cred, err := prompt.Credential(ctx)
	if err != nil {
		return err
	}
	return fn(cred)
}

// DeleteAccount asks for the user's credentials and deletes the account.
// Failures come back as a *Failure whose message names the problem; nothing
// is deleted on failure, so the flow can simply be run again.
func DeleteAccount(ctx context.Context, deleter AccountDeleter, prompter CredentialPrompter, logger *slog.Logger) error {
	logger = loggerOrDiscard(logger)

	err := WithCredential(ctx, prompter, func(cred domain.Credential) error {
		return deleter.DeleteAccount(ctx, cred)
	})
	if err == nil {
		logger.Info("account deleted")
		return nil
	}

	msg := DeleteAccountMessage(err)
	if !errors.Is(err, ErrPromptCancelled) {
		logger.Warn("account deletion failed", "error", err)
	}
	return &Failure{Message: msg, Err: err}
}

// DeleteAccountMessage maps a deletion error to the message shown to the user.
func DeleteAccountMessage(err error) string {
	switch {
	case errors.Is(err, ErrPromptCancelled):
		return MsgDeleteCanceled
	case errors.Is(err, domainerrors.ErrWrongPassword):
		return MsgWrongPassword
	case errors.Is(err, domainerrors.ErrUserMismatch):
		return MsgUserMismatch
	case errors.Is(err, domainerrors.ErrUserNotFound):
		return MsgUserNotFound
	case errors.Is(err, domainerrors.ErrTooManyRequests):
		return MsgTooManyTries
	default:
		return MsgDeleteFailed
	}
}
