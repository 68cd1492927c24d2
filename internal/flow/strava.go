package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/strava"
)

// Recovery is the user's choice after an automatic Strava connect fails.
type Recovery int

const (
	// RecoveryRetry runs the automatic connect once more.
	RecoveryRetry Recovery = iota + 1
	// RecoveryManualCode completes the link with a code the user pastes.
	RecoveryManualCode
)

func (r Recovery) String() string {
	switch r {
	case RecoveryRetry:
		return "retry"
	case RecoveryManualCode:
		return "manual code"
	default:
		return fmt.Sprintf("Recovery(%d)", int(r))
	}
}

// StravaConnector links the signed-in user's Strava account.
type StravaConnector interface {
	// ConnectStrava runs the browser authorization end to end.
	ConnectStrava(ctx context.Context) error
	// ConnectStravaWithCode completes the link with an authorization code.
	ConnectStravaWithCode(ctx context.Context, code string) error
}

// RecoveryPrompter asks the user how to proceed after a failed connect.
type RecoveryPrompter interface {
	// ChooseRecovery offers exactly RecoveryRetry and RecoveryManualCode.
	ChooseRecovery(ctx context.Context, cause error) (Recovery, error)
	// ReadCode asks for an authorization code.
	ReadCode(ctx context.Context) (string, error)
}

// IsRedirectError reports whether err is a failed authorization redirect:
// a declined consent, a state that did not round-trip or an unregistered
// redirect URI. Retrying those cannot help, so they are never recovered.
func IsRedirectError(err error) bool {
	return errors.Is(err, domainerrors.ErrOAuthRedirect) || errors.Is(err, strava.ErrRedirect)
}

// ConnectStrava links Strava. When the automatic connect fails for any
// reason other than a redirect error, the user picks between one retry and
// entering a code by hand. Redirect errors and cancellation are returned
// as they are.
func ConnectStrava(ctx context.Context, connector StravaConnector, prompter RecoveryPrompter, logger *slog.Logger) error {
	logger = loggerOrDiscard(logger)

	err := connector.ConnectStrava(ctx)
	if err == nil {
		return nil
	}
	if IsRedirectError(err) || ctx.Err() != nil {
		return err
	}
	logger.Warn("strava connect failed, offering recovery", "error", err)

	choice, perr := prompter.ChooseRecovery(ctx, err)
	if perr != nil {
		return perr
	}

	switch choice {
	case RecoveryRetry:
		logger.Debug("retrying strava connect")
		return connector.ConnectStrava(ctx)
	case RecoveryManualCode:
		code, perr := prompter.ReadCode(ctx)
		if perr != nil {
			return perr
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return ErrPromptCancelled
		}
		return connector.ConnectStravaWithCode(ctx, code)
	default:
		return fmt.Errorf("unknown recovery choice %v", choice)
	}
}
