package flow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/tugapp/tug/internal/domain"
)

// Terminal prompts on a text stream. Passwords are read without echo when
// In is a terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// NewTerminal prompts on stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// ChooseRecovery implements RecoveryPrompter.
func (t *Terminal) ChooseRecovery(ctx context.Context, cause error) (Recovery, error) {
	fmt.Fprintf(t.Out, "Couldn't connect to Strava automatically: %s\n", UserMessage(cause))
	fmt.Fprintln(t.Out, "  [1] Try again")
	fmt.Fprintln(t.Out, "  [2] Enter the authorization code manually")
	for {
		fmt.Fprint(t.Out, "Choose 1 or 2: ")
		line, err := t.readLine(ctx)
		if err != nil {
			return 0, err
		}
		switch strings.ToLower(line) {
		case "1", "r", "retry":
			return RecoveryRetry, nil
		case "2", "m", "manual":
			return RecoveryManualCode, nil
		case "":
			return 0, ErrPromptCancelled
		}
	}
}

// ReadCode implements RecoveryPrompter.
func (t *Terminal) ReadCode(ctx context.Context) (string, error) {
	fmt.Fprintln(t.Out, "After approving access, copy the code parameter from the address bar.")
	fmt.Fprint(t.Out, "Authorization code: ")
	return t.readLine(ctx)
}

// OpenCredentialPrompt implements CredentialPrompter. The terminal state is
// captured on open and restored on Close, so an interrupted password read
// never leaves echo disabled.
func (t *Terminal) OpenCredentialPrompt(context.Context) (CredentialPrompt, error) {
	p := &terminalPrompt{t: t, fd: -1}
	if f, ok := t.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.GetState(fd)
		if err != nil {
			return nil, fmt.Errorf("read terminal state: %w", err)
		}
		p.fd, p.state = fd, state
	}
	return p, nil
}

type terminalPrompt struct {
	t      *Terminal
	fd     int
	state  *term.State
	closed bool
}

func (p *terminalPrompt) Credential(ctx context.Context) (domain.Credential, error) {
	fmt.Fprintln(p.t.Out, "Confirm your credentials to continue (leave empty to cancel).")
	fmt.Fprint(p.t.Out, "Email: ")
	email, err := p.t.readLine(ctx)
	if err != nil {
		return domain.Credential{}, err
	}
	if email == "" {
		return domain.Credential{}, ErrPromptCancelled
	}

	fmt.Fprint(p.t.Out, "Password: ")
	var password string
	if p.fd >= 0 {
		raw, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.t.Out)
		if err != nil {
			return domain.Credential{}, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		password, err = p.t.readLine(ctx)
		if err != nil {
			return domain.Credential{}, err
		}
	}
	if password == "" {
		return domain.Credential{}, ErrPromptCancelled
	}
	return domain.Credential{Email: email, Password: password}, nil
}

func (p *terminalPrompt) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.state != nil {
		return term.Restore(p.fd, p.state)
	}
	return nil
}

// readLine reads one trimmed line. End of input counts as cancellation.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.once.Do(func() { t.reader = bufio.NewReader(t.In) })

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := t.reader.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		line := strings.TrimSpace(r.line)
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && line != "" {
				return line, nil
			}
			if errors.Is(r.err, io.EOF) {
				return "", ErrPromptCancelled
			}
			return "", r.err
		}
		return line, nil
	}
}
