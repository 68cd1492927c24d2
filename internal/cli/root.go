// Package cli implements the tug command-line client: sign-in, the
// progress dashboard, value and activity entry, Strava linking and account
// deletion, all against a Tug server.
package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tugapp/tug/internal/cache"
	"github.com/tugapp/tug/internal/client"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/flow"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/progress"
)

// ErrNotSignedIn is returned by commands that need a token when the
// profile has none.
var ErrNotSignedIn = errors.New("not signed in; run `tug login` first")

// Options wires the CLI to its environment. Zero fields use the process's
// stdio, the default profile path and the user cache directory.
type Options struct {
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	ProfilePath string
	CacheDir    string
	// OpenURL shows the Strava consent page; see client.Config.
	OpenURL func(string) error
}

type app struct {
	opts      Options
	server    string
	logLevel  string
	profile   *Profile
	log       *logger.Logger
	term      *flow.Terminal
	apiClient *client.Client
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "tug",
		Short:         "Track time against the things you value",
		Long:          `tug talks to a Tug server: sign in, log activities, link Strava and see how your time lines up with your values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&a.server, "server", "", "Tug server URL (overrides the profile)")
	root.PersistentFlags().StringVar(&a.opts.ProfilePath, "profile", opts.ProfilePath, "Profile file (default ~/.config/tug/cli.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.registerCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.dashboardCommand(),
		a.valuesCommand(),
		a.logCommand(),
		a.stravaCommand(),
		a.accountCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", describe(err))
		return 1
	}
	return 0
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var f *flow.Failure
	if errors.As(err, &f) {
		return f.Message
	}
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func (a *app) setup() error {
	a.log = logger.New(logger.Config{
		Writer:      a.opts.Err,
		Format:      "pretty",
		Environment: "development",
		Level:       logger.ParseLevel(a.logLevel),
	})

	if a.opts.ProfilePath == "" {
		path, err := DefaultProfilePath()
		if err != nil {
			return err
		}
		a.opts.ProfilePath = path
	}
	profile, err := LoadProfile(a.opts.ProfilePath)
	if err != nil {
		return err
	}
	if a.server != "" && a.server != profile.Server {
		// A token is only good for the server that issued it.
		profile.Server = a.server
		profile.Token = ""
	}
	a.profile = profile
	a.term = &flow.Terminal{In: a.opts.In, Out: a.opts.Err}
	return nil
}

// client returns the API client for the profile's server.
func (a *app) client() (*client.Client, error) {
	if a.apiClient != nil {
		return a.apiClient, nil
	}
	c, err := client.New(client.Config{
		BaseURL: a.profile.Server,
		Token:   a.profile.Token,
		OpenURL: a.opts.OpenURL,
		Logger:  a.log.WithComponent("client").Logger,
	})
	if err != nil {
		return nil, err
	}
	a.apiClient = c
	return c, nil
}

// signedInClient is client for commands that need a token.
func (a *app) signedInClient() (*client.Client, error) {
	if !a.profile.SignedIn() {
		return nil, ErrNotSignedIn
	}
	return a.client()
}

func (a *app) saveProfile() error {
	return a.profile.Save(a.opts.ProfilePath)
}

// openCache opens the local dashboard cache. Aggregate keys carry no user,
// so the directory is scoped to the server and account.
func (a *app) openCache() (*cache.TwoTier, error) {
	dir := a.opts.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache directory: %w", err)
		}
		dir = filepath.Join(base, "tug")
	}
	sum := sha256.Sum256([]byte(a.profile.Server + "\x00" + a.profile.Email))
	dir = filepath.Join(dir, hex.EncodeToString(sum[:8]))

	c := cache.New(cache.Config{Dir: dir, Logger: a.log.WithComponent("cache").Logger})
	if err := c.Initialize(); err != nil {
		return nil, err
	}
	return c, nil
}

// invalidateActivity drops cached dashboard totals after a write, so the
// next dashboard run fetches fresh data.
func (a *app) invalidateActivity(ctx context.Context) {
	local, err := a.openCache()
	if err != nil {
		a.log.Debug("local cache unavailable", "error", err)
		return
	}
	defer local.Close()
	if err := local.ClearByPrefix(ctx, progress.ActivityCachePrefix); err != nil {
		a.log.Debug("local cache clear failed", "error", err)
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.opts.Out, format, args...)
}
