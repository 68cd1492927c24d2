package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tugapp/tug/internal/client"
	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/flow"
)

func (a *app) registerCommand() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.authenticate(cmd.Context(), email, password, func(c *client.Client, cred domain.Credential) (*client.Session, error) {
				return c.Register(cmd.Context(), cred.Email, cred.Password, name)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.authenticate(cmd.Context(), email, password, func(c *client.Client, cred domain.Credential) (*client.Session, error) {
				return c.Login(cmd.Context(), cred.Email, cred.Password)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

// authenticate runs fn with a credential from the flags, or from a prompt
// when either is missing, and saves the resulting session.
func (a *app) authenticate(ctx context.Context, email, password string, fn func(*client.Client, domain.Credential) (*client.Session, error)) error {
	c, err := a.client()
	if err != nil {
		return err
	}

	var session *client.Session
	run := func(cred domain.Credential) error {
		var err error
		session, err = fn(c, cred)
		return err
	}
	if email != "" && password != "" {
		err = run(domain.Credential{Email: email, Password: password})
	} else {
		err = flow.WithCredential(ctx, a.term, run)
	}
	if err != nil {
		return err
	}

	a.profile.Email = session.User.Email
	a.profile.Token = session.AccessToken
	if err := a.saveProfile(); err != nil {
		return err
	}
	a.printf("Signed in as %s (token valid until %s)\n", session.User.Email, session.ExpiresAt.Local().Format("Jan 2 15:04"))
	return nil
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.profile.Token = ""
			if err := a.saveProfile(); err != nil {
				return err
			}
			a.printf("Signed out\n")
			return nil
		},
	}
}

func (a *app) accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage your account",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Permanently delete your account and all its data",
		Long:  `Deletes the account after you confirm your email and password. Values, activities, the Strava link and the profile picture are removed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			if err := flow.DeleteAccount(cmd.Context(), c, a.term, a.log.Logger); err != nil {
				return err
			}

			if local, err := a.openCache(); err == nil {
				_ = local.ClearByPrefix(cmd.Context(), "")
				_ = local.Close()
			}
			a.profile.Token = ""
			a.profile.Email = ""
			if err := a.saveProfile(); err != nil {
				return err
			}
			a.printf("Your account has been deleted.\n")
			return nil
		},
	})
	return cmd
}
