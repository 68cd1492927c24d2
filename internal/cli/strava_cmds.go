package cli

import (
	"github.com/spf13/cobra"

	"github.com/tugapp/tug/internal/flow"
)

func (a *app) stravaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strava",
		Short: "Link Strava and import workouts",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the Strava link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			st, err := c.StravaStatus(cmd.Context())
			if err != nil {
				return err
			}
			switch {
			case !st.Enabled:
				a.printf("Strava is not available on this server.\n")
			case !st.Connected:
				a.printf("Strava is not connected. Run `tug strava connect`.\n")
			default:
				a.printf("Connected to Strava athlete %d since %s\n", st.AthleteID, st.ConnectedAt.Local().Format("Jan 2, 2006"))
				if st.DefaultValueID != "" {
					a.printf("Imports are logged against %s\n", st.DefaultValueID)
				}
			}
			return nil
		},
	}

	connect := &cobra.Command{
		Use:   "connect",
		Short: "Link your Strava account through the browser",
		Long: `Opens Strava's consent page and waits for the redirect on a local port.
If that fails for a reason other than a declined or mismatched redirect, you
can retry once or paste the authorization code by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			if err := flow.ConnectStrava(cmd.Context(), c, a.term, a.log.Logger); err != nil {
				return err
			}
			a.printf("Strava connected.\n")
			return nil
		},
	}

	var valueRef string
	var limit int
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import recent Strava activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			valueID := ""
			if valueRef != "" {
				v, err := findValue(cmd.Context(), c, valueRef)
				if err != nil {
					return err
				}
				valueID = v.ID
			}
			n, err := c.ImportStrava(cmd.Context(), valueID, limit)
			if err != nil {
				return err
			}
			if n > 0 {
				a.invalidateActivity(cmd.Context())
			}
			a.printf("Imported %d new activities\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVar(&valueRef, "value", "", "Value to log against (default: the saved default)")
	importCmd.Flags().IntVar(&limit, "limit", 30, "How many recent activities to consider")

	setDefault := &cobra.Command{
		Use:   "default VALUE",
		Short: "Set the value Strava imports are logged against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			v, err := findValue(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			if err := c.SetStravaDefaultValue(cmd.Context(), v.ID); err != nil {
				return err
			}
			a.printf("Strava imports will be logged against %q\n", v.Name)
			return nil
		},
	}

	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Unlink Strava",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			if err := c.DisconnectStrava(cmd.Context()); err != nil {
				return err
			}
			a.printf("Strava disconnected.\n")
			return nil
		},
	}

	cmd.AddCommand(status, connect, importCmd, setDefault, disconnect)
	return cmd
}
