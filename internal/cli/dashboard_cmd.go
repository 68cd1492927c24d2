package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/progress"
)

func (a *app) dashboardCommand() *cobra.Command {
	var (
		timeframe string
		vices     bool
		refresh   bool
	)
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"progress"},
		Short:   "Show how your time lines up with your values",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.signedInClient()
			if err != nil {
				return err
			}

			tf := a.profile.Timeframe
			if timeframe != "" {
				if tf, err = domain.ParseTimeframe(timeframe); err != nil {
					return err
				}
				// Remember the last selection.
				a.profile.Timeframe = tf
				if err := a.saveProfile(); err != nil {
					a.log.Warn("could not save timeframe", "error", err)
				}
			}

			var dashCache progress.Cache
			local, err := a.openCache()
			if err != nil {
				a.log.Warn("local cache unavailable, fetching live", "error", err)
			} else {
				defer local.Close()
				dashCache = local
			}

			kind := domain.KindValue
			if vices {
				kind = domain.KindVice
			}
			logger := a.log.WithComponent("dashboard").Logger

			fetcher := progress.NewFetcher(progress.FetcherConfig{
				Cache:  dashCache,
				Source: c,
				Notifier: progress.NotifierFunc(func(msg string) {
					fmt.Fprintln(a.opts.Err, msg)
				}),
				Logger: logger,
			})
			d := progress.NewDashboard(progress.DashboardConfig{
				Values:    c,
				Fetcher:   fetcher,
				Cache:     dashCache,
				Mode:      progress.NewModeStore(kind, logger),
				Timeframe: tf,
				WarmCache: dashCache != nil,
				Logger:    logger,
			})
			defer d.Close()

			if refresh {
				err = d.Refresh(ctx)
			} else {
				err = d.Initialize(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Fprint(a.opts.Out, renderDashboard(a.opts.Out, d.View()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "daily, weekly or monthly (remembered; default weekly)")
	cmd.Flags().BoolVar(&vices, "vices", false, "Show vices instead of values")
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Bypass cached totals and refetch everything")
	return cmd
}
