package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tugapp/tug/internal/client"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
)

func (a *app) valuesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "values",
		Short: "List and edit your values and vices",
	}

	var all, vices bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			kind := domain.KindValue
			if vices {
				kind = domain.KindVice
			}
			values, err := c.ListValues(cmd.Context(), kind, !all)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				a.printf("No %ss yet.\n", kind)
				return nil
			}
			for _, v := range values {
				state := ""
				if !v.Active {
					state = " (inactive)"
				}
				a.printf("%-24s %s  %s  %s%s\n", v.Name, strings.Repeat("●", v.Importance)+strings.Repeat("○", domain.MaxImportance-v.Importance), v.Color, v.ID, state)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "Include inactive values")
	list.Flags().BoolVar(&vices, "vices", false, "List vices instead of values")

	var nv client.NewValue
	var kind string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			nv.Name = args[0]
			nv.Kind = domain.ValueKind(kind)
			v, err := c.CreateValue(cmd.Context(), nv)
			if err != nil {
				return err
			}
			a.invalidateActivity(cmd.Context())
			a.printf("Added %s %q (%s)\n", v.Kind, v.Name, v.ID)
			return nil
		},
	}
	add.Flags().IntVarP(&nv.Importance, "importance", "i", 3, "Importance from 1 to 5")
	add.Flags().StringVar(&nv.Color, "color", "", "Color as #RRGGBB")
	add.Flags().StringVar(&nv.Description, "description", "", "Description")
	add.Flags().StringVar(&kind, "kind", string(domain.KindValue), "value or vice")

	remove := &cobra.Command{
		Use:   "delete NAME|ID",
		Short: "Delete a value and its activities",
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
			if err := c.DeleteValue(cmd.Context(), v.ID); err != nil {
				return err
			}
			a.invalidateActivity(cmd.Context())
			a.printf("Deleted %q\n", v.Name)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func (a *app) logCommand() *cobra.Command {
	var name, notes, date string
	cmd := &cobra.Command{
		Use:   "log VALUE MINUTES",
		Short: "Log time spent on a value",
		Example: `  tug log Health 45 --name "Morning run"
  tug log Family 90 --date 2026-04-12T18:00:00+02:00`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signedInClient()
			if err != nil {
				return err
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil || minutes <= 0 {
				return fmt.Errorf("minutes must be a positive number, got %q", args[1])
			}
			v, err := findValue(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}

			na := client.NewActivity{ValueID: v.ID, Name: name, Minutes: minutes, Notes: notes}
			if date != "" {
				if na.Date, err = time.Parse(time.RFC3339, date); err != nil {
					return fmt.Errorf("date must be RFC 3339: %w", err)
				}
			}
			rec, err := c.LogActivity(cmd.Context(), na)
			if err != nil {
				return err
			}
			a.invalidateActivity(cmd.Context())
			a.printf("Logged %s on %s\n", formatMinutes(rec.Minutes), v.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "What you did")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&date, "date", "", "When it happened (RFC 3339; default now)")
	return cmd
}

// findValue resolves a value by ID or case-insensitive name, across both
// kinds and including inactive values.
func findValue(ctx context.Context, c *client.Client, ref string) (*domain.Value, error) {
	values, err := c.ListValues(ctx, "", false)
	if err != nil {
		return nil, err
	}
	for i := range values {
		if values[i].ID == ref {
			return &values[i], nil
		}
	}
	for i := range values {
		if strings.EqualFold(values[i].Name, ref) {
			return &values[i], nil
		}
	}
	return nil, domainerrors.NotFoundf("no value named %q", ref)
}
