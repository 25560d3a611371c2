package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/atinyakov/roadsigns/internal/app"
	"github.com/atinyakov/roadsigns/internal/catalog"
	"github.com/atinyakov/roadsigns/internal/models"
	"github.com/atinyakov/roadsigns/internal/reconcile"
	"github.com/atinyakov/roadsigns/internal/style"
)

const listTimeLayout = "2006-01-02 15:04:05"

func printSign(w io.Writer, obs models.Observation) {
	cat := catalog.Resolve(obs.Category)
	fmt.Fprintf(w, "%s %-12s %-20s %s  %s  %s\n",
		style.Marker(cat.Color).Render(cat.Label()),
		style.Marker(catalog.Color(obs.Category)).Render(catalog.Badge(obs.Category)),
		catalog.Name(obs.Category),
		style.Dim.Render(obs.CapturedAt.Local().Format(listTimeLayout)),
		reconcile.FormatCoordinates(obs.Latitude, obs.Longitude),
		style.Dim.Render(obs.ID),
	)
}

func (c *cli) captureCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "capture <category>",
		GroupID: "signs",
		Short:   "Record a sign at the current position",
		Long: `Record a road sign of the given category at the current position.

The position comes from --locator. See 'roadsigns catalog' for categories.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				obs, err := t.Capture(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, ok := catalog.Lookup(args[0]); !ok {
					fmt.Fprintf(out, "%s Unknown category %q, recorded as %s\n",
						style.WarningPrefix, args[0], catalog.Name(obs.Category))
				}
				fmt.Fprintf(out, "%s Sign added\n", style.SuccessPrefix)
				printSign(out, obs)
				return nil
			})
		},
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		GroupID: "signs",
		Short:   "Remove a recorded sign",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				obs, err := t.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s\n",
					style.SuccessPrefix, catalog.Name(obs.Category))
				return nil
			})
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		GroupID: "signs",
		Short:   "List recorded signs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				out := cmd.OutOrStdout()
				signs := t.Signs()
				fmt.Fprintf(out, "%s (%d)\n", style.Bold.Render("Signs"), len(signs))
				for _, obs := range signs {
					printSign(out, obs)
				}
				return nil
			})
		},
	}
}

func (c *cli) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "catalog",
		GroupID: "signs",
		Short:   "List sign categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, cat := range catalog.All() {
				fmt.Fprintf(out, "%s %-16s %s\n",
					style.Marker(cat.Color).Render(cat.Label()), cat.ID, cat.Name)
			}
			return nil
		},
	}
}
