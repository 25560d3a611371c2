// Package cmd implements the roadsigns command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/app"
	"github.com/atinyakov/roadsigns/internal/config"
	"github.com/atinyakov/roadsigns/internal/logger"
)

// cli is the state shared by the commands of one invocation.
type cli struct {
	opts config.Options
	log  *logger.Logger
}

// NewRootCommand builds the roadsigns command tree.
func NewRootCommand(version, buildDate string) *cobra.Command {
	c := &cli{log: logger.New()}

	root := &cobra.Command{
		Use:   "roadsigns",
		Short: "Record road signs on a map",
		Long: `roadsigns records geolocated road-sign sightings for a single operator
and keeps them as markers on a map layer.

Every invocation restores the persisted session. Signs can only be
captured, listed and removed while logged in; logging out purges them.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(cmd.Flags(), &c.opts); err != nil {
				return err
			}
			return c.log.Init(c.opts.LogLevel)
		},
	}
	config.BindFlags(root.PersistentFlags(), &c.opts)

	root.AddGroup(
		&cobra.Group{ID: "session", Title: "Session Commands:"},
		&cobra.Group{ID: "signs", Title: "Sign Commands:"},
	)
	root.AddCommand(
		c.registerCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.captureCommand(),
		c.removeCommand(),
		c.listCommand(),
		c.catalogCommand(),
		c.serveCommand(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute(version, buildDate string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand(version, buildDate)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errorLine(err))
	}
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// withTracker opens the tracker, runs fn and closes it again.
func (c *cli) withTracker(cmd *cobra.Command, fn func(*app.App) error) error {
	t, err := openTracker(cmd.Context(), &c.opts, c.log.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			c.log.Log.Warn("close store", zap.Error(err))
		}
	}()
	return fn(t)
}
