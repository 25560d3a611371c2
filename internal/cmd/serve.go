package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/roadsigns/internal/app"
	handler "github.com/atinyakov/roadsigns/internal/server/handler/http"
)

const shutdownTimeout = 5 * time.Second

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API",
		Long: `Serve the tracker over a local JSON API until interrupted.

The listen address comes from --addr. With --map-file set, the marker
layer is kept up to date as a GeoJSON file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				return serve(cmd.Context(), c.opts.Addr, t, c.log.Log)
			})
		},
	}
}

// serve runs the API on addr until ctx is done, then shuts it down.
func serve(ctx context.Context, addr string, t *app.App, log *zap.Logger) error {
	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: t},
		&handler.SignHandler{SignService: t, Log: log},
		log,
	)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
