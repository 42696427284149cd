package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/hrepl/internal/adapters/httpapi"
	"github.com/spf13/cobra"
)

const shutdownGracePeriod = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP for the IDE-side layer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			if listen == "" {
				listen = app.config.GetString("serve.listen")
			}

			server := &http.Server{
				Addr:    listen,
				Handler: httpapi.NewRouter(app.queries, app.sessions, app.resolver, logger),
			}

			errs := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", listen)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errs:
				return fmt.Errorf("serve: %w", err)
			case sig := <-stop:
				logger.Info("shutting down", "signal", sig.String())
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", "error", err)
			}

			app.sessions.ExitAll(false)
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config serve.listen)")

	return cmd
}
