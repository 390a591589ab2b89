package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lexgate/internal/api"
	"lexgate/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Long: `Serves GET /health, POST /search and GET /metrics.

The shared secret, browser binary and port come from LEXGATE_SHARED_SECRET,
LEXGATE_BROWSER_BIN and LEXGATE_PORT. The browser starts on the first search.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := newStack(cfg)
	opts := api.OptionsFromConfig(cfg)
	opts.BrowserConnected = st.browsers.IsConnected
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewServer(st.orchestrator, opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Searches may run for the whole provider deadline.
		WriteTimeout: cfg.GetSearchTimeout() + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Boot("%s %s listening on %s", cfg.Name, cfg.Version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logging.Boot("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.BootWarn("http shutdown: %v", err)
	}
	if err := st.browsers.Shutdown(shutdownCtx); err != nil {
		logging.BootWarn("browser shutdown: %v", err)
	}
	logging.Boot("stopped")
	return nil
}
