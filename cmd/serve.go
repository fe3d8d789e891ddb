package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/tabtrace/internal/api"
	"github.com/shehryarbajwa/tabtrace/internal/ratelimit"
	"github.com/shehryarbajwa/tabtrace/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the activity store server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, listenAddr(cmd, a.cfg.StoreAddr))
		},
	}

	serveCmd.Flags().String("addr", "", "listen address (default from store.addr)")
	serveCmd.Flags().String("db", "", "SQLite database path (default from store.db_path)")

	return serveCmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	log.Println("Starting tabtrace activity store...")

	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	activityStore, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer activityStore.Close()
	log.Printf("✓ Activity store opened (%s)", activityStore.Path())

	rateLimiter := ratelimit.NewLimiter(a.cfg.RateLimitPerHour, a.cfg.RateLimitBurst)
	log.Printf("✓ Rate limiter initialized (%d req/hour per client)", a.cfg.RateLimitPerHour)

	handler := api.NewHandler(activityStore)
	router := handler.SetupRoutes(rateLimiter, a.cfg.RateLimitPerHour)
	log.Println("✓ HTTP routes configured")

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("🚀 Activity store listening on %s", addr)
	log.Println("📍 API endpoints available under /api")
	return runHTTPServer(ctx, srv)
}

// runHTTPServer serves until ctx is done, then shuts srv down gracefully
func runHTTPServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("✅ Server stopped cleanly")
	return nil
}
