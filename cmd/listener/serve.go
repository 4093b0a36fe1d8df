package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/api"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := a.verifier(ctx)
	if err != nil {
		return err
	}
	if !a.cfg.AdminEnabled() {
		log.Printf("Journal API disabled (set ADMIN_API_KEY or OIDC_ISSUER_URL to enable)")
	}

	router := api.NewRouter(a.store, a.dispatcher, a.cfg.Admin.APIKey, verifier)

	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // RESTCONF retries run inside the request
		IdleTimeout:  120 * time.Second,
	}

	if a.cfg.Database.Retention > 0 {
		go pruneLoop(ctx, a, a.cfg.Database.Retention)
	}

	log.Printf("Starting NetBox RESTCONF listener on http://%s", a.cfg.Server.Addr())
	log.Printf("Press Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server stopped")
	return nil
}

// pruneLoop drops journal entries older than retention once an hour.
func pruneLoop(ctx context.Context, a *app, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := a.dispatcher.Prune(ctx, retention)
		if err != nil {
			log.Printf("[Journal] Prune failed: %v", err)
		} else if n > 0 {
			log.Printf("[Journal] Pruned %d event(s) older than %s", n, retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
