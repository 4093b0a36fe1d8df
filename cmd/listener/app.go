package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bcnelson/netbox-restconf-sync/internal/auth"
	"github.com/bcnelson/netbox-restconf-sync/internal/config"
	"github.com/bcnelson/netbox-restconf-sync/internal/netbox"
	"github.com/bcnelson/netbox-restconf-sync/internal/restconf"
	"github.com/bcnelson/netbox-restconf-sync/internal/service"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage/memory"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage/sql"
)

// app holds the components shared by all commands.
type app struct {
	cfg        *config.Config
	store      storage.Storage
	dispatcher *service.Dispatcher
}

// newApp loads configuration and wires storage, NetBox, the RESTCONF client
// and the reconcilers together.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Initialize NetBox client (or file shim for testing)
	var inventory netbox.Inventory
	if cfg.UseFileShim() {
		log.Printf("Using file shim for NetBox API: %s", cfg.NetBox.FileShim)
		inventory = netbox.NewFileShim(cfg.NetBox.FileShim)
	} else {
		inventory = netbox.New(netbox.Options{
			URL:       cfg.NetBox.URL,
			Token:     cfg.NetBox.Token,
			TokenType: cfg.NetBox.TokenType,
			TLSVerify: cfg.NetBox.TLSVerify,
			Timeout:   cfg.NetBox.Timeout,
		})
	}

	device := restconf.New(restconf.Options{
		Username:  cfg.RESTCONF.Username,
		Password:  cfg.RESTCONF.Password,
		TLSVerify: cfg.RESTCONF.TLSVerify,
		Timeout:   cfg.RESTCONF.Timeout,
		Retries:   cfg.RESTCONF.Retries,
		Backoff:   cfg.RESTCONF.Backoff,
	})
	endpoint := restconf.Endpoint{Scheme: cfg.RESTCONF.Scheme, Port: cfg.RESTCONF.Port}

	dispatcher := service.NewDispatcher(
		store,
		service.NewInterfaceService(inventory, device, endpoint),
		service.NewAddressService(inventory, device, endpoint),
	)

	return &app{cfg: cfg, store: store, dispatcher: dispatcher}, nil
}

func openStore(cfg config.DatabaseConfig) (storage.Storage, error) {
	if cfg.Driver == "memory" {
		log.Printf("Using in-memory event journal")
		return memory.New(), nil
	}

	// Create data directory if needed (for SQLite)
	if cfg.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// verifier returns the OIDC verifier for the journal API, or nil when no
// issuer is configured.
func (a *app) verifier(ctx context.Context) (auth.TokenVerifier, error) {
	if a.cfg.Admin.OIDCIssuerURL == "" {
		return nil, nil
	}
	v, err := auth.NewOIDCVerifier(ctx, a.cfg.Admin.OIDCIssuerURL, a.cfg.Admin.OIDCClientID)
	if err != nil {
		return nil, fmt.Errorf("initializing OIDC: %w", err)
	}
	log.Printf("OIDC authentication enabled for journal API (issuer: %s)", a.cfg.Admin.OIDCIssuerURL)
	return v, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
