package api

import (
	"net/http"

	"github.com/bcnelson/netbox-restconf-sync/internal/api/handler"
	"github.com/bcnelson/netbox-restconf-sync/internal/api/middleware"
	"github.com/bcnelson/netbox-restconf-sync/internal/auth"
	"github.com/bcnelson/netbox-restconf-sync/internal/service"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with all routes configured. The journal
// API is only mounted when adminKey or verifier is set.
func NewRouter(
	store storage.Storage,
	dispatcher *service.Dispatcher,
	adminKey string,
	verifier auth.TokenVerifier,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// NetBox webhooks
	webhookHandler := handler.NewWebhookHandler(dispatcher)
	r.Post("/api/update-interface", webhookHandler.Interface)
	r.Post("/api/update-address", webhookHandler.Address)

	if adminKey == "" && verifier == nil {
		return r
	}

	// Journal API (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(adminKey, verifier))

		eventHandler := handler.NewEventHandler(store, dispatcher)
		r.Get("/events", eventHandler.List)
		r.Get("/events/{id}", eventHandler.Get)
		r.Post("/events/{id}/replay", eventHandler.Replay)
	})

	return r
}
