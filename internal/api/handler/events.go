package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/bcnelson/netbox-restconf-sync/internal/api/middleware"
	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/service"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
	"github.com/go-chi/chi/v5"
)

// EventHandler serves the event journal.
type EventHandler struct {
	store      storage.Storage
	dispatcher *service.Dispatcher
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(store storage.Storage, dispatcher *service.Dispatcher) *EventHandler {
	return &EventHandler{store: store, dispatcher: dispatcher}
}

// List lists journaled events, newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Kind:   q.Get("kind"),
		Status: q.Get("status"),
		Limit:  20,
	}

	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}
	if events == nil {
		events = []*domain.EventRecord{}
	}

	respondJSON(w, http.StatusOK, events)
}

// Get returns one journaled event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// Replay re-runs a journaled event and returns the new journal entry.
func (h *EventHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	caller := "unknown"
	if p := middleware.GetPrincipalFromContext(r.Context()); p != nil {
		caller = p.Subject
	}

	event, err := h.dispatcher.Replay(context.WithoutCancel(r.Context()), id)
	if err != nil {
		log.Printf("[Journal] %s could not replay event %s: %v", caller, id, err)
		handleError(w, err)
		return
	}
	log.Printf("[Journal] %s replayed event %s as %s (%s)", caller, id, event.ID, event.Status)

	respondJSON(w, http.StatusOK, event)
}
