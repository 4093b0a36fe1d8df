package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/service"
)

// maxWebhookBody bounds how much of a webhook body is read.
const maxWebhookBody = 1 << 20

// WebhookHandler receives NetBox webhooks. It always answers 204: NetBox does
// not act on the result, and failures are journaled instead.
type WebhookHandler struct {
	dispatcher *service.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dispatcher *service.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// Interface handles dcim.interface change events.
func (h *WebhookHandler) Interface(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, domain.KindInterface)
}

// Address handles ipam.ipaddress change events.
func (h *WebhookHandler) Address(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, domain.KindAddress)
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request, kind string) {
	// Device configuration runs to completion even if the sender hangs up;
	// the RESTCONF client's own timeout and retry budget bound it.
	ctx := context.WithoutCancel(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		log.Printf("[Webhook] %s body exceeds %d bytes", r.URL.Path, tooLarge.Limit)
		h.dispatcher.Reject(ctx, kind, body, fmt.Errorf("body exceeds %d bytes: %w", tooLarge.Limit, domain.ErrInvalidInput))
	case err != nil:
		log.Printf("[Webhook] reading %s body: %v", r.URL.Path, err)
	case kind == domain.KindInterface:
		h.dispatcher.HandleInterface(ctx, body)
	default:
		h.dispatcher.HandleAddress(ctx, body)
	}

	w.WriteHeader(http.StatusNoContent)
}
