package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/metrics"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
	"github.com/bcnelson/netbox-restconf-sync/internal/validation"
	"github.com/google/uuid"
)

// Dispatcher routes decoded webhooks to the interface or address reconciler
// and journals how each one ended. Failures never reach the webhook sender;
// they surface in the log, the metrics and the journal.
type Dispatcher struct {
	store      storage.Storage
	interfaces *InterfaceService
	addresses  *AddressService
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(store storage.Storage, interfaces *InterfaceService, addresses *AddressService) *Dispatcher {
	return &Dispatcher{store: store, interfaces: interfaces, addresses: addresses}
}

// HandleInterface processes an interface webhook body.
func (d *Dispatcher) HandleInterface(ctx context.Context, body []byte) *domain.EventRecord {
	return d.handle(ctx, domain.KindInterface, body, "")
}

// HandleAddress processes an IP address webhook body.
func (d *Dispatcher) HandleAddress(ctx context.Context, body []byte) *domain.EventRecord {
	return d.handle(ctx, domain.KindAddress, body, "")
}

// Reject journals a webhook that could not be read as rejected without
// decoding it.
func (d *Dispatcher) Reject(ctx context.Context, kind string, body []byte, reason error) *domain.EventRecord {
	record, start := d.begin(ctx, kind, body, "")
	return d.finish(ctx, record, start, domain.Outcome{Status: domain.StatusRejected}, reason)
}

// Replay runs a journaled event again against current NetBox state and
// journals the result as a new event.
func (d *Dispatcher) Replay(ctx context.Context, id string) (*domain.EventRecord, error) {
	original, err := d.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	switch original.Kind {
	case domain.KindInterface, domain.KindAddress:
	default:
		return nil, fmt.Errorf("event %s has kind %q: %w", id, original.Kind, domain.ErrInvalidInput)
	}
	return d.handle(ctx, original.Kind, []byte(original.Payload), original.ID), nil
}

// Prune removes journal entries older than retention.
func (d *Dispatcher) Prune(ctx context.Context, retention time.Duration) (int, error) {
	n, err := d.store.PruneEvents(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	metrics.RecordPruned(n)
	return n, nil
}

// begin journals a pending event.
func (d *Dispatcher) begin(ctx context.Context, kind string, body []byte, replayOf string) (*domain.EventRecord, time.Time) {
	start := time.Now()
	record := &domain.EventRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    string(body),
		Status:     domain.StatusPending,
		ReplayOf:   replayOf,
		ReceivedAt: start.UTC(),
	}

	if err := d.store.CreateEvent(ctx, record); err != nil {
		log.Printf("[Dispatcher] Warning: could not journal event %s: %v", record.ID, err)
	}
	return record, start
}

func (d *Dispatcher) handle(ctx context.Context, kind string, body []byte, replayOf string) *domain.EventRecord {
	record, start := d.begin(ctx, kind, body, replayOf)

	var env domain.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return d.finish(ctx, record, start, domain.Outcome{Status: domain.StatusRejected}, fmt.Errorf("decoding webhook: %w", err))
	}
	record.Event = env.Event
	if err := validation.Struct(&env); err != nil {
		return d.finish(ctx, record, start, domain.Outcome{Status: domain.StatusRejected}, err)
	}

	var (
		outcome domain.Outcome
		err     error
	)
	switch kind {
	case domain.KindInterface:
		outcome, err = d.handleInterface(ctx, record, &env)
	case domain.KindAddress:
		outcome, err = d.handleAddress(ctx, record, &env)
	}
	return d.finish(ctx, record, start, outcome, err)
}

func (d *Dispatcher) handleInterface(ctx context.Context, record *domain.EventRecord, env *domain.WebhookEnvelope) (domain.Outcome, error) {
	var data domain.InterfaceData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.Outcome{Status: domain.StatusRejected}, fmt.Errorf("decoding interface data: %w", err)
	}
	if err := validation.Struct(&data); err != nil {
		return domain.Outcome{Status: domain.StatusRejected}, err
	}
	record.ObjectID = data.ID
	return d.interfaces.Reconcile(ctx, data.ID)
}

func (d *Dispatcher) handleAddress(ctx context.Context, record *domain.EventRecord, env *domain.WebhookEnvelope) (domain.Outcome, error) {
	var data domain.AddressData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.Outcome{Status: domain.StatusRejected}, fmt.Errorf("decoding address data: %w", err)
	}
	if err := validation.Struct(&data); err != nil {
		return domain.Outcome{Status: domain.StatusRejected}, err
	}
	record.ObjectID = data.ID
	return d.addresses.Reconcile(ctx, domain.NewAddressEvent(env, &data))
}

// finish records the outcome of an event in the log, the journal and the
// metrics.
func (d *Dispatcher) finish(ctx context.Context, record *domain.EventRecord, start time.Time, outcome domain.Outcome, err error) *domain.EventRecord {
	now := time.Now().UTC()
	record.Status = outcome.Status
	record.Operations = outcome.Operations
	record.CompletedAt = &now
	if err != nil {
		if record.Status == "" || record.Status == domain.StatusApplied {
			record.Status = domain.StatusFailed
		}
		record.Error = err.Error()
	}

	if err != nil {
		log.Printf("[Dispatcher] %s %s event %s %s after %d operation(s): %v",
			record.Kind, record.Event, record.ID, record.Status, record.Operations, err)
	} else {
		log.Printf("[Dispatcher] %s %s event %s %s (%d operation(s)) %s",
			record.Kind, record.Event, record.ID, record.Status, record.Operations, outcome.Reason)
	}

	// The journal is written even if the webhook request was cancelled.
	if uerr := d.store.UpdateEvent(context.WithoutCancel(ctx), record); uerr != nil {
		log.Printf("[Dispatcher] Warning: could not update journal for %s: %v", record.ID, uerr)
	}

	// Rejected payloads carry arbitrary event strings; keep them out of labels.
	event := record.Event
	if record.Status == domain.StatusRejected {
		event = "invalid"
	}
	metrics.RecordEvent(record.Kind, event, record.Status, time.Since(start))
	return record
}
