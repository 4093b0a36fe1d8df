package storage

import (
	"context"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
)

// Storage is the event journal.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	CreateEvent(ctx context.Context, event *domain.EventRecord) error
	GetEvent(ctx context.Context, id string) (*domain.EventRecord, error)
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.EventRecord, error)
	UpdateEvent(ctx context.Context, event *domain.EventRecord) error

	// PruneEvents deletes events received before cutoff and returns how many
	// were removed.
	PruneEvents(ctx context.Context, cutoff time.Time) (int, error)
}
