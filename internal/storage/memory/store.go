package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu     sync.RWMutex
	events map[string]*domain.EventRecord // key: id
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		events: make(map[string]*domain.EventRecord),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateEvent(ctx context.Context, event *domain.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return domain.ErrInvalidInput
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (s *Store) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for _, event := range s.events {
		if filter.Kind != "" && event.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		cp := *event
		result = append(result, &cp)
	}

	// Newest first, same as the SQL store.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) UpdateEvent(ctx context.Context, event *domain.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; !exists {
		return domain.ErrNotFound
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, event := range s.events {
		if event.ReceivedAt.Before(cutoff) {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}
