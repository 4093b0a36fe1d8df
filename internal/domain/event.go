package domain

import "time"

// Object kinds the listener accepts webhooks for.
const (
	KindInterface = "interface"
	KindAddress   = "address"
)

// Journal statuses.
const (
	StatusPending  = "pending"
	StatusApplied  = "applied"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// EventRecord is the journal entry for one received webhook. It records what
// arrived and how handling ended; it is never read back during reconciliation.
type EventRecord struct {
	ID          string     `json:"id" db:"id"`
	Kind        string     `json:"kind" db:"kind"`
	Event       string     `json:"event" db:"event"`
	ObjectID    int64      `json:"object_id" db:"object_id"`
	Payload     string     `json:"payload" db:"payload"` // raw webhook body
	Status      string     `json:"status" db:"status"`
	Operations  int        `json:"operations" db:"operations"`
	Error       string     `json:"error,omitempty" db:"error"`
	ReplayOf    string     `json:"replay_of,omitempty" db:"replay_of"`
	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// EventFilter narrows ListEvents. Empty fields match everything.
type EventFilter struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

// Outcome is what a reconciler reports back for journaling.
type Outcome struct {
	Status     string
	Operations int
	Reason     string
}
