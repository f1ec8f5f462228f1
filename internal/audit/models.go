package audit

import "time"

// Event is an immutable, append-only record of a state change in the core.
//
// Invariants:
// - Events are never updated or deleted.
// - Recording is best-effort; callers must not block critical flows on audit failures.
//
// Storage recommendation (Postgres):
// - INSERT-only table, optionally partitioned by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// CallID is set for call-related events.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// Actor is the username that caused the transition, or "system" for
	// background jobs.
	Actor string `json:"actor,omitempty" db:"actor"`

	FromStatus string `json:"from_status,omitempty" db:"from_status"`
	ToStatus   string `json:"to_status,omitempty" db:"to_status"`

	// Reason carries the internal reason tag (e.g. room_not_found,
	// superseded). Used only for logging/observability.
	Reason string `json:"reason,omitempty" db:"reason"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallTransition  EventType = "call_transition"
	EventTypeReconcileAction EventType = "reconcile_action"
	EventTypePresenceSweep   EventType = "presence_sweep"
)
