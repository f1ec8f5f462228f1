package calls

import (
	"fmt"
	"time"
)

// Status is the closed set of call states.
//
// pending and accepted are non-terminal; declined, cancelled, ended and
// missed are terminal. No transition leaves a terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusEnded     Status = "ended"
	StatusMissed    Status = "missed"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusEnded, StatusMissed:
		return true
	default:
		return false
	}
}

// ParseStatus validates a raw status value at the boundary.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusEnded, StatusMissed:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("calls: unknown status %q", raw)
	}
}

// Call is one signaling attempt between two users, tracked independently
// of the underlying media session.
//
// Pair invariant: at most one call in a non-terminal status exists between
// any pair of participants (either direction) at a time; initiate enforces
// this by force-cancelling the prior call, never by failing.
type Call struct {
	CallID string `json:"call_id" db:"call_id"`
	Caller string `json:"caller" db:"caller"`
	Callee string `json:"callee" db:"callee"`

	Status Status `json:"status" db:"status"`

	// RoomHandle references the externally hosted video session.
	// Nil semantics: empty until the call is accepted.
	RoomHandle string `json:"room_handle,omitempty" db:"room_handle"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" db:"answered_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is computed once, on termination of an accepted call.
	DurationSeconds *int `json:"duration_seconds,omitempty" db:"duration_seconds"`
}

// PendingCall is a pending entry on a callee's incoming list, annotated
// with the caller's display name.
type PendingCall struct {
	CallID            string    `json:"call_id"`
	Status            Status    `json:"status"`
	Caller            string    `json:"caller"`
	CallerDisplayName string    `json:"caller_display_name"`
	CreatedAt         time.Time `json:"created_at"`
}
