package presence

import (
	"fmt"
	"time"
)

// Status is the closed set of stored presence states.
// Unknown values are rejected at the boundary instead of passed through.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOnline, StatusOffline:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Presence is the stored per-user record: at most one row per user,
// upserted on every update and never deleted.
//
// Stored status is NOT authoritative on its own. A user counts as online
// only while status == online AND the record is fresher than the
// freshness window; IsOnline is the single source of truth.
type Presence struct {
	Username  string    `json:"username" db:"username"`
	Status    Status    `json:"status" db:"status"`
	SocketID  string    `json:"socket_id,omitempty" db:"socket_id"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Entry is a presence row annotated with the derived online flag.
type Entry struct {
	Presence
	Online bool `json:"online"`
}
