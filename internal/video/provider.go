package video

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the provider could not be reached or answered
	// with a transient failure. Callers should retry later rather than
	// treat the room as gone.
	ErrUnavailable = errors.New("video: provider unavailable")
)

// Provider is the provider-agnostic video room interface used by the
// signaling engine and the reconciler.
//
// Rules:
// - No provider SDK/HTTP calls outside video adapters.
// - A missing room is data (Exists=false), not an error. Errors mean
//   the provider could not be consulted at all.
type Provider interface {
	Name() string

	// AllocateRoom provisions (or reuses) a room for the call and
	// returns its handle.
	AllocateRoom(ctx context.Context, callID string) (string, error)

	// RoomStatus reports the provider-side view of a room.
	RoomStatus(ctx context.Context, roomHandle string) (RoomStatus, error)
}

// TokenIssuer mints client access tokens scoped to a single room.
type TokenIssuer interface {
	AccessToken(identity, roomHandle string) (string, error)
}

type RoomState string

const (
	RoomStateInProgress RoomState = "in-progress"
	RoomStateCompleted  RoomState = "completed"
	RoomStateFailed     RoomState = "failed"
)

// RoomStatus is the reconciler's snapshot of one provider room.
type RoomStatus struct {
	Exists       bool          `json:"exists"`
	State        RoomState     `json:"state,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

func (s RoomStatus) ParticipantCount() int { return len(s.Participants) }

type Participant struct {
	Identity    string    `json:"identity"`
	ConnectedAt time.Time `json:"connected_at"`
}

// RoomNameFor derives the room handle for a call. Short handles keep
// provider dashboards readable; the call id prefix is unique enough at
// this system's scale.
func RoomNameFor(callID string) string {
	if len(callID) > 8 {
		callID = callID[:8]
	}
	return "call_" + callID
}
