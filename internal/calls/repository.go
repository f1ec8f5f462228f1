package calls

import (
	"context"
	"time"
)

// Repository abstracts call persistence.
//
// Concurrency discipline: every transition method is a conditional write
// guarded by the current state (and role), reporting false when the guard
// did not match. Exactly one writer wins any given transition; losers see
// false, never a partial write.

type Repository interface {
	// CreateSuperseding atomically force-cancels every non-terminal call
	// between c.Caller and c.Callee (either direction) and inserts c.
	// Returns the call ids that were cancelled.
	CreateSuperseding(ctx context.Context, c Call) (superseded []string, err error)

	Get(ctx context.Context, callID string) (Call, error)
	ListPendingFor(ctx context.Context, callee string) ([]Call, error)

	// ListAcceptedWithRoom returns calls the reconciler must check.
	ListAcceptedWithRoom(ctx context.Context) ([]Call, error)

	// MarkAccepted: pending -> accepted, guarded by callee identity.
	MarkAccepted(ctx context.Context, callID, callee, roomHandle string, at time.Time) (bool, error)
	// MarkDeclined: pending -> declined, guarded by callee identity.
	MarkDeclined(ctx context.Context, callID, callee string, at time.Time) (bool, error)
	// MarkCancelled: pending -> cancelled, guarded by caller identity.
	MarkCancelled(ctx context.Context, callID, caller string, at time.Time) (bool, error)
	// MarkEnded: accepted -> ended, stamping the computed duration.
	MarkEnded(ctx context.Context, callID string, durationSeconds int, at time.Time) (bool, error)

	// DeleteTerminalBefore removes terminal calls created before cutoff.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
