package presence

import (
	"context"
	"time"
)

// Repository abstracts presence persistence.
//
// Upsert must be atomic per username; MarkStaleOffline must be a single
// bulk conditional update so that concurrent sweeps stay idempotent.

type Repository interface {
	Upsert(ctx context.Context, p Presence) error
	Get(ctx context.Context, username string) (Presence, error)
	List(ctx context.Context) ([]Presence, error)

	// MarkStaleOffline flips rows with status=online and updated_at < cutoff
	// to offline, stamping them with now. Returns the number of rows changed.
	MarkStaleOffline(ctx context.Context, cutoff, now time.Time) (int64, error)
}
