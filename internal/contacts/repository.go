package contacts

import (
	"context"
	"time"
)

// Repository abstracts contact-edge persistence. All methods deal in
// user ids; username resolution happens in the service.

type Repository interface {
	// Add inserts the edge; adding an existing edge is a no-op.
	Add(ctx context.Context, userID, contactUserID string, at time.Time) error
	// Remove deletes the edge. The bool reports whether it existed.
	Remove(ctx context.Context, userID, contactUserID string) (bool, error)
	// SetFavorite flips the favorite flag on an existing edge.
	SetFavorite(ctx context.Context, userID, contactUserID string, favorite bool) (bool, error)
	// List returns the user's edges, favorites first then oldest first.
	List(ctx context.Context, userID string) ([]Contact, error)
	Exists(ctx context.Context, userID, contactUserID string) (bool, error)
}
