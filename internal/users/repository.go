package users

import (
	"context"
	"time"
)

// Repository abstracts user persistence.

type Repository interface {
	Insert(ctx context.Context, u User) error
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	TouchLastSeen(ctx context.Context, username string, at time.Time) error
	UpdateDisplayName(ctx context.Context, username, displayName string) error
	Search(ctx context.Context, query, exclude string, limit int) ([]User, error)
	ListActive(ctx context.Context, limit int) ([]User, error)
}
