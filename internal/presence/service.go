package presence

import (
	"context"
	"errors"
	"time"

	"smarttv-backend/internal/users"
)

var (
	ErrNotFound      = errors.New("presence: not found")
	ErrInvalidStatus = errors.New("presence: invalid status")
)

// DefaultFreshnessWindow is the reference freshness window.
const DefaultFreshnessWindow = 120 * time.Second

// Directory is the slice of the user registry presence depends on.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
}

// Service owns presence records. Presence is derived, not authoritative:
// only IsOnline combines stored status with the freshness window.
type Service struct {
	repo      Repository
	directory Directory
	cache     *Cache // optional fast path; nil disables it
	freshness time.Duration
	clock     func() time.Time
}

func NewService(repo Repository, directory Directory, cache *Cache, freshness time.Duration) *Service {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	return &Service{
		repo:      repo,
		directory: directory,
		cache:     cache,
		freshness: freshness,
		clock:     time.Now,
	}
}

// Update upserts the user's presence, always refreshing updated_at even
// when the status value is unchanged.
func (s *Service) Update(ctx context.Context, username, rawStatus, socketID string) (Presence, error) {
	if username == "" {
		return Presence{}, ErrNotFound
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return Presence{}, err
	}
	if _, err := s.directory.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Presence{}, ErrNotFound
		}
		return Presence{}, err
	}

	p := Presence{
		Username:  username,
		Status:    status,
		SocketID:  socketID,
		UpdatedAt: s.clock().UTC(),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return Presence{}, err
	}

	// Cache is best-effort; the canonical store already holds the row.
	if status == StatusOnline {
		_ = s.cache.SetOnline(ctx, username, socketID)
	} else {
		_ = s.cache.SetOffline(ctx, username)
	}
	return p, nil
}

// IsOnline is the single source of truth for reachability:
// status == online AND now - updated_at <= freshness window.
func (s *Service) IsOnline(ctx context.Context, username string) (bool, error) {
	if online, hit := s.cache.IsOnline(ctx, username); hit {
		return online, nil
	}

	p, err := s.repo.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.online(p), nil
}

// List returns all presence rows annotated with the derived online flag.
// A non-empty filter restricts the result to those usernames (the caller's
// contact subset, typically).
func (s *Service) List(ctx context.Context, filter []string) ([]Entry, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var allowed map[string]struct{}
	if len(filter) > 0 {
		allowed = make(map[string]struct{}, len(filter))
		for _, u := range filter {
			allowed[u] = struct{}{}
		}
	}

	out := make([]Entry, 0, len(rows))
	for _, p := range rows {
		if allowed != nil {
			if _, ok := allowed[p.Username]; !ok {
				continue
			}
		}
		out = append(out, Entry{Presence: p, Online: s.online(p)})
	}
	return out, nil
}

// MarkStaleOffline flips records that claim online but have not been
// refreshed within olderThan. Bulk and idempotent: a second run with no
// intervening updates changes nothing.
func (s *Service) MarkStaleOffline(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = s.freshness
	}
	now := s.clock().UTC()
	return s.repo.MarkStaleOffline(ctx, now.Add(-olderThan), now)
}

// FreshnessWindow exposes the configured window for callers that align
// sweep thresholds with it.
func (s *Service) FreshnessWindow() time.Duration { return s.freshness }

func (s *Service) online(p Presence) bool {
	return p.Status == StatusOnline && s.clock().UTC().Sub(p.UpdatedAt) <= s.freshness
}
