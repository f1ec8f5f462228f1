package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory presence repository for tests.

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Presence
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]Presence{}} }

func (r *MemoryRepo) Upsert(ctx context.Context, p Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.Username] = p
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, username string) (Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[username]
	if !ok {
		return Presence{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Presence, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkStaleOffline(ctx context.Context, cutoff, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for name, p := range r.rows {
		if p.Status == StatusOnline && p.UpdatedAt.Before(cutoff) {
			p.Status = StatusOffline
			p.UpdatedAt = now
			r.rows[name] = p
			n++
		}
	}
	return n, nil
}
