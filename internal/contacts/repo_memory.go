package contacts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory contact store for tests.

type MemoryRepo struct {
	mu    sync.Mutex
	edges map[string]map[string]Contact // userID -> contactUserID -> edge
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{edges: map[string]map[string]Contact{}}
}

func (r *MemoryRepo) Add(ctx context.Context, userID, contactUserID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edges[userID] == nil {
		r.edges[userID] = map[string]Contact{}
	}
	if _, ok := r.edges[userID][contactUserID]; ok {
		return nil
	}
	r.edges[userID][contactUserID] = Contact{
		UserID:        userID,
		ContactUserID: contactUserID,
		CreatedAt:     at,
	}
	return nil
}

func (r *MemoryRepo) Remove(ctx context.Context, userID, contactUserID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.edges[userID][contactUserID]; !ok {
		return false, nil
	}
	delete(r.edges[userID], contactUserID)
	return true, nil
}

func (r *MemoryRepo) SetFavorite(ctx context.Context, userID, contactUserID string, favorite bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.edges[userID][contactUserID]
	if !ok {
		return false, nil
	}
	c.IsFavorite = favorite
	r.edges[userID][contactUserID] = c
	return true, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, 0, len(r.edges[userID]))
	for _, c := range r.edges[userID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Exists(ctx context.Context, userID, contactUserID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.edges[userID][contactUserID]
	return ok, nil
}
