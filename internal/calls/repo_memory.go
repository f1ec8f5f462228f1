package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call repository with the same conditional
// transition semantics as the Postgres implementation. For tests.

type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{calls: map[string]Call{}} }

func (r *MemoryRepo) CreateSuperseding(ctx context.Context, c Call) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var superseded []string
	for id, old := range r.calls {
		if old.Status.Terminal() {
			continue
		}
		samePair := (old.Caller == c.Caller && old.Callee == c.Callee) ||
			(old.Caller == c.Callee && old.Callee == c.Caller)
		if !samePair {
			continue
		}
		t := c.CreatedAt
		old.Status = StatusCancelled
		old.EndedAt = &t
		r.calls[id] = old
		superseded = append(superseded, id)
	}

	r.calls[c.CallID] = c
	return superseded, nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListPendingFor(ctx context.Context, callee string) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.calls {
		if c.Callee == callee && c.Status == StatusPending {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) ListAcceptedWithRoom(ctx context.Context) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.calls {
		if c.Status == StatusAccepted && c.RoomHandle != "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkAccepted(ctx context.Context, callID, callee, roomHandle string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok || c.Callee != callee || c.Status != StatusPending {
		return false, nil
	}
	t := at
	c.Status = StatusAccepted
	c.RoomHandle = roomHandle
	c.AnsweredAt = &t
	r.calls[callID] = c
	return true, nil
}

func (r *MemoryRepo) MarkDeclined(ctx context.Context, callID, callee string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok || c.Callee != callee || c.Status != StatusPending {
		return false, nil
	}
	t := at
	c.Status = StatusDeclined
	c.EndedAt = &t
	r.calls[callID] = c
	return true, nil
}

func (r *MemoryRepo) MarkCancelled(ctx context.Context, callID, caller string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok || c.Caller != caller || c.Status != StatusPending {
		return false, nil
	}
	t := at
	c.Status = StatusCancelled
	c.EndedAt = &t
	r.calls[callID] = c
	return true, nil
}

func (r *MemoryRepo) MarkEnded(ctx context.Context, callID string, durationSeconds int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok || c.Status != StatusAccepted {
		return false, nil
	}
	t := at
	d := durationSeconds
	c.Status = StatusEnded
	c.EndedAt = &t
	c.DurationSeconds = &d
	r.calls[callID] = c
	return true, nil
}

func (r *MemoryRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.calls {
		if c.Status.Terminal() && c.CreatedAt.Before(cutoff) {
			delete(r.calls, id)
			n++
		}
	}
	return n, nil
}

// All returns a snapshot of every stored call, for test assertions.
func (r *MemoryRepo) All() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	return out
}
