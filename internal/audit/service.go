package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// CallTransition records a call state change caused by a participant.
func (s *Service) CallTransition(ctx context.Context, callID, actor, from, to, reason string) error {
	return s.Append(ctx, Event{
		Type:       EventTypeCallTransition,
		CallID:     callID,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	})
}

// ReconcileAction records a forced transition decided by the provider reconciler.
func (s *Service) ReconcileAction(ctx context.Context, callID, reason, metadata string) error {
	return s.Append(ctx, Event{
		Type:       EventTypeReconcileAction,
		CallID:     callID,
		Actor:      "system",
		FromStatus: "accepted",
		ToStatus:   "ended",
		Reason:     reason,
		Metadata:   metadata,
	})
}

// PresenceSweep records a bulk stale-presence sweep result.
func (s *Service) PresenceSweep(ctx context.Context, message string) error {
	return s.Append(ctx, Event{
		Type:    EventTypePresenceSweep,
		Actor:   "system",
		Message: message,
	})
}
