package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smarttv-backend/internal/audit"
	"smarttv-backend/internal/users"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidState    = errors.New("calls: invalid state")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Directory is the slice of the user registry the engine depends on.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
}

// RoomAllocator provisions a provider room for an accepted call.
type RoomAllocator interface {
	AllocateRoom(ctx context.Context, callID string) (string, error)
}

// Service is the call signaling engine. All transitions are atomic per
// call: a losing concurrent writer gets ErrInvalidState with no partial
// side effects.
type Service struct {
	repo      Repository
	directory Directory
	rooms     RoomAllocator
	events    *audit.Service // best-effort, may be nil
	clock     func() time.Time
	log       *slog.Logger
}

func NewService(repo Repository, directory Directory, rooms RoomAllocator, events *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		rooms:     rooms,
		events:    events,
		clock:     time.Now,
		log:       log,
	}
}

// Initiate starts a new call attempt from caller to callee.
//
// Any existing non-terminal call between the pair (either direction) is
// silently force-cancelled before the new record is created: initiate
// never fails because of an existing call. This favors availability over
// conflict signaling and matches long-standing production behavior.
func (s *Service) Initiate(ctx context.Context, caller, callee string) (Call, error) {
	if caller == "" || callee == "" || caller == callee {
		return Call{}, ErrInvalidArgument
	}
	if err := s.requireUser(ctx, caller); err != nil {
		return Call{}, err
	}
	if err := s.requireUser(ctx, callee); err != nil {
		return Call{}, err
	}

	c := Call{
		CallID:    uuid.NewString(),
		Caller:    caller,
		Callee:    callee,
		Status:    StatusPending,
		CreatedAt: s.clock().UTC(),
	}

	superseded, err := s.repo.CreateSuperseding(ctx, c)
	if err != nil {
		return Call{}, err
	}
	for _, old := range superseded {
		s.log.Info("previous call auto-cancelled to allow new call",
			"call_id", old, "caller", caller, "callee", callee)
		s.audit(ctx, old, caller, "", string(StatusCancelled), "superseded")
	}

	s.log.Info("call initiated", "call_id", c.CallID, "caller", caller, "callee", callee)
	s.audit(ctx, c.CallID, caller, "", string(StatusPending), "")
	return c, nil
}

// Answer accepts a pending call. Only the callee may answer, and only
// once: repeated attempts after success fail with ErrInvalidState.
func (s *Service) Answer(ctx context.Context, callID, callee string) (Call, error) {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if c.Callee != callee || c.Status != StatusPending {
		return Call{}, ErrInvalidState
	}

	room, err := s.rooms.AllocateRoom(ctx, callID)
	if err != nil {
		return Call{}, err
	}

	now := s.clock().UTC()
	ok, err := s.repo.MarkAccepted(ctx, callID, callee, room, now)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		// Lost the race: the call left pending between read and write.
		return Call{}, ErrInvalidState
	}

	c.Status = StatusAccepted
	c.RoomHandle = room
	c.AnsweredAt = &now

	s.log.Info("call answered", "call_id", callID, "caller", c.Caller, "callee", callee, "room", room)
	s.audit(ctx, callID, callee, string(StatusPending), string(StatusAccepted), "")
	return c, nil
}

// Decline rejects a pending call; only the callee may decline.
func (s *Service) Decline(ctx context.Context, callID, callee string) error {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return err
	}
	if c.Callee != callee || c.Status != StatusPending {
		return ErrInvalidState
	}

	ok, err := s.repo.MarkDeclined(ctx, callID, callee, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}

	s.log.Info("call declined", "call_id", callID, "callee", callee)
	s.audit(ctx, callID, callee, string(StatusPending), string(StatusDeclined), "")
	return nil
}

// Cancel withdraws a pending call; only the caller may cancel.
func (s *Service) Cancel(ctx context.Context, callID, caller string) error {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return err
	}
	if c.Caller != caller || c.Status != StatusPending {
		return ErrInvalidState
	}

	ok, err := s.repo.MarkCancelled(ctx, callID, caller, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}

	s.log.Info("call cancelled", "call_id", callID, "caller", caller)
	s.audit(ctx, callID, caller, string(StatusPending), string(StatusCancelled), "")
	return nil
}

// End terminates an accepted call. Either participant may end it; the
// duration is computed once, from answered_at to now.
func (s *Service) End(ctx context.Context, callID, actor string) error {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return err
	}
	if c.Status != StatusAccepted {
		return ErrInvalidState
	}
	if actor != c.Caller && actor != c.Callee {
		return ErrInvalidState
	}

	now := s.clock().UTC()
	duration := s.durationSince(c.AnsweredAt, now)

	ok, err := s.repo.MarkEnded(ctx, callID, duration, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}

	s.log.Info("call ended", "call_id", callID, "actor", actor, "duration_seconds", duration)
	s.audit(ctx, callID, actor, string(StatusAccepted), string(StatusEnded), "")
	return nil
}

// ForceEnd terminates an accepted call on behalf of the reconciler.
// The record is indistinguishable from a user-initiated end; the reason
// tag surfaces only in logs and the audit trail.
func (s *Service) ForceEnd(ctx context.Context, callID, reason string) error {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return err
	}
	if c.Status != StatusAccepted {
		return ErrInvalidState
	}

	now := s.clock().UTC()
	duration := s.durationSince(c.AnsweredAt, now)

	ok, err := s.repo.MarkEnded(ctx, callID, duration, now)
	if err != nil {
		return err
	}
	if !ok {
		// A participant ended it first; nothing left to correct.
		return ErrInvalidState
	}

	s.log.Info("call force-ended", "call_id", callID, "reason", reason, "duration_seconds", duration)
	if s.events != nil {
		_ = s.events.ReconcileAction(ctx, callID, reason, "")
	}
	return nil
}

// ActiveCalls returns accepted calls that hold a provider room, oldest
// first. Used by the reconciler.
func (s *Service) ActiveCalls(ctx context.Context) ([]Call, error) {
	return s.repo.ListAcceptedWithRoom(ctx)
}

// Status returns the full call record. Pure read, no side effects.
func (s *Service) Status(ctx context.Context, callID string) (Call, error) {
	if callID == "" {
		return Call{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, callID)
}

// ListPending returns the user's incoming pending calls, newest first,
// annotated with caller display names.
func (s *Service) ListPending(ctx context.Context, username string) ([]PendingCall, error) {
	if username == "" {
		return nil, ErrInvalidArgument
	}
	rows, err := s.repo.ListPendingFor(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]PendingCall, 0, len(rows))
	for _, c := range rows {
		display := c.Caller
		if u, err := s.directory.GetByUsername(ctx, c.Caller); err == nil && u.DisplayName != "" {
			display = u.DisplayName
		}
		out = append(out, PendingCall{
			CallID:            c.CallID,
			Status:            c.Status,
			Caller:            c.Caller,
			CallerDisplayName: display,
			CreatedAt:         c.CreatedAt,
		})
	}
	return out, nil
}

// RetentionSweep deletes terminal calls created more than maxAge ago.
// Idempotent: a second consecutive run removes nothing.
func (s *Service) RetentionSweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, ErrInvalidArgument
	}
	cutoff := s.clock().UTC().Add(-maxAge)
	n, err := s.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("old calls cleaned up", "removed", n)
	}
	return n, nil
}

func (s *Service) requireUser(ctx context.Context, username string) error {
	_, err := s.directory.GetByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) durationSince(answeredAt *time.Time, now time.Time) int {
	if answeredAt == nil {
		return 0
	}
	d := int(now.Sub(*answeredAt).Seconds())
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Service) audit(ctx context.Context, callID, actor, from, to, reason string) {
	if s.events == nil {
		return
	}
	_ = s.events.CallTransition(ctx, callID, actor, from, to, reason)
}
