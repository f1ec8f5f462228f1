package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smarttv-backend/internal/calls"
	"smarttv-backend/internal/video"
)

// Reason tags attached to forced transitions. They surface in logs and
// the audit trail only; the call record itself just becomes ended.
const (
	ReasonRoomNotFound      = "room_not_found"
	ReasonRoomCompleted     = "room_completed"
	ReasonRoomFailed        = "room_failed"
	ReasonRoomAbandoned     = "room_abandoned"
	ReasonSingleParticipant = "single_participant_timeout"
)

const (
	// abandonedAfter is how long an accepted call may sit with an empty
	// room before it is considered dead.
	abandonedAfter = 5 * time.Minute
	// singleAfter is how long one lone participant may wait before the
	// call is closed as never fully connected.
	singleAfter = 10 * time.Minute
	// perCallTimeout bounds the provider calls for a single record so a
	// slow room cannot stall the whole cycle.
	perCallTimeout = 15 * time.Second
)

// Signaling is the slice of the call engine the reconciler needs.
type Signaling interface {
	ActiveCalls(ctx context.Context) ([]calls.Call, error)
	ForceEnd(ctx context.Context, callID, reason string) error
}

// RoomInspector reports the provider-side view of one room.
type RoomInspector interface {
	RoomStatus(ctx context.Context, roomHandle string) (video.RoomStatus, error)
}

// Reconciler compares accepted calls against provider room state and
// force-ends calls whose rooms are gone, finished, or abandoned. It is
// the safety net for clients that die without sending end.
type Reconciler struct {
	signaling Signaling
	rooms     RoomInspector
	clock     func() time.Time
	log       *slog.Logger
}

func New(signaling Signaling, rooms RoomInspector, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		signaling: signaling,
		rooms:     rooms,
		clock:     time.Now,
		log:       log,
	}
}

// Summary reports what one reconciliation cycle did.
type Summary struct {
	Checked int
	Ended   int
	Errors  int
}

// Run executes one reconciliation cycle. A failure on one call is
// logged and counted, never propagated: the remaining calls are still
// inspected. Run itself errors only when the active-call listing fails.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	active, err := r.signaling.ActiveCalls(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, c := range active {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Checked++

		reason, err := r.decide(ctx, c)
		if err != nil {
			sum.Errors++
			r.log.Warn("reconcile skipped call", "call_id", c.CallID, "room", c.RoomHandle, "error", err)
			continue
		}
		if reason == "" {
			continue
		}

		if err := r.forceEnd(ctx, c.CallID, reason); err != nil {
			// Lost to a participant's own end; not a failure.
			if errors.Is(err, calls.ErrInvalidState) {
				continue
			}
			sum.Errors++
			r.log.Warn("reconcile force-end failed", "call_id", c.CallID, "reason", reason, "error", err)
			continue
		}
		sum.Ended++
		r.log.Info("stale call reconciled", "call_id", c.CallID, "room", c.RoomHandle, "reason", reason)
	}

	if sum.Ended > 0 || sum.Errors > 0 {
		r.log.Info("reconcile cycle finished",
			"checked", sum.Checked, "ended", sum.Ended, "errors", sum.Errors)
	}
	return sum, nil
}

// decide returns the reason the call should be force-ended, or "" to
// leave it alone. The checks are ordered; the first match wins.
func (r *Reconciler) decide(ctx context.Context, c calls.Call) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	st, err := r.rooms.RoomStatus(ctx, c.RoomHandle)
	if err != nil {
		return "", err
	}

	switch {
	case !st.Exists:
		return ReasonRoomNotFound, nil
	case st.State == video.RoomStateCompleted:
		return ReasonRoomCompleted, nil
	case st.State == video.RoomStateFailed:
		return ReasonRoomFailed, nil
	}

	age := r.ageOf(c)
	switch st.ParticipantCount() {
	case 0:
		if age > abandonedAfter {
			return ReasonRoomAbandoned, nil
		}
	case 1:
		if age > singleAfter {
			return ReasonSingleParticipant, nil
		}
	}
	return "", nil
}

func (r *Reconciler) forceEnd(ctx context.Context, callID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()
	return r.signaling.ForceEnd(ctx, callID, reason)
}

func (r *Reconciler) ageOf(c calls.Call) time.Duration {
	since := c.CreatedAt
	if c.AnsweredAt != nil {
		since = *c.AnsweredAt
	}
	return r.clock().UTC().Sub(since)
}
