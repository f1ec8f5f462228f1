package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"smarttv-backend/internal/audit"
	"smarttv-backend/internal/calls"
	"smarttv-backend/internal/users"
	"smarttv-backend/internal/video"
)

type testDirectory struct{}

func (testDirectory) GetByUsername(ctx context.Context, username string) (users.User, error) {
	return users.User{Username: username, DisplayName: username}, nil
}

type flakyRooms struct {
	inner    *video.FakeProvider
	failsFor map[string]error
}

func (f *flakyRooms) RoomStatus(ctx context.Context, roomHandle string) (video.RoomStatus, error) {
	if err, ok := f.failsFor[roomHandle]; ok {
		return video.RoomStatus{}, err
	}
	return f.inner.RoomStatus(ctx, roomHandle)
}

type fixture struct {
	rec     *Reconciler
	engine  *calls.Service
	repo    *calls.MemoryRepo
	rooms   *video.FakeProvider
	flaky   *flakyRooms
	events *audit.MemoryRepo
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   calls.NewMemoryRepo(),
		rooms:  video.NewFakeProvider(),
		events: audit.NewMemoryRepo(),
		// Anchored to real time: the call engine stamps answered_at with
		// its own clock, so the reconciler clock advances from here.
		now: time.Now().UTC(),
	}
	f.flaky = &flakyRooms{inner: f.rooms, failsFor: map[string]error{}}
	f.engine = calls.NewService(f.repo, testDirectory{}, f.rooms, audit.NewService(f.events), slog.Default())
	f.rec = New(f.engine, f.flaky, slog.Default())
	f.rec.clock = func() time.Time { return f.now }
	return f
}

// acceptedCall sets up an accepted call with a live fake room and
// returns its id and room handle.
func (f *fixture) acceptedCall(t *testing.T, caller, callee string) (string, string) {
	t.Helper()
	ctx := context.Background()
	c, err := f.engine.Initiate(ctx, caller, callee)
	if err != nil {
		t.Fatal(err)
	}
	answered, err := f.engine.Answer(ctx, c.CallID, callee)
	if err != nil {
		t.Fatal(err)
	}
	return c.CallID, answered.RoomHandle
}

func (f *fixture) statusOf(t *testing.T, callID string) calls.Status {
	t.Helper()
	c, err := f.engine.Status(context.Background(), callID)
	if err != nil {
		t.Fatal(err)
	}
	return c.Status
}

func TestRun_LeavesHealthyCallAlone(t *testing.T) {
	f := newFixture(t)
	id, room := f.acceptedCall(t, "alice", "bob")
	f.rooms.Join(room, "alice", f.now)
	f.rooms.Join(room, "bob", f.now)

	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Checked != 1 || sum.Ended != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if got := f.statusOf(t, id); got != calls.StatusAccepted {
		t.Errorf("status = %s, want accepted", got)
	}
}

func TestRun_RoomNotFound(t *testing.T) {
	f := newFixture(t)
	id, room := f.acceptedCall(t, "alice", "bob")
	f.rooms.SetRoom(room, video.RoomStatus{Exists: false})

	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Ended != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := f.statusOf(t, id); got != calls.StatusEnded {
		t.Errorf("status = %s, want ended", got)
	}
	assertAudited(t, f.events, id, ReasonRoomNotFound)
}

func TestRun_RoomCompletedAndFailed(t *testing.T) {
	f := newFixture(t)
	doneID, doneRoom := f.acceptedCall(t, "alice", "bob")
	failID, failRoom := f.acceptedCall(t, "carol", "dave")
	f.rooms.SetRoom(doneRoom, video.RoomStatus{Exists: true, State: video.RoomStateCompleted})
	f.rooms.SetRoom(failRoom, video.RoomStatus{Exists: true, State: video.RoomStateFailed})

	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Ended != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	assertAudited(t, f.events, doneID, ReasonRoomCompleted)
	assertAudited(t, f.events, failID, ReasonRoomFailed)
}

// An empty room is abandoned only after the grace window.
func TestRun_AbandonedRoomRespectsGraceWindow(t *testing.T) {
	f := newFixture(t)
	id, _ := f.acceptedCall(t, "alice", "bob")

	f.now = f.now.Add(3 * time.Minute)
	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Ended != 0 {
		t.Fatalf("ended within grace window: %+v", sum)
	}

	f.now = f.now.Add(3 * time.Minute)
	sum, err = f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Ended != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := f.statusOf(t, id); got != calls.StatusEnded {
		t.Errorf("status = %s, want ended", got)
	}
	assertAudited(t, f.events, id, ReasonRoomAbandoned)
}

func TestRun_SingleParticipantTimeout(t *testing.T) {
	f := newFixture(t)
	id, room := f.acceptedCall(t, "alice", "bob")
	f.rooms.Join(room, "alice", f.now)

	f.now = f.now.Add(8 * time.Minute)
	if sum, _ := f.rec.Run(context.Background()); sum.Ended != 0 {
		t.Fatalf("ended before single-participant window: %+v", sum)
	}

	f.now = f.now.Add(5 * time.Minute)
	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Ended != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	assertAudited(t, f.events, id, ReasonSingleParticipant)
}

// One broken room must not stop reconciliation of the rest.
func TestRun_IsolatesPerCallErrors(t *testing.T) {
	f := newFixture(t)
	_, badRoom := f.acceptedCall(t, "alice", "bob")
	goneID, goneRoom := f.acceptedCall(t, "carol", "dave")
	f.flaky.failsFor[badRoom] = errors.New("twilio 500")
	f.rooms.SetRoom(goneRoom, video.RoomStatus{Exists: false})

	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must not fail on per-call errors: %v", err)
	}
	if sum.Checked != 2 || sum.Ended != 1 || sum.Errors != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := f.statusOf(t, goneID); got != calls.StatusEnded {
		t.Errorf("healthy branch not reconciled: %s", got)
	}
}

// If a participant ends the call mid-cycle, the reconciler's losing
// write is silent.
func TestRun_ParticipantEndWinsRace(t *testing.T) {
	f := newFixture(t)
	id, room := f.acceptedCall(t, "alice", "bob")
	f.rooms.SetRoom(room, video.RoomStatus{Exists: false})
	if err := f.engine.End(context.Background(), id, "alice"); err != nil {
		t.Fatal(err)
	}

	sum, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Errors != 0 {
		t.Errorf("lost race counted as error: %+v", sum)
	}
}

func assertAudited(t *testing.T, events *audit.MemoryRepo, callID, reason string) {
	t.Helper()
	for _, e := range events.ByCall(callID) {
		if e.Type == audit.EventTypeReconcileAction && e.Reason == reason {
			return
		}
	}
	t.Errorf("no reconcile_action audit for call %s reason %s", callID, reason)
}
