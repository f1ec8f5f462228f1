package video

import (
	"context"
	"sync"
	"time"
)

// FakeProvider is an in-memory provider for local development and
// tests. Rooms start in-progress with no participants; tests mutate
// them through SetRoom.
type FakeProvider struct {
	mu    sync.Mutex
	rooms map[string]RoomStatus

	// AllocateErr, when set, makes AllocateRoom fail.
	AllocateErr error
	// StatusErr, when set, makes RoomStatus fail.
	StatusErr error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{rooms: map[string]RoomStatus{}}
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) AllocateRoom(ctx context.Context, callID string) (string, error) {
	if f.AllocateErr != nil {
		return "", f.AllocateErr
	}
	name := RoomNameFor(callID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[name]; !ok {
		f.rooms[name] = RoomStatus{Exists: true, State: RoomStateInProgress}
	}
	return name, nil
}

func (f *FakeProvider) RoomStatus(ctx context.Context, roomHandle string) (RoomStatus, error) {
	if f.StatusErr != nil {
		return RoomStatus{}, f.StatusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.rooms[roomHandle]
	if !ok {
		return RoomStatus{Exists: false}, nil
	}
	return st, nil
}

// SetRoom overwrites the stored status for a room.
func (f *FakeProvider) SetRoom(roomHandle string, st RoomStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[roomHandle] = st
}

// Join adds a connected participant to an in-progress room.
func (f *FakeProvider) Join(roomHandle, identity string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.rooms[roomHandle]
	st.Exists = true
	if st.State == "" {
		st.State = RoomStateInProgress
	}
	st.Participants = append(st.Participants, Participant{Identity: identity, ConnectedAt: at})
	f.rooms[roomHandle] = st
}

// FakeTokenIssuer returns predictable tokens for tests.
type FakeTokenIssuer struct{}

func (FakeTokenIssuer) AccessToken(identity, roomHandle string) (string, error) {
	return "token-" + identity + "-" + roomHandle, nil
}
