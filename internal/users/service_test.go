package users

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRegisterOrUpdate_CreatesNewUser(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.clock = fixedClock(now)

	reg, err := svc.RegisterOrUpdate(context.Background(), "alice", "", "")
	if err != nil {
		t.Fatalf("RegisterOrUpdate: %v", err)
	}
	if !reg.IsNewUser {
		t.Error("expected IsNewUser")
	}
	if reg.User.DisplayName != "alice" {
		t.Errorf("DisplayName = %q, want username fallback", reg.User.DisplayName)
	}
	if reg.User.DeviceType != "smarttv" {
		t.Errorf("DeviceType = %q, want smarttv default", reg.User.DeviceType)
	}
	if reg.User.ID == "" {
		t.Error("ID not generated")
	}
}

func TestRegisterOrUpdate_TouchesExistingUser(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.clock = fixedClock(t0)

	if _, err := svc.RegisterOrUpdate(context.Background(), "bob", "Bob", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}

	t1 := t0.Add(5 * time.Minute)
	svc.clock = fixedClock(t1)

	reg, err := svc.RegisterOrUpdate(context.Background(), "bob", "Bobby", "")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if reg.IsNewUser {
		t.Error("expected existing user")
	}
	if reg.User.DisplayName != "Bobby" {
		t.Errorf("DisplayName = %q, want updated", reg.User.DisplayName)
	}

	stored, err := repo.GetByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if !stored.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", stored.LastSeen, t1)
	}
}

func TestRegisterOrUpdate_RejectsEmptyUsername(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.RegisterOrUpdate(context.Background(), "  ", "", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.GetByUsername(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_ExcludesRequester(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	for _, name := range []string{"carol", "caroline", "dave"} {
		if _, err := svc.RegisterOrUpdate(context.Background(), name, "", ""); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	got, err := svc.Search(context.Background(), "carol", "carol", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Username != "caroline" {
		t.Errorf("Search result = %+v", got)
	}
}
