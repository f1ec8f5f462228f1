package video

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestRoomNameFor(t *testing.T) {
	if got := RoomNameFor("5f2b9c1e-aaaa-bbbb-cccc-dddddddddddd"); got != "call_5f2b9c1e" {
		t.Errorf("RoomNameFor = %q", got)
	}
	if got := RoomNameFor("short"); got != "call_short" {
		t.Errorf("RoomNameFor short id = %q", got)
	}
}

func TestTwilioTokenIssuer_Claims(t *testing.T) {
	cfg := TwilioConfig{AccountSID: "ACxxx", APIKey: "SKxxx", APISecret: "secret"}
	issuer := NewTwilioTokenIssuer(cfg, time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.clock = func() time.Time { return now }

	raw, err := issuer.AccessToken("alice", "call_5f2b9c1e")
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	var claims accessTokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if cty := parsed.Header["cty"]; cty != "twilio-fpa;v=1" {
		t.Errorf("cty header = %v", cty)
	}
	if claims.Issuer != "SKxxx" || claims.Subject != "ACxxx" {
		t.Errorf("iss/sub = %s/%s", claims.Issuer, claims.Subject)
	}
	if claims.Grants.Identity != "alice" {
		t.Errorf("identity grant = %s", claims.Grants.Identity)
	}
	if claims.Grants.Video.Room != "call_5f2b9c1e" {
		t.Errorf("room grant = %s", claims.Grants.Video.Room)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v", claims.ExpiresAt.Time)
	}
}

func TestTwilioTokenIssuer_RequiresCredentials(t *testing.T) {
	issuer := NewTwilioTokenIssuer(TwilioConfig{}, time.Hour)
	if _, err := issuer.AccessToken("alice", "call_x"); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func newTwilioTestServer(t *testing.T, handler http.HandlerFunc) *TwilioProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTwilioProvider(TwilioConfig{
		AccountSID: "ACxxx",
		APIKey:     "SKxxx",
		APISecret:  "secret",
		BaseURL:    srv.URL,
	})
}

func TestTwilioProvider_AllocateRoom(t *testing.T) {
	p := newTwilioTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/Rooms" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("UniqueName") != "call_5f2b9c1e" {
			t.Errorf("UniqueName = %q", r.PostForm.Get("UniqueName"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"RMxxx","status":"in-progress"}`))
	})

	handle, err := p.AllocateRoom(context.Background(), "5f2b9c1e-aaaa-bbbb-cccc-dddddddddddd")
	if err != nil {
		t.Fatalf("AllocateRoom: %v", err)
	}
	if handle != "call_5f2b9c1e" {
		t.Errorf("handle = %q", handle)
	}
}

func TestTwilioProvider_AllocateRoom_AlreadyExists(t *testing.T) {
	p := newTwilioTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":53113,"message":"Room exists"}`))
	})

	handle, err := p.AllocateRoom(context.Background(), "5f2b9c1e")
	if err != nil {
		t.Fatalf("existing room must not be an error: %v", err)
	}
	if handle != "call_5f2b9c1e" {
		t.Errorf("handle = %q", handle)
	}
}

func TestTwilioProvider_RoomStatus_NotFound(t *testing.T) {
	p := newTwilioTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":20404,"message":"not found"}`))
	})

	st, err := p.RoomStatus(context.Background(), "call_missing")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if st.Exists {
		t.Error("missing room reported as existing")
	}
}

func TestTwilioProvider_RoomStatus_InProgressWithParticipants(t *testing.T) {
	p := newTwilioTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/Rooms/call_5f2b9c1e":
			w.Write([]byte(`{"sid":"RMxxx","status":"in-progress"}`))
		case "/v1/Rooms/RMxxx/Participants":
			if r.URL.Query().Get("Status") != "connected" {
				t.Errorf("Status filter = %q", r.URL.Query().Get("Status"))
			}
			w.Write([]byte(`{"participants":[
				{"identity":"alice","start_time":"2025-06-01T12:00:00Z"},
				{"identity":"bob","start_time":"2025-06-01T12:00:05Z"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	st, err := p.RoomStatus(context.Background(), "call_5f2b9c1e")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if !st.Exists || st.State != RoomStateInProgress {
		t.Errorf("status = %+v", st)
	}
	if st.ParticipantCount() != 2 {
		t.Errorf("participants = %d, want 2", st.ParticipantCount())
	}
	if st.Participants[0].Identity != "alice" {
		t.Errorf("participants[0] = %+v", st.Participants[0])
	}
}

func TestTwilioProvider_RoomStatus_CompletedSkipsParticipantFetch(t *testing.T) {
	p := newTwilioTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/Rooms/call_done" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"sid":"RMyyy","status":"completed"}`))
	})

	st, err := p.RoomStatus(context.Background(), "call_done")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if st.State != RoomStateCompleted || st.ParticipantCount() != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestFakeProvider_Lifecycle(t *testing.T) {
	f := NewFakeProvider()
	ctx := context.Background()

	handle, err := f.AllocateRoom(ctx, "5f2b9c1e")
	if err != nil {
		t.Fatal(err)
	}
	f.Join(handle, "alice", time.Now())

	st, err := f.RoomStatus(ctx, handle)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Exists || st.State != RoomStateInProgress || st.ParticipantCount() != 1 {
		t.Errorf("status = %+v", st)
	}

	if st, _ := f.RoomStatus(ctx, "call_nope"); st.Exists {
		t.Error("unknown room reported as existing")
	}
}
