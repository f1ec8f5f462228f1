package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"smarttv-backend/internal/presence"
)

type recordedUpdate struct {
	Username string
	Status   string
	SocketID string
}

type fakePresence struct {
	mu      sync.Mutex
	updates []recordedUpdate
}

func (f *fakePresence) Update(ctx context.Context, username, status, socketID string) (presence.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, recordedUpdate{username, status, socketID})
	return presence.Presence{Username: username}, nil
}

func (f *fakePresence) all() []recordedUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedUpdate, len(f.updates))
	copy(out, f.updates)
	return out
}

func (f *fakePresence) waitFor(t *testing.T, match func(recordedUpdate) bool) recordedUpdate {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, u := range f.all() {
			if match(u) {
				return u
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected presence update not recorded; got %+v", f.all())
	return recordedUpdate{}
}

func newTestHub(t *testing.T) (*Hub, *fakePresence, string) {
	t.Helper()
	fp := &fakePresence{}
	hub := NewHub(fp, slog.Default())
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("username")
		_ = hub.Serve(w, r, user)
	}))
	t.Cleanup(srv.Close)

	return hub, fp, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, wsURL, username string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?username="+username, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_AttachMarksOnlineWithSocketID(t *testing.T) {
	hub, fp, wsURL := newTestHub(t)
	dial(t, wsURL, "alice")

	up := fp.waitFor(t, func(u recordedUpdate) bool {
		return u.Username == "alice" && u.Status == "online"
	})
	if up.SocketID == "" {
		t.Error("online update carries no socket id")
	}
	if !hub.Connected("alice") {
		t.Error("Connected(alice) = false after attach")
	}
}

func TestHub_DetachMarksOffline(t *testing.T) {
	hub, fp, wsURL := newTestHub(t)
	conn := dial(t, wsURL, "alice")
	fp.waitFor(t, func(u recordedUpdate) bool { return u.Status == "online" })

	conn.Close()

	fp.waitFor(t, func(u recordedUpdate) bool {
		return u.Username == "alice" && u.Status == "offline"
	})
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected("alice") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Connected("alice") {
		t.Error("Connected(alice) = true after detach")
	}
}

func TestHub_SecondSocketReplacesFirst(t *testing.T) {
	hub, fp, wsURL := newTestHub(t)

	first := dial(t, wsURL, "alice")
	fp.waitFor(t, func(u recordedUpdate) bool { return u.Status == "online" })
	dial(t, wsURL, "alice")

	// The replaced socket is closed by the server.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	if !hub.Connected("alice") {
		t.Error("replacement socket not tracked")
	}

	// The replaced socket's detach must not flip alice offline.
	time.Sleep(50 * time.Millisecond)
	for _, u := range fp.all() {
		if u.Status == "offline" {
			t.Errorf("offline written while replacement socket still live: %+v", u)
		}
	}
}

func TestHub_NotifyUserDeliversEvent(t *testing.T) {
	hub, fp, wsURL := newTestHub(t)
	conn := dial(t, wsURL, "bob")
	fp.waitFor(t, func(u recordedUpdate) bool { return u.Status == "online" })

	if !hub.NotifyUser("bob", Event{Type: "incoming_call", Payload: map[string]string{"call_id": "abc"}}) {
		t.Fatal("NotifyUser = false for connected user")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "incoming_call" || ev.Payload["call_id"] != "abc" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHub_NotifyUserWithoutSocket(t *testing.T) {
	hub, _, _ := newTestHub(t)
	if hub.NotifyUser("nobody", Event{Type: "incoming_call"}) {
		t.Error("NotifyUser = true for user without socket")
	}
}

func TestHub_HeartbeatRefreshesPresence(t *testing.T) {
	_, fp, wsURL := newTestHub(t)
	conn := dial(t, wsURL, "alice")
	fp.waitFor(t, func(u recordedUpdate) bool { return u.Status == "online" })
	initial := len(fp.all())

	if err := conn.WriteJSON(map[string]string{"type": "heartbeat"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(fp.all()) <= initial && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	updates := fp.all()
	if len(updates) <= initial {
		t.Fatal("heartbeat did not write a presence refresh")
	}
	last := updates[len(updates)-1]
	if last.Status != "online" || last.SocketID == "" {
		t.Errorf("heartbeat refresh = %+v", last)
	}
}
