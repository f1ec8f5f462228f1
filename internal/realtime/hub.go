package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"smarttv-backend/internal/presence"
)

// PresenceWriter is the slice of the presence service the hub drives.
type PresenceWriter interface {
	Update(ctx context.Context, username, status, socketID string) (presence.Presence, error)
}

// Event is one push message to a TV client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub tracks one live socket per user and keeps the presence store in
// step with socket lifecycle: attach marks the user online, heartbeats
// refresh the row, detach marks them offline. Call events are pushed to
// whoever holds the current socket.
type Hub struct {
	presence PresenceWriter
	log      *slog.Logger

	mu    sync.RWMutex
	conns map[string]*Connection // username -> current connection
}

func NewHub(presence PresenceWriter, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		presence: presence,
		log:      log,
		conns:    map[string]*Connection{},
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The TV clients are native apps, not browsers; origin checks add
	// nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the request and runs the connection until the client
// goes away. Blocks for the lifetime of the socket.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, username string) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := NewConnection(username, ws)
	h.attach(r.Context(), conn)
	defer h.detach(conn)

	h.readLoop(r.Context(), conn, ws)
	return nil
}

// NotifyUser pushes an event to the user's current socket. Returns
// false when the user has no live socket; the caller falls back to the
// pending-call poll.
func (h *Hub) NotifyUser(username string, ev Event) bool {
	h.mu.RLock()
	conn := h.conns[username]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("event marshal failed", "type", ev.Type, "error", err)
		return false
	}
	return conn.Send(payload) == nil
}

// Connected reports whether the user holds a live socket right now.
func (h *Hub) Connected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[username] != nil
}

// Close terminates every tracked socket. Presence rows are left to the
// sweeper; on shutdown there is no point racing it.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = map[string]*Connection{}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

// attach swaps the user's socket, enforcing one per user, and writes
// the online presence row carrying the new socket id.
func (h *Hub) attach(ctx context.Context, conn *Connection) {
	h.mu.Lock()
	previous := h.conns[conn.Username]
	h.conns[conn.Username] = conn
	h.mu.Unlock()

	conn.Start()
	if previous != nil {
		previous.Close(4001, "session replaced")
	}

	if _, err := h.presence.Update(ctx, conn.Username, string(presence.StatusOnline), conn.SocketID); err != nil {
		h.log.Warn("presence online update failed", "user", conn.Username, "error", err)
	}
	h.log.Info("socket attached", "user", conn.Username, "socket_id", conn.SocketID)
}

// detach drops the socket and, if it is still the user's current one,
// marks them offline. A replaced socket must not clobber its successor's
// presence row.
func (h *Hub) detach(conn *Connection) {
	h.mu.Lock()
	current := h.conns[conn.Username] == conn
	if current {
		delete(h.conns, conn.Username)
	}
	h.mu.Unlock()

	conn.Close(websocket.CloseNormalClosure, "bye")
	if !current {
		return
	}

	// The request context is gone by now; give the write its own bound.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.presence.Update(ctx, conn.Username, string(presence.StatusOffline), ""); err != nil {
		h.log.Warn("presence offline update failed", "user", conn.Username, "error", err)
	}
	h.log.Info("socket detached", "user", conn.Username, "socket_id", conn.SocketID)
}

type inboundMessage struct {
	Type string `json:"type"`
}

func (h *Hub) readLoop(ctx context.Context, conn *Connection, ws *websocket.Conn) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("socket read error", "user", conn.Username, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "heartbeat" {
			if _, err := h.presence.Update(ctx, conn.Username, string(presence.StatusOnline), conn.SocketID); err != nil {
				h.log.Warn("heartbeat presence refresh failed", "user", conn.Username, "error", err)
			}
		}
	}
}
