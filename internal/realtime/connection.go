package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// pongWait must exceed the client heartbeat period; the read loop
	// drops the socket when nothing arrives within it.
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 4 << 10
)

// Connection wraps one TV client's websocket. The SocketID doubles as
// the socket_id stored on the presence row, so a stale presence record
// can be traced back to the session that wrote it. Safe for concurrent
// use; all writes go through a buffered channel.
type Connection struct {
	SocketID string
	Username string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

func NewConnection(username string, ws *websocket.Conn) *Connection {
	return &Connection{
		SocketID: uuid.NewString(),
		Username: username,
		ws:       ws,
		send:     make(chan []byte, 64),
		close:    make(chan struct{}),
	}
}

// Start launches the write loop. Must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. A client too slow to drain its
// buffer is disconnected rather than allowed to grow it.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("realtime: connection closed")
	default:
	}
	select {
	case <-c.close:
		return errors.New("realtime: connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("realtime: send buffer exceeded")
	}
}

// Close terminates the connection and stops the write loop. The send
// channel is left open so a concurrent Send races only against the
// close signal, never a closed channel.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
