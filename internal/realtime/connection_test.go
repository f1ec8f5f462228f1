package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// serveConnections upgrades every request and hands the server-side
// Connection to the test over a channel.
func serveConnections(t *testing.T) (string, <-chan *Connection) {
	t.Helper()
	conns := make(chan *Connection, 16)
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection("alice", ws)
		conn.Start()
		conns <- conn
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

func TestConnection_SendDuringCloseDoesNotPanic(t *testing.T) {
	wsURL, conns := serveConnections(t)

	for i := 0; i < 200; i++ {
		client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn := <-conns

		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 32; j++ {
				if conn.Send([]byte(`{"type":"incoming_call"}`)) != nil {
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			<-start
			conn.Close(websocket.CloseNormalClosure, "done")
		}()
		close(start)
		wg.Wait()
		client.Close()
	}
}

func TestConnection_SendAfterCloseReturnsError(t *testing.T) {
	wsURL, conns := serveConnections(t)

	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	conn := <-conns

	conn.Close(websocket.CloseNormalClosure, "done")
	if err := conn.Send([]byte("late")); err == nil {
		t.Error("Send after Close returned nil error")
	}
	// Close is idempotent.
	conn.Close(websocket.CloseNormalClosure, "again")
}
