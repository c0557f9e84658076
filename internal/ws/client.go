package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn serializes writes to one socket. The reader goroutine owns
// the read side; everything else funnels through writeJSON.
type clientConn struct {
	raw *websocket.Conn
	mu  sync.Mutex
}

func (c *clientConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.raw.SetWriteDeadline(time.Now().Add(writeWait))
	return c.raw.WriteJSON(v)
}

func (c *clientConn) close() {
	_ = c.raw.Close()
}
