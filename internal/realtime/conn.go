package realtime

import (
	"sync"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/gorilla/websocket"
)

// Conn is one live transport handle owned by the registry. Implementations
// must tolerate concurrent WriteEvent calls.
type Conn interface {
	WriteEvent(event models.Event, timeout time.Duration) error
	Close() error
}

// WSConn adapts a gorilla websocket connection to the Conn interface. Gorilla
// connections support one concurrent writer, so writes are serialized here.
type WSConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) WriteEvent(event models.Event, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

// WriteControl sends a websocket control frame (ping/close) with a deadline.
func (c *WSConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return c.conn.WriteControl(messageType, data, deadline)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
