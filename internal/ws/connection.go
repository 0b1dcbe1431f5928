// Package ws implements the gateway's WebSocket relay: connection and room
// tracking plus typed message dispatch for chat-style traffic.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrConnectionClosed means the connection has left the OPEN state
	ErrConnectionClosed = errors.New("ws: connection closed")

	// ErrSendTimeout means the send buffer stayed full past the write timeout
	ErrSendTimeout = errors.New("ws: send timed out")
)

// socket is the slice of *websocket.Conn the write path needs; tests
// substitute a fake
type socket interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps one WebSocket with a single writer goroutine, since
// gorilla connections do not allow concurrent writes. All sends are
// serialized through the buffered send channel.
type Connection struct {
	id     string
	userID string
	sock   socket

	send         chan []byte
	writeTimeout time.Duration
	pingInterval time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConnection(userID string, sock socket, sendBuffer int, writeTimeout, pingInterval time.Duration) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.NewString(),
		userID:       userID,
		sock:         sock,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

// ID returns the opaque connection id
func (c *Connection) ID() string { return c.id }

// UserID returns the owning user
func (c *Connection) UserID() string { return c.userID }

// Send marshals v and queues it for delivery. It fails once the connection
// is closed or when the peer cannot drain the buffer within the write
// timeout; either failure means the connection should be unregistered.
func (c *Connection) Send(v any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	timer := time.NewTimer(c.writeTimeout)
	defer timer.Stop()

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// writeLoop is the only goroutine that touches the socket's write side.
// Any write failure closes the socket, which also terminates the read loop
// so the handler unregisters the connection.
func (c *Connection) writeLoop() {
	var ping *time.Ticker
	if c.pingInterval > 0 {
		ping = time.NewTicker(c.pingInterval)
		defer ping.Stop()
	} else {
		ping = time.NewTicker(time.Hour)
		ping.Stop()
	}

	for {
		select {
		case data := <-c.send:
			if err := c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ping.C:
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Close tears the connection down; safe to call any number of times
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.sock.Close()
	})
}

// Closed reports whether the connection has been torn down
func (c *Connection) Closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}
