// Package live implements the real-time gateway: binding anonymous
// transport connections to authenticated identities, tracking presence,
// dispatching inbound frames, and fanning out domain events.
package live

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/targoninc/venel-api/domain"
)

// Lifecycle states of a Connection. Transitions only move forward;
// a closed connection is never reused.
const (
	StateConnecting int32 = iota
	StateOpen
	StateClosing
	StateClosed
)

// socket is the subset of *websocket.Conn the connection needs.
// Tests substitute an in-memory implementation.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	Close() error
}

// Connection binds one live transport connection to an identity snapshot.
// One identity may own many concurrent Connections (multi-device).
type Connection struct {
	ID uuid.UUID

	mu       sync.RWMutex
	identity domain.Identity

	sock  socket
	state atomic.Int32
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	log   *slog.Logger
}

func NewConnection(log *slog.Logger, sock socket, identity domain.Identity, bufferSize int) *Connection {
	c := &Connection{
		ID:       uuid.New(),
		identity: identity,
		sock:     sock,
		send:     make(chan []byte, bufferSize),
		done:     make(chan struct{}),
		log:      log,
	}
	c.state.Store(StateConnecting)
	return c
}

// Identity returns the current snapshot. The snapshot is an owned value;
// callers never see later replacements through it.
func (c *Connection) Identity() domain.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// ReplaceIdentity swaps the snapshot wholesale. The identity ID must not
// change after bind; only profile fields do.
func (c *Connection) ReplaceIdentity(identity domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity
}

func (c *Connection) markOpen() {
	c.state.CompareAndSwap(StateConnecting, StateOpen)
}

func (c *Connection) IsOpen() bool {
	return c.state.Load() == StateOpen
}

// Send enqueues one serialized frame without blocking. Frames to a closed
// connection or past a full buffer are dropped: delivery is best-effort,
// at most once, and a slow consumer must not block the broadcaster.
func (c *Connection) Send(frame []byte) {
	if !c.IsOpen() {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.log.Warn("send buffer full, dropping frame",
			"connection_id", c.ID, "user_id", c.Identity().ID)
	}
}

// Close transitions to closed and tears the socket down. Safe to call from
// any goroutine, any number of times.
func (c *Connection) Close() {
	c.once.Do(func() {
		c.state.Store(StateClosing)
		close(c.done)
		_ = c.sock.Close()
		c.state.Store(StateClosed)
	})
}

// writePump drains the send buffer onto the socket until the connection
// closes. Runs as the connection's single writer goroutine.
func (c *Connection) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed, closing connection",
					"connection_id", c.ID, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
