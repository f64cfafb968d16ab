package gateway

import (
	"sync"
	"time"
)

// Transport is the write side of one live connection. *websocket.Conn
// satisfies it; tests substitute an in-memory recorder.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// Connection binds a user to a live transport and serializes all writes to
// it. The underlying websocket does not tolerate interleaved concurrent
// writes, so every push from any goroutine goes through mu.
type Connection struct {
	UserID string

	transport Transport

	// mu is the per-entry serialization lock: one writer at a time.
	mu sync.Mutex

	lastSeen   time.Time
	lastSeenMu sync.RWMutex
}

// NewConnection wraps a transport for the given user.
func NewConnection(userID string, t Transport) *Connection {
	return &Connection{
		UserID:    userID,
		transport: t,
		lastSeen:  time.Now(),
	}
}

// Push writes one envelope to the transport, holding the entry lock for the
// duration of the write.
func (c *Connection) Push(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.WriteJSON(v)
}

// Close closes the underlying transport.
func (c *Connection) Close() error {
	return c.transport.Close()
}

// Touch records peer liveness; called from the pong handler.
func (c *Connection) Touch() {
	c.lastSeenMu.Lock()
	c.lastSeen = time.Now()
	c.lastSeenMu.Unlock()
}

// Alive reports whether the peer has been heard from within timeout.
func (c *Connection) Alive(timeout time.Duration) bool {
	c.lastSeenMu.RLock()
	defer c.lastSeenMu.RUnlock()
	return time.Since(c.lastSeen) < timeout
}
