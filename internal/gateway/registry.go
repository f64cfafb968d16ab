// Package gateway holds the in-memory connection registry: the single shared
// mutable structure of the real-time core. The map supports concurrent
// registration and lookup without a global lock; write exclusivity lives on
// each entry, not on the registry.
package gateway

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps an online user ID to exactly one live connection.
type Registry struct {
	conns  sync.Map // userID -> *Connection
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register installs conn as the entry for userID, replacing any previous
// entry for the same ID. The evicted handle is returned to the caller and is
// not closed or notified here; two near-simultaneous connects race on
// last-writer-wins (known limitation).
func (r *Registry) Register(userID string, conn *Connection) (replaced *Connection) {
	if old, loaded := r.conns.Swap(userID, conn); loaded {
		replaced = old.(*Connection)
		r.logger.Warn("replacing existing connection", zap.String("user_id", userID))
	}
	r.logger.Info("user connected", zap.String("user_id", userID))
	return replaced
}

// Unregister removes the entry for userID only if it still maps to conn. A stale handle from before a replacement must not evict the newer
// connection.
func (r *Registry) Unregister(userID string, conn *Connection) bool {
	if r.conns.CompareAndDelete(userID, conn) {
		r.logger.Info("user disconnected", zap.String("user_id", userID))
		return true
	}
	return false
}

// Lookup returns the current connection for userID, if any.
func (r *Registry) Lookup(userID string) (*Connection, bool) {
	v, ok := r.conns.Load(userID)
	if !ok {
		return nil, false
	}
	return v.(*Connection), true
}

// SendTo pushes payload to userID's connection. If the user is offline the
// payload is silently dropped: the caller has already persisted whatever
// needed to survive, delivery here is best-effort only. Returns whether a
// live connection received the write.
func (r *Registry) SendTo(userID string, payload any) bool {
	conn, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	if err := conn.Push(payload); err != nil {
		r.logger.Warn("push failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	return true
}

// Broadcast pushes payload to every registered connection except the given
// user ID. Per-target write failures are isolated.
func (r *Registry) Broadcast(payload any, except string) {
	r.conns.Range(func(key, value any) bool {
		userID := key.(string)
		if userID == except {
			return true
		}
		if err := value.(*Connection).Push(payload); err != nil {
			r.logger.Warn("broadcast push failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return true
	})
}

// OnlineIDs returns a snapshot of currently registered user IDs.
func (r *Registry) OnlineIDs() []string {
	var ids []string
	r.conns.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	n := 0
	r.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
