package live

import (
	"sync"

	"github.com/google/uuid"
)

// Presence is the explicitly-owned set of live connections: insert on bind,
// remove on close or error. It exposes a point-in-time snapshot for fanout;
// senders re-check each connection's state at write time because a
// connection may close between snapshot and send.
type Presence struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[uuid.UUID]*Connection)}
}

func (p *Presence) Add(conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[conn.ID] = conn
}

func (p *Presence) Remove(conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, conn.ID)
}

// Snapshot returns the current connections in no particular order. The
// returned slice is owned by the caller; concurrent Add/Remove do not
// affect it.
func (p *Presence) Snapshot() []*Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conns := make([]*Connection, 0, len(p.conns))
	for _, conn := range p.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Drain closes and removes every connection, used on shutdown.
func (p *Presence) Drain() {
	for _, conn := range p.Snapshot() {
		conn.Close()
		p.Remove(conn)
	}
}
