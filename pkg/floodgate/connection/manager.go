package connection

import (
	"net"
	"sync"

	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Channel is the network connection a Connection is registered against.
type Channel interface {
	RemoteAddr() net.Addr
	// Active reports whether the connection is still open.
	Active() bool
}

// Manager is a concurrency safe registry of the Floodgate
// connections of all live channels.
type Manager struct {
	mu     sync.RWMutex // Protects following fields
	byChan map[Channel]*Connection
	byID   map[uuid.UUID]Channel
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		byChan: map[Channel]*Connection{},
		byID:   map[uuid.UUID]Channel{},
	}
}

// Register stores conn for ch, replacing any connection registered for ch before.
func (m *Manager) Register(ch Channel, conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byChan[ch]; ok {
		delete(m.byID, old.JavaUUID())
	}
	m.byChan[ch] = conn
	m.byID[conn.JavaUUID()] = ch
}

// Get returns the connection of ch or nil.
func (m *Manager) Get(ch Channel) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byChan[ch]
}

// ByUUID returns the connection with the given effective Java uuid or nil.
func (m *Manager) ByUUID(id uuid.UUID) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.byID[id]
	if !ok {
		return nil
	}
	return m.byChan[ch]
}

// Remove unregisters the connection of ch and returns it, nil if none was registered.
func (m *Manager) Remove(ch Channel) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.byChan[ch]
	if !ok {
		return nil
	}
	delete(m.byChan, ch)
	if m.byID[conn.JavaUUID()] == ch {
		delete(m.byID, conn.JavaUUID())
	}
	return conn
}

// Len returns the number of registered connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byChan)
}

// All returns a snapshot of all registered connections.
func (m *Manager) All() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conns := make([]*Connection, 0, len(m.byChan))
	for _, c := range m.byChan {
		conns = append(conns, c)
	}
	return conns
}
