package ws

import (
	"sort"
	"sync"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/metrics"
)

// Manager owns all connection and room state. Every mutation happens under
// one RWMutex; sends never hold the lock, so a slow peer cannot stall
// registrations, and a racing unregister leaves delivery loops with a
// closed connection rather than a dangling reference.
type Manager struct {
	mu sync.RWMutex

	// conns indexes every live connection by its id
	conns map[string]*Connection

	// users indexes each user's connections: user id -> conn id -> conn
	users map[string]map[string]*Connection

	// rooms holds membership: room id -> set of user ids
	rooms map[string]map[string]struct{}

	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration

	logger    interfaces.Logger
	collector *metrics.Collector
}

// NewManager creates an empty connection manager
func NewManager(cfg interfaces.WebSocketConfig, logger interfaces.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		conns:        make(map[string]*Connection),
		users:        make(map[string]map[string]*Connection),
		rooms:        make(map[string]map[string]struct{}),
		sendBuffer:   cfg.SendBuffer,
		writeTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		pingInterval: time.Duration(cfg.PingIntervalSeconds) * time.Second,
		logger:       logger,
		collector:    collector,
	}
}

// Register wraps the socket, stores it in both tables, and sends the
// connection-established acknowledgment carrying the new connection id
func (m *Manager) Register(userID string, sock socket) (*Connection, error) {
	conn := newConnection(userID, sock, m.sendBuffer, m.writeTimeout, m.pingInterval)

	m.mu.Lock()
	m.conns[conn.ID()] = conn
	if m.users[userID] == nil {
		m.users[userID] = make(map[string]*Connection)
	}
	m.users[userID][conn.ID()] = conn
	m.mu.Unlock()

	m.collector.WSConnected(1)

	if err := conn.Send(connectionEstablished(conn.ID())); err != nil {
		m.Unregister(userID, conn.ID())
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("WebSocket connected", map[string]any{
			"user_id":       userID,
			"connection_id": conn.ID(),
		})
	}

	return conn, nil
}

// Unregister removes the connection from both tables and, when it was the
// user's last connection, withdraws the user from every room, deleting
// rooms left empty. Idempotent.
func (m *Manager) Unregister(userID, connectionID string) {
	m.mu.Lock()

	conn, exists := m.conns[connectionID]
	if exists {
		delete(m.conns, connectionID)
	}

	userGone := false
	if set, ok := m.users[userID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(m.users, userID)
			userGone = true
		}
	}

	if userGone {
		for roomID, members := range m.rooms {
			delete(members, userID)
			if len(members) == 0 {
				delete(m.rooms, roomID)
			}
		}
	}

	m.mu.Unlock()

	if exists {
		conn.Close()
		m.collector.WSConnected(-1)
		if m.logger != nil {
			m.logger.Info("WebSocket disconnected", map[string]any{
				"user_id":       userID,
				"connection_id": connectionID,
			})
		}
	}
}

// JoinRoom adds the user to a room, creating it on first join, and returns
// the member list after the join
func (m *Manager) JoinRoom(roomID, userID string) []string {
	m.mu.Lock()
	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[string]struct{})
	}
	m.rooms[roomID][userID] = struct{}{}
	members := memberList(m.rooms[roomID])
	m.mu.Unlock()

	return members
}

// LeaveRoom removes the user from a room, deleting the room when its last
// member leaves. Reports whether the user was a member.
func (m *Manager) LeaveRoom(roomID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	if _, member := members[userID]; !member {
		return false
	}

	delete(members, userID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}
	return true
}

// RoomMembers returns the sorted member list of a room
func (m *Manager) RoomMembers(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memberList(m.rooms[roomID])
}

// UserRooms returns every room the user currently belongs to
func (m *Manager) UserRooms(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for roomID, members := range m.rooms {
		if _, ok := members[userID]; ok {
			out = append(out, roomID)
		}
	}
	sort.Strings(out)
	return out
}

// SendToUser delivers to every one of the user's connections. Fan-out is
// independent per connection: one dead connection is unregistered without
// aborting delivery to the others. Returns the delivered count.
func (m *Manager) SendToUser(userID string, v any) int {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.users[userID]))
	for _, conn := range m.users[userID] {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(v); err != nil {
			m.collector.WSSendError()
			m.Unregister(userID, conn.ID())
			continue
		}
		delivered++
	}
	return delivered
}

// SendToRoom delivers to every member of the room except excludeUser;
// exclusion covers all of that user's connections
func (m *Manager) SendToRoom(roomID string, v any, excludeUser string) {
	m.mu.RLock()
	recipients := make([]string, 0, len(m.rooms[roomID]))
	for userID := range m.rooms[roomID] {
		if userID == excludeUser {
			continue
		}
		recipients = append(recipients, userID)
	}
	m.mu.RUnlock()

	for _, userID := range recipients {
		m.SendToUser(userID, v)
	}
}

// Broadcast delivers to every open connection, best-effort
func (m *Manager) Broadcast(v any) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(v); err != nil {
			m.collector.WSSendError()
			m.Unregister(conn.UserID(), conn.ID())
		}
	}
}

// ConnectionCount reports the number of live connections
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// UserConnectionCount reports how many connections a user holds
func (m *Manager) UserConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users[userID])
}

// RoomCount reports the number of active rooms
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Shutdown closes every connection and clears all tables
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.conns = make(map[string]*Connection)
	m.users = make(map[string]map[string]*Connection)
	m.rooms = make(map[string]map[string]struct{})
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
		m.collector.WSConnected(-1)
	}
}

func memberList(members map[string]struct{}) []string {
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}
