package intake

import (
	"sync"
	"time"
)

// State is one step of the intake flow. A session walks the states in order;
// only Cancel and eviction leave the path early.
type State int

const (
	StateSelectingBranch State = iota
	StateSelectingPriority
	StateSelectingCartridge
	StateEnteringQuantity
	StateAddingComment
	StateConfirming
)

func (s State) String() string {
	switch s {
	case StateSelectingBranch:
		return "selecting_branch"
	case StateSelectingPriority:
		return "selecting_priority"
	case StateSelectingCartridge:
		return "selecting_cartridge"
	case StateEnteringQuantity:
		return "entering_quantity"
	case StateAddingComment:
		return "adding_comment"
	case StateConfirming:
		return "confirming"
	}
	return "unknown"
}

// Session is the in-memory draft of one user's request. Nothing is persisted
// until the user confirms; a session that dies loses at most a draft.
type Session struct {
	PlatformID string
	UserID     uint
	State      State

	BranchID      uint
	BranchName    string
	Priority      string
	CartridgeID   uint
	CartridgeName string
	Quantity      int
	Comment       *string

	UpdatedAt time.Time
}

// DefaultTTL is how long an idle session survives before EvictIdle removes it.
const DefaultTTL = 30 * time.Minute

// Manager holds active intake sessions keyed by platform user ID.
type Manager struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. A ttl of 0 means DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for a platform user, or nil.
func (m *Manager) Get(platformID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[platformID]
}

// Put stores a session and stamps its activity time.
func (m *Manager) Put(s *Session) {
	s.UpdatedAt = time.Now()
	m.mu.Lock()
	m.sessions[s.PlatformID] = s
	m.mu.Unlock()
}

// Touch refreshes a session's activity time.
func (m *Manager) Touch(platformID string) {
	m.mu.Lock()
	if s, ok := m.sessions[platformID]; ok {
		s.UpdatedAt = time.Now()
	}
	m.mu.Unlock()
}

// Delete removes a session.
func (m *Manager) Delete(platformID string) {
	m.mu.Lock()
	delete(m.sessions, platformID)
	m.mu.Unlock()
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle removes sessions idle longer than the TTL and returns how many
// were evicted. Run periodically from the daemon's cron.
func (m *Manager) EvictIdle() int {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
