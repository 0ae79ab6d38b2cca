package session

import (
	"sync"
	"time"
)

// State is the step of a record-creation dialogue.
type State int

const (
	Idle State = iota
	AwaitingPillName
	AwaitingPillDose
	AwaitingNote
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingPillName:
		return "awaiting_pill_name"
	case AwaitingPillDose:
		return "awaiting_pill_dose"
	case AwaitingNote:
		return "awaiting_note"
	default:
		return "unknown"
	}
}

// Session is the per-user dialogue context. PillName is only set in AwaitingPillDose.
type Session struct {
	State     State
	PillName  string
	UpdatedAt time.Time
}

func (s Session) Active() bool { return s.State != Idle }

type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session), now: time.Now}
}

// Get returns the user's session, or an idle one.
func (m *Manager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

func (m *Manager) Set(userID int64, s Session) {
	if s.State == Idle {
		m.Reset(userID)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
}

// Reset drops any partial input of the user.
func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Sweep drops sessions untouched for longer than ttl and returns how many.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-ttl)
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
