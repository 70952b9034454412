package quiz

import "sync"

// Manager keeps one Session per learner.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions share deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Session returns the learner's session, creating it on first use.
func (m *Manager) Session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		s = NewSession(userID, m.deps)
		m.sessions[userID] = s
	}
	return s
}

// Sink returns the shared result sink.
func (m *Manager) Sink() ResultSink { return m.deps.Sink }

// Close cancels every running timer.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
