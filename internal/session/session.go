// Package session tracks per-session conversation history so follow-up
// questions keep their context across query turns.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Exchange is one user question and the assistant's answer.
type Exchange struct {
	Question string
	Answer   string
}

// Manager stores bounded conversation history per session. Histories
// are capped at maxHistory exchanges; older exchanges are dropped.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string][]Exchange
	maxHistory int
}

// NewManager creates a Manager keeping at most maxHistory exchanges per
// session.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &Manager{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
	}
}

// Create registers a new session and returns its ID.
func (m *Manager) Create() string {
	id := ulid.Make().String()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange appends an exchange to the session, creating the session
// if needed and evicting the oldest exchange beyond the cap.
func (m *Manager) AddExchange(sessionID, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[sessionID], Exchange{Question: question, Answer: answer})
	if len(history) > m.maxHistory {
		history = history[len(history)-m.maxHistory:]
	}
	m.sessions[sessionID] = history
}

// History returns the formatted transcript for a session, or "" when
// the session is unknown or empty.
func (m *Manager) History(sessionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.sessions[sessionID]
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	for i, ex := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", ex.Question, ex.Answer)
	}
	return b.String()
}

// Clear removes a session's history.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
