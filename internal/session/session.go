// Package session tracks signed-in users and the state that lives only as
// long as their session: the daily history log and the coaching chat.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/google/uuid"
)

// Greeting is the first chat turn of every session
const Greeting = "Hi! I'm your privacy-first wellness companion."

// ErrUnknownSession is returned for IDs that were never issued or were closed
var ErrUnknownSession = errors.New("unknown session")

// Session belongs to a single user. Its logs are append-only.
type Session struct {
	ID       string
	Username string
	Started  time.Time

	mu      sync.Mutex
	counter int
	history []types.HistoryEntry
	chat    []types.ChatTurn
	now     func() time.Time
}

func newSession(username string, now func() time.Time) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Username: username,
		Started:  now(),
		counter:  1,
		chat:     []types.ChatTurn{{Role: types.RoleAssistant, Text: Greeting}},
		now:      now,
	}
}

// SaveDay appends a day to the trend log, labelled "Day N".
func (s *Session) SaveDay(stabilityIndex int) types.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := types.HistoryEntry{
		Day:            fmt.Sprintf("Day %d", s.counter),
		StabilityIndex: stabilityIndex,
		SavedAt:        s.now(),
	}
	s.history = append(s.history, entry)
	s.counter++
	return entry
}

// History returns a copy of the trend log
func (s *Session) History() []types.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.HistoryEntry(nil), s.history...)
}

// AppendChat adds turns to the chat log
func (s *Session) AppendChat(turns ...types.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, turns...)
}

// Chat returns a copy of the chat log
func (s *Session) Chat() []types.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ChatTurn(nil), s.chat...)
}

// Manager issues and looks up sessions
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager returns an empty session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open starts a new session for a user
func (m *Manager) Open(username string) *Session {
	s := newSession(username, m.now)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get looks up a session by ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Close ends a session and drops its state
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrUnknownSession
	}
	delete(m.sessions, id)
	return nil
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
