package credentials

import (
	"context"
	"sync"

	"github.com/chrissnell/rhythmanchor/internal/types"
)

// MemoryStore keeps accounts in a map. Everything is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]types.UserRecord
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]types.UserRecord)}
}

func (m *MemoryStore) Get(_ context.Context, username string) (types.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return types.UserRecord{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) Create(_ context.Context, user types.UserRecord) error {
	if err := validate(user); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return ErrExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, username, fullName string, age int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return ErrNotFound
	}
	u.FullName = fullName
	u.Age = age
	if err := validate(u); err != nil {
		return err
	}
	m.users[username] = u
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
