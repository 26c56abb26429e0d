package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with s.
func NewMemoryStore(s Session) *MemoryStore {
	return &MemoryStore{session: s}
}

// Get returns a copy of the held session.
func (m *MemoryStore) Get(_ context.Context) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Set replaces both values. It never fails.
func (m *MemoryStore) Set(_ context.Context, token, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{Token: token, DisplayName: displayName}
	return nil
}

// Clear resets the session to the zero value.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	return nil
}

// ClearToken drops the token and keeps the display name.
func (m *MemoryStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Token = ""
	return nil
}

// ClearDisplayName drops the display name and keeps the token.
func (m *MemoryStore) ClearDisplayName(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.DisplayName = ""
	return nil
}
