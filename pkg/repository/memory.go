package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*model.Session
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		sessions: make(map[types.SessionID]*model.Session),
	}
}

// SaveSession saves a session to memory
func (m *Memory) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Deep copy to prevent external modifications
	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy

	return nil
}

// GetSession retrieves a session by ID
func (m *Memory) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.New("session ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "no such session",
			goerr.V("session_id", id))
	}

	// Return a copy to prevent external modifications
	sessionCopy := *session
	return &sessionCopy, nil
}

// DeleteSession deletes a session from memory
func (m *Memory) DeleteSession(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return goerr.New("session ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return goerr.Wrap(model.ErrSessionNotFound, "no such session",
			goerr.V("session_id", id))
	}

	delete(m.sessions, id)
	return nil
}

// Close does nothing for memory repository
func (m *Memory) Close() error {
	m.Clear()
	return nil
}

// Clear drops every session
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[types.SessionID]*model.Session)
}
