package model

import (
	"time"

	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Session is created by a successful credential gate attempt and
// represents the "connected" state of one browser
type Session struct {
	ID        types.SessionID `json:"id"`
	Store     types.StoreName `json:"store"` // Store the session is connected to
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewSession creates a new Session with a UUID v7 ID
func NewSession(store types.StoreName, duration time.Duration) (*Session, error) {
	sessionID, err := types.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        sessionID,
		Store:     store,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}, nil
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid checks if the session is valid (not expired and has proper fields)
func (s *Session) IsValid() bool {
	return s.ID != "" && s.Store != "" && !s.IsExpired()
}
