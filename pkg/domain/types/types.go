package types

import (
	"strconv"

	"github.com/google/uuid"
)

// SessionID represents a connection session identifier
type SessionID string

// String returns the string representation
func (id SessionID) String() string {
	return string(id)
}

// NewSessionID creates a new SessionID using UUID v7
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return SessionID(id.String()), nil
}

// StoreName is the user-supplied name of a data store (file path or URL)
type StoreName string

// String returns the string representation
func (n StoreName) String() string {
	return string(n)
}

// IncidentID identifies one incident record in the upstream store
type IncidentID int64

// String returns the string representation
func (id IncidentID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// District is the name of an alcaldía
type District string

// String returns the string representation
func (d District) String() string {
	return string(d)
}

// CrimeType is the categorical label of an incident
type CrimeType string

// String returns the string representation
func (c CrimeType) String() string {
	return string(c)
}
