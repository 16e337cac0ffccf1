package interfaces

import (
	"context"

	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Store is an open connection to a relational data store holding incidents.
// The handle's identity is the memoization key of the loader.
type Store interface {
	// Name returns the store name the handle was opened with
	Name() types.StoreName

	// Driver returns the database/sql driver serving the store
	Driver() string

	// QueryIncidents runs the fixed incident/district join
	QueryIncidents(ctx context.Context) ([]model.Incident, error)

	// Close releases the connection
	Close() error
}

// StoreOpener opens data stores by user-supplied name
type StoreOpener interface {
	Open(ctx context.Context, name types.StoreName) (Store, error)
}
