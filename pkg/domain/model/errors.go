package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Sentinel errors for the dashboard pipeline
var (
	ErrMissingFields    = goerr.New("store name and secret are required")
	ErrAuthFailed       = goerr.New("incorrect secret")
	ErrConnectionFailed = goerr.New("failed to connect to data store")
	ErrQueryFailed      = goerr.New("failed to run incident query")
	ErrSessionNotFound  = goerr.New("session not found")
)

// StoreError carries the driver error of a failed store operation.
// Kind is ErrConnectionFailed or ErrQueryFailed and matches with errors.Is.
type StoreError struct {
	Kind  error
	Store types.StoreName
	Cause error
}

func (e *StoreError) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

// Unwrap exposes both the kind and the driver error
func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}
