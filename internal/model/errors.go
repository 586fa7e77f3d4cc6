package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIDType is returned for identifier types outside the supported set.
	ErrInvalidIDType = errors.New("invalid identifier type")
	// ErrEmptyID is returned for blank identifiers.
	ErrEmptyID = errors.New("identifier is empty")
	// ErrUserNotFoundUpstream is returned when the directory no longer knows a user.
	ErrUserNotFoundUpstream = errors.New("user not found upstream")
)

// SyncError wraps a failure of a sync operation with the user it concerned.
type SyncError struct {
	Op     string
	ID     string
	IDType IDType
	Err    error
}

// NewSyncError creates a SyncError for the given operation and key.
func NewSyncError(op string, key Key, err error) *SyncError {
	return &SyncError{
		Op:     op,
		ID:     key.ID,
		IDType: key.Type,
		Err:    err,
	}
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.IDType, e.ID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
