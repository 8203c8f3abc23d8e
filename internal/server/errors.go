package server

import (
	"errors"
	"fmt"
)

// Token verification failures. The authorization gate collapses all three
// into a login redirect; they stay distinct for logging.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// ErrNotFound covers both "does not exist" and "exists but owned by someone
// else". Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("not found")

// ErrSelfDeletion is returned when an admin tries to delete their own account.
var ErrSelfDeletion = errors.New("cannot delete own account")

// ValidationError reports a missing or unusable request field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// StoreError wraps a failure from the underlying datastore.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
