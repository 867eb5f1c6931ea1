package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidSessionID is returned for empty identifiers or identifiers that are not safe as a storage key.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrInvalidRole is returned when a message role is neither user nor assistant.
var ErrInvalidRole = errors.New("invalid message role")

// ErrProcessing is returned by document processors when a source yields no usable content.
var ErrProcessing = errors.New("document processing failed")

// ErrGeneration is returned by answer generators on any upstream failure.
var ErrGeneration = errors.New("answer generation failed")

// StorageOp distinguishes the direction of a failed storage operation.
type StorageOp string

const (
	StorageRead  StorageOp = "read"
	StorageWrite StorageOp = "write"
)

// StorageError wraps an I/O or (de)serialization failure of a session store.
type StorageError struct {
	Op        StorageOp
	SessionID string
	Err       error
}

// NewStorageError wraps err, returning nil when err is nil.
func NewStorageError(op StorageOp, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, SessionID: sessionID, Err: err}
}

func (e *StorageError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s failed for session %q: %v", e.Op, e.SessionID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageWriteError reports whether err carries a failed write (save or delete).
func IsStorageWriteError(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == StorageWrite
}

// IsStorageReadError reports whether err carries a failed read or a corrupt record.
func IsStorageReadError(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == StorageRead
}
