package recorder

import (
	"errors"
	"fmt"
)

// Precondition violations. These are usage errors: they are never retried
// and are surfaced to the caller verbatim.
var (
	// ErrSessionActive indicates Begin or Reattach was called while a
	// session is already active.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoActiveSession indicates the operation needs an active session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrAlreadyPaused indicates Pause was called while a pause is open.
	ErrAlreadyPaused = errors.New("session is already paused")
	// ErrNotPaused indicates Resume was called without an open pause.
	ErrNotPaused = errors.New("session is not paused")
	// ErrSessionPaused indicates the operation is disallowed while paused.
	ErrSessionPaused = errors.New("session is paused")
	// ErrSessionFinalized indicates Reattach was pointed at a closed session.
	ErrSessionFinalized = errors.New("session is already finalized")
)

// PersistenceError wraps a storage failure surfaced during a lifecycle
// operation. When it is returned, the in-memory session state is exactly
// what it was before the failed operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
