package record

import "errors"

var (
	// ErrSessionNotFound reports an operation against a session id that
	// does not exist in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrActiveSessionExists reports an attempt to start a second
	// active session for the same owner.
	ErrActiveSessionExists = errors.New("owner already has an active session")

	// ErrSessionCompleted reports an operation that is only legal on an
	// active session, including a repeated EndSession call.
	ErrSessionCompleted = errors.New("session already completed")
)
