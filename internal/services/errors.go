package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for room operations.
var (
	// ErrRoomNotFound is returned when a room does not exist or has ended.
	ErrRoomNotFound = errors.New("room not found or inactive")

	// ErrUnauthorized is returned when a non-creator attempts a creator-only action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotMember is returned when the caller is not an active member of the room.
	ErrNotMember = errors.New("not a member of this room")

	// ErrPersistence wraps every failure of the record store.
	ErrPersistence = errors.New("persistence failure")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
