// Package uuid wraps github.com/google/uuid and makes version 7 (time-ordered) the default.
package uuid

import (
	"github.com/google/uuid"
)

// UUID is an alias of github.com/google/uuid.UUID.
type UUID = uuid.UUID

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// New returns a new UUIDv7. Panics if generation fails.
func New() UUID {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return uuidv7
}
