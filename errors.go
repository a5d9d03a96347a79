package tilecs

import (
	"errors"
)

var (
	// ErrInvalidEntity is returned when an entity handle is null or stale.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrEntityLimitReached is returned when the entity id space is exhausted.
	ErrEntityLimitReached = errors.New("entity limit reached")
)
