package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for connections.
func NewID() string {
	return uuid.NewString()
}

// NewMessageID returns a time-ordered identifier so message ids sort by
// creation time.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to a random id if the clock source fails.
		return uuid.NewString()
	}
	return id.String()
}
