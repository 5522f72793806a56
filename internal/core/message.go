package core

import (
	"time"

	"github.com/vovakirdan/wirechat-hub/internal/utils"
)

const (
	// DefaultHistoryLimit caps stored room and conversation history.
	DefaultHistoryLimit = 100
	// DefaultFetchLimit caps history returned on join and conversation fetch.
	DefaultFetchLimit = 50
)

// RoomMessage is a chat message posted to a room. Immutable once created.
type RoomMessage struct {
	ID        string
	Room      string
	Username  string
	Content   string
	Timestamp time.Time
}

// PrivateMessage is a direct message between two users.
type PrivateMessage struct {
	ID        string
	From      string
	To        string
	Content   string
	Timestamp time.Time
	Delivered bool
}

// IDFunc produces message identifiers.
type IDFunc func() string

// Clock returns the current time.
type Clock func() time.Time

func defaultIDs(fn IDFunc) IDFunc {
	if fn != nil {
		return fn
	}
	return utils.NewMessageID
}

func defaultClock(fn Clock) Clock {
	if fn != nil {
		return fn
	}
	return func() time.Time { return time.Now().UTC() }
}
