package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/core"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	users *core.UserRegistry
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(users *core.UserRegistry, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		users: users,
		log:   logger,
	}
}

// OnlineUserResponse represents an online user in API responses.
type OnlineUserResponse struct {
	Username    string `json:"username"`
	CurrentRoom string `json:"currentRoom"`
	JoinedAt    string `json:"joinedAt"`
}

// ListOnline lists logged-in users.
// GET /api/users/online
func (h *UserHandlers) ListOnline(c *gin.Context) {
	online := h.users.Online()

	response := make([]OnlineUserResponse, 0, len(online))
	for _, s := range online {
		response = append(response, OnlineUserResponse{
			Username:    s.Username,
			CurrentRoom: s.CurrentRoom,
			JoinedAt:    s.JoinedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}
