package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/core"
)

// RoomHandlers provides read-only HTTP views of the room registry.
type RoomHandlers struct {
	rooms *core.RoomRegistry
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(rooms *core.RoomRegistry, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		rooms: rooms,
		log:   logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	UserCount   int    `json:"userCount"`
	CreatedAt   string `json:"createdAt"`
}

// ListRooms lists rooms in creation order with live user counts.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms := h.rooms.List()

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, RoomResponse{
			Name:        room.Name,
			DisplayName: room.DisplayName,
			UserCount:   room.UserCount,
			CreatedAt:   room.CreatedAt.Format(time.RFC3339),
		})
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}
