package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/proto"
)

// APIHandlers serves the service-level endpoints.
type APIHandlers struct {
	name    string
	started time.Time
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. started is the
// reference point for the reported uptime.
func NewAPIHandlers(name string, started time.Time, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{name: name, started: started, log: logger}
}

// HealthResponse is the liveness payload. Uptime is in seconds.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Protocol int    `json:"protocol"`
	Status   string `json:"status"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
	})
}

// Info reports the service name and version.
// GET /
func (h *APIHandlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Name:     h.name,
		Version:  Version,
		Protocol: proto.ProtocolVersion,
		Status:   "running",
	})
}

// Version is the server build version, overridden at link time.
var Version = "dev"
