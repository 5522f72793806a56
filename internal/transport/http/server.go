package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/config"
	"github.com/vovakirdan/wirechat-hub/internal/core"
)

// NewServer builds the HTTP server: health and info endpoints, read-only
// REST views of the registries and the /ws endpoint.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter mounts /ws on a plain mux in front of the gin engine: the
// upgrade has to hijack the raw ResponseWriter, which gin's wrapper refuses.
func NewRouter(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, WSOptions{
		ClientBuffer:       cfg.ClientBuffer,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		MaxMessageBytes:    cfg.MaxMessageBytes,
	}, logger))
	mux.Handle("/", newEngine(hub, cfg, logger))
	return mux
}

// newEngine serves the health, info and REST routes.
func newEngine(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(cfg.ServiceName, time.Now(), logger)
	router.GET("/", api.Info)
	router.GET("/health", api.Health)

	rooms := NewRoomHandlers(hub.Rooms(), logger)
	users := NewUserHandlers(hub.Users(), logger)
	group := router.Group("/api")
	{
		group.GET("/rooms", rooms.ListRooms)
		group.GET("/users/online", users.ListOnline)
	}

	return router
}
