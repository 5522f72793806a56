package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-hub/internal/config"
	"github.com/vovakirdan/wirechat-hub/internal/core"
	transporthttp "github.com/vovakirdan/wirechat-hub/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	users := core.NewUserRegistry(cfg.DefaultRoom, nil)
	rooms := core.NewRoomRegistry(users, core.RoomOptions{
		DefaultRoom:        cfg.DefaultRoom,
		DefaultDisplayName: cfg.DefaultRoomDisplayName,
		HistoryLimit:       cfg.RoomHistoryLimit,
		JoinHistoryLimit:   cfg.JoinHistoryLimit,
	})
	convs := core.NewConversationStore(core.ConversationOptions{
		HistoryLimit: cfg.ConversationHistoryLimit,
	})

	hubLogger := logger.With().Str("component", "hub").Logger()
	hub := core.NewHub(core.HubConfig{
		Users:                  users,
		Rooms:                  rooms,
		Conversations:          convs,
		ConversationFetchLimit: cfg.ConversationFetchLimit,
	}, &hubLogger)

	httpLogger := logger.With().Str("component", "http").Logger()
	server := transporthttp.NewServer(hub, cfg, &httpLogger)

	logger.Info().
		Str("default_room", cfg.DefaultRoom).
		Int("room_history_limit", cfg.RoomHistoryLimit).
		Int("conversation_history_limit", cfg.ConversationHistoryLimit).
		Msg("registries initialized")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled
// or the server fails. The hub is stopped only after the server shut down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	stopHub()
	<-hubDone
	a.log.Info().Msg("hub stopped")
	return err
}
