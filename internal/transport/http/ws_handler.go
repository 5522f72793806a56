package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/wirechat-hub/internal/core"
	"github.com/vovakirdan/wirechat-hub/internal/proto"
	"github.com/vovakirdan/wirechat-hub/internal/utils"
)

// WSOptions tunes per-connection behaviour of the WebSocket handler.
type WSOptions struct {
	ClientBuffer       int
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxMessageBytes    int64
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub  *core.Hub
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), h.opts.ClientBuffer)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)
	h.log.Debug().Str("conn_id", client.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.opts.RateLimitPerSecond, h.opts.RateLimitBurst)

	// Whichever loop stops first takes the other one down with it.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return h.readLoop(gctx, conn, client, limiter)
	})
	g.Go(func() error {
		defer cancel()
		return h.writeLoop(gctx, conn, client)
	})

	status, reason, err := closeStatus(g.Wait())
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
	h.log.Debug().Str("conn_id", client.ID).Msg("ws disconnected")
}

// closeStatus maps the loop error to the close frame we answer with. The
// returned error is nil for ordinary disconnects.
func closeStatus(err error) (websocket.StatusCode, string, error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing", nil
	}
	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return s, "closing", nil
	case -1:
		return websocket.StatusInternalError, "connection error", err
	default:
		return s, "connection error", err
	}
}

// reply writes an ack straight to the socket, bypassing the hub.
func reply(ctx context.Context, conn *websocket.Conn, ack uint64, err *core.CoreError) error {
	return wsjson.Write(ctx, conn, errorAck(ack, err))
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rate.Limiter) error {
	for {
		// Read raw frames: wsjson.Read closes the connection on bad JSON,
		// malformed input only earns a bad_request ack here.
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("malformed inbound")
			if err := reply(ctx, conn, 0, badRequest("malformed message")); err != nil {
				return err
			}
			continue
		}

		if !allow(limiter) {
			h.log.Debug().Str("conn_id", client.ID).Str("event", inbound.Type).Msg("inbound rate limited")
			if inbound.Ack != 0 {
				tooFast := &core.CoreError{Code: errCodeRateLimited, Message: "too many messages"}
				if err := reply(ctx, conn, inbound.Ack, tooFast); err != nil {
					return err
				}
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.log.Debug().Str("conn_id", client.ID).Str("event", inbound.Type).Str("code", protoErr.Code).Msg("inbound rejected")
			if err := reply(ctx, conn, inbound.Ack, protoErr); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
