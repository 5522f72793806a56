package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/config"
	"github.com/vovakirdan/wirechat-hub/internal/core"
)

// wireMsg is an outbound envelope with the payload left raw.
type wireMsg struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Ack   uint64          `json:"ack"`
	Data  json.RawMessage `json:"data"`
}

func startTestServer(t *testing.T, tweak ...func(*config.Config)) (*httptest.Server, *core.Hub) {
	t.Helper()

	cfg := config.Default()
	for _, fn := range tweak {
		fn(&cfg)
	}
	logger := zerolog.Nop()

	hub := core.NewHub(core.HubConfig{}, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	ts := httptest.NewServer(NewRouter(hub, &cfg, &logger))
	t.Cleanup(ts.Close)
	return ts, hub
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, ack uint64, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	in := map[string]any{"type": typ, "ack": ack, "data": json.RawMessage(payload)}
	if err := wsjson.Write(ctx, conn, in); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readUntil reads outbound messages until match returns true, discarding the rest.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(wireMsg) bool) wireMsg {
	t.Helper()

	for {
		var msg wireMsg
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read outbound: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func mustAck(t *testing.T, ctx context.Context, conn *websocket.Conn, ack uint64, dst any) {
	t.Helper()

	msg := readUntil(t, ctx, conn, func(m wireMsg) bool { return m.Type == "ack" && m.Ack == ack })
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		t.Fatalf("decode ack %d: %v", ack, err)
	}
}

func mustEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, dst any) {
	t.Helper()

	msg := readUntil(t, ctx, conn, func(m wireMsg) bool { return m.Type == "event" && m.Event == name })
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
}
