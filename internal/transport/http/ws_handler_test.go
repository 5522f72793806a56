package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-hub/internal/config"
	"github.com/vovakirdan/wirechat-hub/internal/core"
	"github.com/vovakirdan/wirechat-hub/internal/proto"
)

func login(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, ack uint64) proto.LoginResponse {
	t.Helper()

	send(t, ctx, conn, proto.InboundLogin, ack, proto.LoginData{Username: name})
	var resp proto.LoginResponse
	mustAck(t, ctx, conn, ack, &resp)
	if !resp.Success {
		t.Fatalf("login %s failed: %+v", name, resp.Status)
	}
	return resp
}

func TestHealthAndInfoEndpoints(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health HealthResponse
	err = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" || health.Timestamp.IsZero() || health.Uptime < 0 {
		t.Fatalf("unexpected health response: %d %+v", resp.StatusCode, health)
	}

	resp, err = ts.Client().Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("info request failed: %v", err)
	}
	defer resp.Body.Close()
	var info InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Name != "wirechat-hub" || info.Status != "running" || info.Protocol != proto.ProtocolVersion {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestServerUpgradesWebSocket(t *testing.T) {
	cfg := config.Default()
	logger := zerolog.Nop()
	hub := core.NewHub(core.HubConfig{}, &logger)
	hubCtx, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)
	go hub.Run(hubCtx)

	ts := httptest.NewServer(NewServer(hub, &cfg, &logger).Handler)
	t.Cleanup(ts.Close)

	ctx := testContext(t)
	conn := dial(t, ctx, ts)
	send(t, ctx, conn, proto.InboundRoomsList, 7, nil)
	var rooms proto.RoomsResponse
	mustAck(t, ctx, conn, 7, &rooms)
	if !rooms.Success || len(rooms.Rooms) != 1 {
		t.Fatalf("unexpected rooms:list ack: %+v", rooms)
	}

	// REST routes stay on gin behind the same handler.
	resp, err := ts.Client().Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("rooms request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/rooms = %d", resp.StatusCode)
	}
}

func TestWebSocketLoginAndRoomMessage(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)

	resp := login(t, ctx, alice, "alice", 1)
	if resp.User == nil || resp.User.Username != "alice" || resp.User.CurrentRoom != "general" {
		t.Fatalf("unexpected login reply: %+v", resp)
	}
	login(t, ctx, bob, "bob", 1)

	var online proto.UserPresence
	readUntil(t, ctx, alice, func(m wireMsg) bool {
		if m.Event != proto.EventUserOnline {
			return false
		}
		return json.Unmarshal(m.Data, &online) == nil && online.Username == "bob"
	})
	if online.JoinedAt == nil {
		t.Fatalf("user:online should carry joinedAt: %+v", online)
	}

	send(t, ctx, alice, proto.InboundMessageRoom, 2, proto.RoomMessageData{RoomName: "general", Content: "hi there"})

	// The sender sees its ack before its own broadcast.
	first := readUntil(t, ctx, alice, func(m wireMsg) bool {
		return (m.Type == "ack" && m.Ack == 2) || m.Event == proto.EventMessageReceived
	})
	if first.Type != "ack" {
		t.Fatalf("expected ack before broadcast, got %+v", first)
	}
	var sent proto.SendResponse
	if err := json.Unmarshal(first.Data, &sent); err != nil {
		t.Fatalf("decode send reply: %v", err)
	}
	if !sent.Success || sent.MessageID == "" {
		t.Fatalf("unexpected send reply: %+v", sent)
	}

	var msg proto.RoomMessage
	mustEvent(t, ctx, bob, proto.EventMessageReceived, &msg)
	if msg.ID != sent.MessageID || msg.Username != "alice" || msg.Content != "hi there" || msg.RoomName != "general" {
		t.Fatalf("unexpected message payload: %+v", msg)
	}
}

func TestWebSocketDuplicateLogin(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)

	first := dial(t, ctx, ts)
	second := dial(t, ctx, ts)
	login(t, ctx, first, "alice", 1)

	send(t, ctx, second, proto.InboundLoginAlias, 7, proto.LoginData{Username: " alice "})
	var resp proto.LoginResponse
	mustAck(t, ctx, second, 7, &resp)
	if resp.Success || resp.Code != "name_taken" || resp.User != nil {
		t.Fatalf("expected name_taken, got %+v", resp)
	}
}

func TestWebSocketBadRequestKeepsConnectionOpen(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)
	conn := dial(t, ctx, ts)

	send(t, ctx, conn, "nonsense", 1, map[string]string{})
	var status proto.Status
	mustAck(t, ctx, conn, 1, &status)
	if status.Success || status.Code != "bad_request" {
		t.Fatalf("expected bad_request for unknown type, got %+v", status)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	mustAck(t, ctx, conn, 0, &status)
	if status.Success || status.Code != "bad_request" {
		t.Fatalf("expected bad_request for malformed JSON, got %+v", status)
	}

	send(t, ctx, conn, proto.InboundRoomJoin, 2, map[string]int{"roomName": 5})
	mustAck(t, ctx, conn, 2, &status)
	if status.Code != "bad_request" {
		t.Fatalf("expected bad_request for mistyped data, got %+v", status)
	}

	login(t, ctx, conn, "alice", 3)
}

func TestWebSocketRequiresLogin(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)
	conn := dial(t, ctx, ts)

	send(t, ctx, conn, proto.InboundRoomJoin, 1, proto.RoomData{RoomName: "general"})
	var status proto.Status
	mustAck(t, ctx, conn, 1, &status)
	if status.Success || status.Code != "session_not_found" {
		t.Fatalf("expected session_not_found, got %+v", status)
	}

	send(t, ctx, conn, proto.InboundRoomsList, 2, nil)
	var rooms proto.RoomsResponse
	mustAck(t, ctx, conn, 2, &rooms)
	if !rooms.Success || len(rooms.Rooms) != 1 || rooms.Rooms[0].Name != "general" {
		t.Fatalf("anonymous rooms:list failed: %+v", rooms)
	}
}

func TestWebSocketCreateAndJoinRoom(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)
	login(t, ctx, alice, "alice", 1)
	login(t, ctx, bob, "bob", 1)

	send(t, ctx, alice, proto.InboundRoomCreate, 2, proto.CreateRoomData{RoomName: "dev", DisplayName: "Developers"})
	var created proto.CreateRoomResponse
	mustAck(t, ctx, alice, 2, &created)
	if !created.Success || created.Room == nil || created.Room.Name != "dev" || created.Room.DisplayName != "Developers" {
		t.Fatalf("unexpected create reply: %+v", created)
	}

	var info proto.RoomInfo
	mustEvent(t, ctx, bob, proto.EventRoomCreated, &info)
	if info.Name != "dev" || info.UserCount != 0 {
		t.Fatalf("unexpected room:created payload: %+v", info)
	}

	send(t, ctx, bob, proto.InboundRoomJoin, 2, proto.RoomData{RoomName: "dev"})
	var joined proto.JoinRoomResponse
	mustAck(t, ctx, bob, 2, &joined)
	if !joined.Success || joined.RoomName != "dev" || len(joined.Users) != 1 || joined.Users[0] != "bob" {
		t.Fatalf("unexpected join reply: %+v", joined)
	}
	if joined.Messages == nil {
		t.Fatal("join reply should carry an empty message list, not null")
	}

	var left proto.UserRoom
	mustEvent(t, ctx, alice, proto.EventUserLeft, &left)
	if left.Username != "bob" || left.RoomName != "general" {
		t.Fatalf("unexpected user:left payload: %+v", left)
	}
	var update proto.RoomCount
	mustEvent(t, ctx, alice, proto.EventRoomsUpdate, &update)
	if update.RoomName != "general" || update.UserCount != 1 {
		t.Fatalf("unexpected rooms:update payload: %+v", update)
	}

	send(t, ctx, alice, proto.InboundRoomCreate, 3, proto.CreateRoomData{RoomName: "dev"})
	var dup proto.CreateRoomResponse
	mustAck(t, ctx, alice, 3, &dup)
	if dup.Success || dup.Code != "room_exists" {
		t.Fatalf("expected room_exists, got %+v", dup)
	}
}

func TestWebSocketPrivateMessages(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)
	login(t, ctx, alice, "alice", 1)
	login(t, ctx, bob, "bob", 1)

	send(t, ctx, alice, proto.InboundMessagePrivate, 2, proto.PrivateMessageData{RecipientUsername: "bob", Content: "psst"})
	var sent proto.SendResponse
	mustAck(t, ctx, alice, 2, &sent)
	if !sent.Success || sent.Delivered == nil || !*sent.Delivered {
		t.Fatalf("unexpected private send reply: %+v", sent)
	}

	var pm proto.PrivateMessage
	mustEvent(t, ctx, bob, proto.EventPrivateReceived, &pm)
	if pm.ID != sent.MessageID || pm.From != "alice" || pm.To != "bob" || !pm.Delivered {
		t.Fatalf("unexpected private payload: %+v", pm)
	}

	send(t, ctx, alice, proto.InboundMessagePrivate, 3, proto.PrivateMessageData{RecipientUsername: "carol", Content: "hello?"})
	var missing proto.SendResponse
	mustAck(t, ctx, alice, 3, &missing)
	if missing.Success || missing.Code != "recipient_not_found" {
		t.Fatalf("expected recipient_not_found, got %+v", missing)
	}

	send(t, ctx, bob, proto.InboundConversationGet, 2, proto.ConversationData{Username: "alice"})
	var conv proto.ConversationResponse
	mustAck(t, ctx, bob, 2, &conv)
	if !conv.Success || len(conv.Messages) != 1 || conv.Messages[0].Content != "psst" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	send(t, ctx, bob, proto.InboundConversationsList, 3, nil)
	var list proto.ConversationsResponse
	mustAck(t, ctx, bob, 3, &list)
	if len(list.Conversations) != 1 || list.Conversations[0].Username != "alice" || list.Conversations[0].Timestamp == nil {
		t.Fatalf("unexpected conversations: %+v", list)
	}
}

func TestWebSocketTypingRelay(t *testing.T) {
	ts, _ := startTestServer(t)
	ctx := testContext(t)

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)
	login(t, ctx, alice, "alice", 1)
	login(t, ctx, bob, "bob", 1)

	send(t, ctx, alice, proto.InboundTypingStart, 0, proto.RoomData{RoomName: "general"})
	var typing proto.Typing
	mustEvent(t, ctx, bob, proto.EventUserTyping, &typing)
	if typing.Username != "alice" || typing.RoomName != "general" {
		t.Fatalf("unexpected typing payload: %+v", typing)
	}

	send(t, ctx, bob, proto.InboundPrivateTypingStop, 0, proto.PrivateTypingData{RecipientUsername: "alice"})
	var privateTyping proto.Typing
	mustEvent(t, ctx, alice, proto.EventPrivateStoppedTyping, &privateTyping)
	if privateTyping.Username != "bob" || privateTyping.RoomName != "" {
		t.Fatalf("unexpected private typing payload: %+v", privateTyping)
	}
}

func TestWebSocketDisconnectBroadcastsOffline(t *testing.T) {
	ts, hub := startTestServer(t)
	ctx := testContext(t)

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)
	login(t, ctx, alice, "alice", 1)
	login(t, ctx, bob, "bob", 1)

	bob.Close(websocket.StatusNormalClosure, "bye")

	var offline proto.UserPresence
	mustEvent(t, ctx, alice, proto.EventUserOffline, &offline)
	if offline.Username != "bob" {
		t.Fatalf("unexpected user:offline payload: %+v", offline)
	}
	var left proto.UserRoom
	mustEvent(t, ctx, alice, proto.EventUserLeft, &left)
	if left.Username != "bob" || left.RoomName != "general" {
		t.Fatalf("unexpected user:left payload: %+v", left)
	}

	// The name is free again once the session is gone.
	if _, ok := hub.Users().ByUsername("bob"); ok {
		t.Fatal("bob should be logged out")
	}
	again := dial(t, ctx, ts)
	login(t, ctx, again, "bob", 1)
}

func TestWebSocketRateLimit(t *testing.T) {
	ts, _ := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitPerSecond = 0.001
		cfg.RateLimitBurst = 1
	})
	ctx := testContext(t)
	conn := dial(t, ctx, ts)

	send(t, ctx, conn, proto.InboundRoomsList, 1, nil)
	var ok proto.RoomsResponse
	mustAck(t, ctx, conn, 1, &ok)
	if !ok.Success {
		t.Fatalf("first request should pass: %+v", ok)
	}

	send(t, ctx, conn, proto.InboundRoomsList, 2, nil)
	var limited proto.Status
	mustAck(t, ctx, conn, 2, &limited)
	if limited.Success || limited.Code != errCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", limited)
	}
}
