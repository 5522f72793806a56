package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-hub/internal/proto"
)

// outbound mirrors proto.Outbound with the payload left raw for decoding.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Ack   uint64          `json:"ack"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to log in with")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var ack uint64
	request := func(typ string, data any) (json.RawMessage, error) {
		ack++
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Ack: ack, Data: payload}); err != nil {
			return nil, fmt.Errorf("send %s: %w", typ, err)
		}
		for {
			var out outbound
			if err := wsjson.Read(ctx, conn, &out); err != nil {
				return nil, fmt.Errorf("read: %w", err)
			}
			if out.Type == proto.OutboundTypeEvent {
				fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
				continue
			}
			if out.Ack != ack {
				continue
			}
			var status proto.Status
			if err := json.Unmarshal(out.Data, &status); err != nil {
				return nil, fmt.Errorf("decode %s ack: %w", typ, err)
			}
			if !status.Success {
				return nil, fmt.Errorf("%s rejected: %s (%s)", typ, status.Error, status.Code)
			}
			fmt.Printf("ack %s: %s\n", typ, out.Data)
			return out.Data, nil
		}
	}

	if _, err := request(proto.InboundLogin, proto.LoginData{Username: *user}); err != nil {
		return err
	}
	if _, err := request(proto.InboundRoomJoin, proto.RoomData{RoomName: *room}); err != nil {
		return err
	}
	raw, err := request(proto.InboundMessageRoom, proto.RoomMessageData{RoomName: *room, Content: *text})
	if err != nil {
		return err
	}
	var sent proto.SendResponse
	if err := json.Unmarshal(raw, &sent); err != nil {
		return fmt.Errorf("decode send reply: %w", err)
	}

	// Wait for our own message to come back through the room broadcast.
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if out.Event != proto.EventMessageReceived {
			continue
		}
		var msg proto.RoomMessage
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			return fmt.Errorf("unmarshal message: %w", err)
		}
		if msg.ID == sent.MessageID {
			fmt.Printf("message: room=%s user=%s content=%q ts=%s\n", msg.RoomName, msg.Username, msg.Content, msg.Timestamp.Format(time.RFC3339))
			return nil
		}
	}
}
