package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-hub/internal/proto"
)

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Ack   uint64          `json:"ack"`
	Data  json.RawMessage `json:"data"`
}

type chat struct {
	conn *websocket.Conn
	ack  atomic.Uint64
	room atomic.Value // string
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &chat{conn: conn}
	c.room.Store(*room)

	if err := c.send(ctx, proto.InboundLogin, proto.LoginData{Username: *user}); err != nil {
		return err
	}
	if err := c.send(ctx, proto.InboundRoomJoin, proto.RoomData{RoomName: *room}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Commands: /join <room>, /create <room> [display name],")
	fmt.Println("/pm <user> <text>, /history <user>, /dms, /rooms, /who. Ctrl+C to exit.")

	go func() {
		defer cancel()
		c.readLoop(ctx)
	}()

	c.writeLoop(ctx)
	return nil
}

func (c *chat) send(ctx context.Context, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	in := proto.Inbound{Type: typ, Ack: c.ack.Add(1), Data: payload}
	if err := wsjson.Write(ctx, c.conn, in); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func (c *chat) currentRoom() string {
	room, _ := c.room.Load().(string)
	return room
}

func (c *chat) readLoop(ctx context.Context) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, c.conn, &out); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Type == proto.OutboundTypeAck {
			c.printAck(out)
			continue
		}
		c.printEvent(out)
	}
}

func (c *chat) printAck(out outbound) {
	var status proto.Status
	if err := json.Unmarshal(out.Data, &status); err != nil {
		log.Printf("decode ack: %v", err)
		return
	}
	if !status.Success {
		fmt.Printf("! %s (%s)\n", status.Error, status.Code)
		return
	}

	var join proto.JoinRoomResponse
	if json.Unmarshal(out.Data, &join) == nil && join.RoomName != "" {
		c.room.Store(join.RoomName)
		fmt.Printf("== %s: %d members (%s)\n", join.RoomName, len(join.Users), strings.Join(join.Users, ", "))
		for _, m := range join.Messages {
			fmt.Printf("[%s] %s: %s\n", m.RoomName, m.Username, m.Content)
		}
		return
	}

	var rooms proto.RoomsResponse
	if json.Unmarshal(out.Data, &rooms) == nil && rooms.Rooms != nil {
		for _, r := range rooms.Rooms {
			fmt.Printf("  %-20s %-24s %d online\n", r.Name, r.DisplayName, r.UserCount)
		}
		return
	}

	var users proto.OnlineUsersResponse
	if json.Unmarshal(out.Data, &users) == nil && users.Users != nil {
		for _, u := range users.Users {
			fmt.Printf("  %s (in %s)\n", u.Username, u.CurrentRoom)
		}
		return
	}

	var conv proto.ConversationResponse
	if json.Unmarshal(out.Data, &conv) == nil && conv.Messages != nil {
		for _, m := range conv.Messages {
			fmt.Printf("  %s -> %s: %s\n", m.From, m.To, m.Content)
		}
		return
	}

	var convs proto.ConversationsResponse
	if json.Unmarshal(out.Data, &convs) == nil && convs.Conversations != nil {
		for _, cv := range convs.Conversations {
			fmt.Printf("  %s: %q\n", cv.Username, cv.LastMessage)
		}
	}
}

func (c *chat) printEvent(out outbound) {
	switch out.Event {
	case proto.EventMessageReceived:
		var msg proto.RoomMessage
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			log.Printf("unmarshal message: %v", err)
			return
		}
		fmt.Printf("[%s] %s: %s\n", msg.RoomName, msg.Username, msg.Content)
	case proto.EventPrivateReceived:
		var msg proto.PrivateMessage
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			log.Printf("unmarshal private message: %v", err)
			return
		}
		fmt.Printf("[pm] %s: %s\n", msg.From, msg.Content)
	case proto.EventUserJoined, proto.EventUserLeft:
		var evt proto.UserRoom
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			log.Printf("unmarshal %s: %v", out.Event, err)
			return
		}
		verb := "joined"
		if out.Event == proto.EventUserLeft {
			verb = "left"
		}
		fmt.Printf("[room %s] %s %s\n", evt.RoomName, evt.Username, verb)
	case proto.EventUserOnline, proto.EventUserOffline:
		var evt proto.UserPresence
		if err := json.Unmarshal(out.Data, &evt); err == nil {
			fmt.Printf("* %s is now %s\n", evt.Username, strings.TrimPrefix(out.Event, "user:"))
		}
	case proto.EventRoomCreated:
		var info proto.RoomInfo
		if err := json.Unmarshal(out.Data, &info); err == nil {
			fmt.Printf("* room %s (%s) created\n", info.Name, info.DisplayName)
		}
	case proto.EventRoomsUpdate, proto.EventUserTyping, proto.EventUserStoppedTyping,
		proto.EventPrivateTyping, proto.EventPrivateStoppedTyping:
		// too chatty for a terminal
	default:
		fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
	}
}

func (c *chat) writeLoop(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := c.dispatch(ctx, text); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func (c *chat) dispatch(ctx context.Context, text string) error {
	if !strings.HasPrefix(text, "/") {
		return c.send(ctx, proto.InboundMessageRoom, proto.RoomMessageData{RoomName: c.currentRoom(), Content: text})
	}

	cmd, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/join":
		return c.send(ctx, proto.InboundRoomJoin, proto.RoomData{RoomName: rest})
	case "/create":
		name, display, _ := strings.Cut(rest, " ")
		return c.send(ctx, proto.InboundRoomCreate, proto.CreateRoomData{RoomName: name, DisplayName: strings.TrimSpace(display)})
	case "/pm":
		to, body, _ := strings.Cut(rest, " ")
		return c.send(ctx, proto.InboundMessagePrivate, proto.PrivateMessageData{RecipientUsername: to, Content: body})
	case "/history":
		return c.send(ctx, proto.InboundConversationGet, proto.ConversationData{Username: rest})
	case "/dms":
		return c.send(ctx, proto.InboundConversationsList, nil)
	case "/rooms":
		return c.send(ctx, proto.InboundRoomsList, nil)
	case "/who":
		return c.send(ctx, proto.InboundUsersOnline, nil)
	default:
		fmt.Printf("unknown command %s\n", cmd)
		return nil
	}
}
