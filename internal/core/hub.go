package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Default room created at startup.
const (
	DefaultRoom            = "general"
	DefaultRoomDisplayName = "General"
)

// HubConfig wires the registries a Hub orchestrates. Nil registries are
// replaced with in-memory defaults.
type HubConfig struct {
	Users                  *UserRegistry
	Rooms                  *RoomRegistry
	Conversations          *ConversationStore
	ConversationFetchLimit int
}

type inbound struct {
	client *Client
	cmd    *Command
}

// audience selects the clients a publication is fanned out to. The zero
// value addresses every connected client.
type audience struct {
	room   string
	connID string
	except string
}

type publication struct {
	to audience
	ev *Event
}

func toAll(ev *Event) publication { return publication{ev: ev} }

func toRoom(room string, ev *Event) publication {
	return publication{to: audience{room: room}, ev: ev}
}

func toRoomExcept(room, connID string, ev *Event) publication {
	return publication{to: audience{room: room, except: connID}, ev: ev}
}

func toConn(connID string, ev *Event) publication {
	return publication{to: audience{connID: connID}, ev: ev}
}

// Hub coordinates connections with the registries. All commands, client
// registrations and disconnects are applied one at a time by Run, so every
// multi-step transition and every fan-out snapshot is taken without
// interleaving.
type Hub struct {
	users      *UserRegistry
	rooms      *RoomRegistry
	convs      *ConversationStore
	fetchLimit int
	log        *zerolog.Logger

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}
}

// NewHub creates a new chat hub instance.
func NewHub(cfg HubConfig, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.Users == nil {
		cfg.Users = NewUserRegistry(DefaultRoom, nil)
	}
	if cfg.Rooms == nil {
		cfg.Rooms = NewRoomRegistry(cfg.Users, RoomOptions{
			DefaultRoom:        DefaultRoom,
			DefaultDisplayName: DefaultRoomDisplayName,
		})
	}
	if cfg.Conversations == nil {
		cfg.Conversations = NewConversationStore(ConversationOptions{})
	}
	if cfg.ConversationFetchLimit <= 0 {
		cfg.ConversationFetchLimit = DefaultFetchLimit
	}

	return &Hub{
		users:      cfg.Users,
		rooms:      cfg.Rooms,
		convs:      cfg.Conversations,
		fetchLimit: cfg.ConversationFetchLimit,
		log:        logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
	}
}

// Users returns the session registry.
func (h *Hub) Users() *UserRegistry { return h.users }

// Rooms returns the room registry.
func (h *Hub) Rooms() *RoomRegistry { return h.rooms }

// Conversations returns the private-message store.
func (h *Hub) Conversations() *ConversationStore { return h.convs }

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			go h.forward(c)
			h.log.Debug().Str("conn_id", c.ID).Msg("client connected")
		case c := <-h.unregister:
			h.disconnect(c)
		case in := <-h.inbound:
			if h.clients[in.client.ID] != in.client {
				continue
			}
			h.dispatch(in.client, in.cmd)
		}
	}
}

// RegisterClient attaches a client to the hub in the anonymous state.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient disconnects a client. Safe to call more than once and
// for clients that never logged in.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// forward feeds one client's commands into the hub loop in order.
func (h *Hub) forward(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbound <- inbound{client: c, cmd: cmd}:
			case <-c.quit:
				return
			case <-h.done:
				return
			}
		case <-c.quit:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.quit)
		close(c.Events)
	}
}

// disconnect releases the session and room membership of c exactly once.
func (h *Hub) disconnect(c *Client) {
	if h.clients[c.ID] != c {
		return
	}
	delete(h.clients, c.ID)
	close(c.quit)
	close(c.Events)

	room, remaining, inRoom := h.rooms.Leave(c.ID)
	sess, ok := h.users.Logout(c.ID)
	if !ok {
		h.log.Debug().Str("conn_id", c.ID).Msg("anonymous client disconnected")
		return
	}

	h.publish(toAll(&Event{Kind: EventUserOffline, User: sess.Username}))
	if inRoom {
		h.publish(toRoom(room, &Event{Kind: EventUserLeft, Room: room, User: sess.Username}))
		h.publish(toAll(&Event{Kind: EventRoomsUpdate, Room: room, Count: remaining}))
	}
	h.log.Info().Str("conn_id", c.ID).Str("user", sess.Username).Msg("user disconnected")
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	if cmd.Kind.Relay() {
		h.relay(c, cmd)
		return
	}

	reply, pubs := h.handle(c, cmd)
	reply.Ack = cmd.Ack
	reply.Command = cmd.Kind
	if reply.Err != nil {
		h.log.Debug().
			Str("conn_id", c.ID).
			Str("event", cmd.Kind.String()).
			Str("code", reply.Err.Code).
			Msg("command rejected")
	}

	h.deliver(c, &Event{Kind: EventReply, Reply: reply})
	for _, p := range pubs {
		h.publish(p)
	}
}

func (h *Hub) handle(c *Client, cmd *Command) (*Reply, []publication) {
	switch cmd.Kind {
	case CommandLogin:
		return h.handleLogin(c, cmd)
	case CommandListRooms:
		return &Reply{Rooms: h.rooms.List()}, nil
	case CommandListOnline:
		return &Reply{Online: h.users.Online()}, nil
	}

	sess, ok := h.users.ByConnection(c.ID)
	if !ok {
		return failed(ErrSessionNotFound), nil
	}

	switch cmd.Kind {
	case CommandCreateRoom:
		return h.handleCreateRoom(sess, cmd)
	case CommandJoinRoom:
		return h.handleJoinRoom(sess, cmd)
	case CommandSendRoomMessage:
		return h.handleRoomMessage(sess, cmd)
	case CommandSendPrivateMessage:
		return h.handlePrivateMessage(sess, cmd), nil
	case CommandGetConversation:
		other := strings.TrimSpace(cmd.Username)
		if other == "" {
			return failed(invalidInput("username is required")), nil
		}
		return &Reply{Private: h.convs.History(sess.Username, other, h.fetchLimit)}, nil
	case CommandListConversations:
		return &Reply{Conversations: h.convs.List(sess.Username)}, nil
	default:
		return failed(coreError(ErrCodeBadRequest, "unknown command")), nil
	}
}

func (h *Hub) handleLogin(c *Client, cmd *Command) (*Reply, []publication) {
	sess, err := h.users.Login(c.ID, cmd.Username)
	if err != nil {
		return failed(err), nil
	}
	h.log.Info().Str("conn_id", c.ID).Str("user", sess.Username).Msg("user logged in")

	room := sess.CurrentRoom
	reply := &Reply{Session: sess, OnlineUsers: h.users.Usernames()}
	return reply, []publication{
		toAll(&Event{Kind: EventUserOnline, User: sess.Username, Session: sess}),
		toRoom(room, &Event{Kind: EventUserJoined, Room: room, User: sess.Username}),
		toAll(&Event{Kind: EventRoomsUpdate, Room: room, Count: len(h.users.UsersInRoom(room))}),
	}
}

func (h *Hub) handleCreateRoom(sess Session, cmd *Command) (*Reply, []publication) {
	summary, err := h.rooms.Create(cmd.Room, cmd.DisplayName)
	if err != nil {
		return failed(err), nil
	}
	h.log.Info().Str("user", sess.Username).Str("room", summary.Name).Msg("room created")

	return &Reply{Room: summary}, []publication{
		toAll(&Event{Kind: EventRoomCreated, Room: summary.Name, Summary: summary}),
	}
}

func (h *Hub) handleJoinRoom(sess Session, cmd *Command) (*Reply, []publication) {
	res, err := h.rooms.Join(sess.ConnID, cmd.Room)
	if err != nil {
		return failed(err), nil
	}

	reply := &Reply{Room: res.Room, Messages: res.Messages, Members: res.Members}
	if res.Previous == "" {
		// Re-joining the current room only refreshes history and members.
		return reply, nil
	}

	name := res.Room.Name
	h.log.Debug().Str("user", sess.Username).Str("from", res.Previous).Str("room", name).Msg("room switched")
	return reply, []publication{
		toRoom(res.Previous, &Event{Kind: EventUserLeft, Room: res.Previous, User: sess.Username}),
		toRoom(name, &Event{Kind: EventUserJoined, Room: name, User: sess.Username}),
		toAll(&Event{Kind: EventRoomsUpdate, Room: res.Previous, Count: res.PreviousCount}),
		toAll(&Event{Kind: EventRoomsUpdate, Room: name, Count: res.Room.UserCount}),
	}
}

func (h *Hub) handleRoomMessage(sess Session, cmd *Command) (*Reply, []publication) {
	room := cmd.Room
	if room == "" {
		room = sess.CurrentRoom
	}
	msg, err := h.rooms.Post(room, sess.Username, cmd.Content)
	if err != nil {
		return failed(err), nil
	}
	return &Reply{MessageID: msg.ID}, []publication{
		toRoom(room, &Event{Kind: EventRoomMessage, Room: room, User: sess.Username, Message: msg}),
	}
}

// handlePrivateMessage stores and delivers a direct message. The recipient
// must be online; nothing is stored otherwise.
func (h *Hub) handlePrivateMessage(sess Session, cmd *Command) *Reply {
	name := strings.TrimSpace(cmd.Recipient)
	if name == "" {
		return failed(invalidInput("recipient is required"))
	}
	if err := validateContent(cmd.Content); err != nil {
		return failed(err)
	}
	recipient, ok := h.users.ByUsername(name)
	if !ok {
		return failed(ErrRecipientNotFound)
	}

	msg, err := h.convs.Append(sess.Username, recipient.Username, cmd.Content)
	if err != nil {
		return failed(err)
	}

	out := msg
	out.Delivered = true
	delivered := h.deliver(h.clients[recipient.ConnID], &Event{
		Kind:    EventPrivateMessage,
		User:    sess.Username,
		Private: out,
	})
	if delivered {
		h.convs.MarkDelivered(msg.From, msg.To, msg.ID)
	}
	return &Reply{MessageID: msg.ID, Delivered: delivered}
}

// relay forwards typing notices. Nothing is stored and no reply is sent; a
// stale indicator is cleared by the client's own timeout or by disconnect.
func (h *Hub) relay(c *Client, cmd *Command) {
	sess, ok := h.users.ByConnection(c.ID)
	if !ok {
		h.log.Debug().Str("conn_id", c.ID).Str("event", cmd.Kind.String()).Msg("relay from anonymous client dropped")
		return
	}

	switch cmd.Kind {
	case CommandTypingStart, CommandTypingStop:
		room := cmd.Room
		if room == "" {
			room = sess.CurrentRoom
		}
		kind := EventUserTyping
		if cmd.Kind == CommandTypingStop {
			kind = EventUserStoppedTyping
		}
		h.publish(toRoomExcept(room, c.ID, &Event{Kind: kind, Room: room, User: sess.Username}))
	case CommandPrivateTypingStart, CommandPrivateTypingStop:
		recipient, ok := h.users.ByUsername(strings.TrimSpace(cmd.Recipient))
		if !ok {
			return
		}
		kind := EventPrivateTyping
		if cmd.Kind == CommandPrivateTypingStop {
			kind = EventPrivateStoppedTyping
		}
		h.publish(toConn(recipient.ConnID, &Event{Kind: kind, User: sess.Username}))
	}
}

func (h *Hub) publish(p publication) {
	switch {
	case p.to.connID != "":
		h.deliver(h.clients[p.to.connID], p.ev)
	case p.to.room != "":
		for _, s := range h.users.UsersInRoom(p.to.room) {
			if s.ConnID == p.to.except {
				continue
			}
			h.deliver(h.clients[s.ConnID], p.ev)
		}
	default:
		for _, c := range h.clients {
			h.deliver(c, p.ev)
		}
	}
}

// deliver is a non-blocking send; slow consumers lose the event.
func (h *Hub) deliver(c *Client, ev *Event) bool {
	if c == nil {
		return false
	}
	if !c.send(ev) {
		h.log.Warn().Str("conn_id", c.ID).Int("kind", int(ev.Kind)).Msg("client buffer full, event dropped")
		return false
	}
	return true
}

func failed(err error) *Reply {
	return &Reply{Err: AsCoreError(err)}
}
