package proto

import (
	"encoding/json"
	"time"
)

// ProtocolVersion is reported by the info endpoint.
const ProtocolVersion = 1

// Inbound is the envelope for messages coming from the client. Ack, when
// non-zero, is echoed on the reply so the client can match it to a callback.
type Inbound struct {
	Type string          `json:"type"`
	Ack  uint64          `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client. Replies use
// Type "ack"; unsolicited notifications use Type "event" with Event set.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Ack   uint64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

const (
	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
)

// Inbound event names.
const (
	InboundLogin              = "login"
	InboundLoginAlias         = "user:login"
	InboundRoomsList          = "rooms:list"
	InboundRoomCreate         = "room:create"
	InboundRoomJoin           = "room:join"
	InboundMessageRoom        = "message:room"
	InboundMessagePrivate     = "message:private"
	InboundConversationGet    = "conversation:get"
	InboundConversationsList  = "conversations:list"
	InboundUsersOnline        = "users:online"
	InboundTypingStart        = "typing:start"
	InboundTypingStop         = "typing:stop"
	InboundPrivateTypingStart = "typing:private:start"
	InboundPrivateTypingStop  = "typing:private:stop"
)

// Outbound event names.
const (
	EventUserOnline           = "user:online"
	EventUserOffline          = "user:offline"
	EventUserJoined           = "user:joined"
	EventUserLeft             = "user:left"
	EventRoomCreated          = "room:created"
	EventRoomsUpdate          = "rooms:update"
	EventMessageReceived      = "message:received"
	EventPrivateReceived      = "message:private:received"
	EventUserTyping           = "user:typing"
	EventUserStoppedTyping    = "user:stopped-typing"
	EventPrivateTyping        = "user:typing:private"
	EventPrivateStoppedTyping = "user:stopped-typing:private"
)

// Request payloads.

// LoginData claims a username.
type LoginData struct {
	Username string `json:"username"`
}

// RoomData names a room (room:join, typing).
type RoomData struct {
	RoomName string `json:"roomName"`
}

// CreateRoomData requests a new room.
type CreateRoomData struct {
	RoomName    string `json:"roomName"`
	DisplayName string `json:"displayName"`
}

// RoomMessageData posts to a room.
type RoomMessageData struct {
	RoomName string `json:"roomName"`
	Content  string `json:"content"`
}

// PrivateMessageData sends a direct message.
type PrivateMessageData struct {
	RecipientUsername string `json:"recipientUsername"`
	Content           string `json:"content"`
}

// PrivateTypingData targets a private typing notice.
type PrivateTypingData struct {
	RecipientUsername string `json:"recipientUsername"`
}

// ConversationData selects the other side of a conversation.
type ConversationData struct {
	Username string `json:"username"`
}

// Shared shapes.

// RoomMessage is a room chat message.
type RoomMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessage is a direct message.
type PrivateMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Delivered bool      `json:"delivered"`
}

// RoomInfo describes a room in listings and room:created.
type RoomInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	UserCount   int    `json:"userCount"`
}

// RoomDetail is the created room returned to its creator.
type RoomDetail struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"displayName"`
	CreatedAt   time.Time     `json:"createdAt"`
	Messages    []RoomMessage `json:"messages"`
}

// UserInfo is the caller's identity after login.
type UserInfo struct {
	Username    string `json:"username"`
	CurrentRoom string `json:"currentRoom"`
}

// OnlineUser is one entry of users:online.
type OnlineUser struct {
	Username    string `json:"username"`
	CurrentRoom string `json:"currentRoom"`
}

// ConversationInfo is one entry of conversations:list.
type ConversationInfo struct {
	Username    string     `json:"username"`
	LastMessage string     `json:"lastMessage"`
	Timestamp   *time.Time `json:"timestamp"`
	UnreadCount int        `json:"unreadCount"`
}

// Responses. Every reply embeds Status.

// Status is the common part of every reply.
type Status struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// LoginResponse answers login.
type LoginResponse struct {
	Status
	User        *UserInfo `json:"user,omitempty"`
	OnlineUsers []string  `json:"onlineUsers,omitempty"`
}

// RoomsResponse answers rooms:list.
type RoomsResponse struct {
	Status
	Rooms []RoomInfo `json:"rooms"`
}

// CreateRoomResponse answers room:create.
type CreateRoomResponse struct {
	Status
	Room *RoomDetail `json:"room,omitempty"`
}

// JoinRoomResponse answers room:join.
type JoinRoomResponse struct {
	Status
	RoomName string        `json:"roomName,omitempty"`
	Messages []RoomMessage `json:"messages"`
	Users    []string      `json:"users"`
}

// SendResponse answers message:room and message:private.
type SendResponse struct {
	Status
	MessageID string `json:"messageId,omitempty"`
	Delivered *bool  `json:"delivered,omitempty"`
}

// ConversationResponse answers conversation:get.
type ConversationResponse struct {
	Status
	Messages []PrivateMessage `json:"messages"`
}

// ConversationsResponse answers conversations:list.
type ConversationsResponse struct {
	Status
	Conversations []ConversationInfo `json:"conversations"`
}

// OnlineUsersResponse answers users:online.
type OnlineUsersResponse struct {
	Status
	Users []OnlineUser `json:"users"`
}

// Broadcast payloads.

// UserPresence is carried by user:online and user:offline.
type UserPresence struct {
	Username string     `json:"username"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
}

// UserRoom is carried by user:joined and user:left.
type UserRoom struct {
	Username string `json:"username"`
	RoomName string `json:"roomName"`
}

// RoomCount is carried by rooms:update.
type RoomCount struct {
	RoomName  string `json:"roomName"`
	UserCount int    `json:"userCount"`
}

// Typing is carried by typing relays. RoomName is empty for private notices.
type Typing struct {
	Username string `json:"username"`
	RoomName string `json:"roomName,omitempty"`
}
