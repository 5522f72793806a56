package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandLogin claims a username for the connection.
	CommandLogin CommandKind = iota
	// CommandListRooms lists rooms with live user counts.
	CommandListRooms
	// CommandCreateRoom creates a new room.
	CommandCreateRoom
	// CommandJoinRoom switches the session to another room.
	CommandJoinRoom
	// CommandSendRoomMessage posts a message to a room.
	CommandSendRoomMessage
	// CommandSendPrivateMessage sends a direct message to an online user.
	CommandSendPrivateMessage
	// CommandGetConversation fetches private history with another user.
	CommandGetConversation
	// CommandListConversations lists the caller's private conversations.
	CommandListConversations
	// CommandListOnline lists online users and their rooms.
	CommandListOnline
	// CommandTypingStart relays a typing notice to a room.
	CommandTypingStart
	// CommandTypingStop relays a stopped-typing notice to a room.
	CommandTypingStop
	// CommandPrivateTypingStart relays a typing notice to one user.
	CommandPrivateTypingStart
	// CommandPrivateTypingStop relays a stopped-typing notice to one user.
	CommandPrivateTypingStop
)

var commandNames = map[CommandKind]string{
	CommandLogin:              "login",
	CommandListRooms:          "rooms:list",
	CommandCreateRoom:         "room:create",
	CommandJoinRoom:           "room:join",
	CommandSendRoomMessage:    "message:room",
	CommandSendPrivateMessage: "message:private",
	CommandGetConversation:    "conversation:get",
	CommandListConversations:  "conversations:list",
	CommandListOnline:         "users:online",
	CommandTypingStart:        "typing:start",
	CommandTypingStop:         "typing:stop",
	CommandPrivateTypingStart: "typing:private:start",
	CommandPrivateTypingStop:  "typing:private:stop",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Relay reports whether the command is fire-and-forget (no reply).
func (k CommandKind) Relay() bool {
	switch k {
	case CommandTypingStart, CommandTypingStop, CommandPrivateTypingStart, CommandPrivateTypingStop:
		return true
	default:
		return false
	}
}

// Command represents an action requested by a client. Ack correlates the
// reply with the request on the client's own channel.
type Command struct {
	Kind        CommandKind
	Ack         uint64
	Username    string // login, conversation:get
	Room        string // room:create, room:join, message:room, typing
	DisplayName string // room:create
	Recipient   string // message:private, private typing
	Content     string
}
