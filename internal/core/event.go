package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventReply answers a command on the requesting client's channel.
	EventReply EventKind = iota
	// EventUserOnline notifies everyone that a user logged in.
	EventUserOnline
	// EventUserOffline notifies everyone that a user disconnected.
	EventUserOffline
	// EventUserJoined notifies room members about a user joining.
	EventUserJoined
	// EventUserLeft notifies room members about a user leaving.
	EventUserLeft
	// EventRoomCreated notifies everyone about a new room.
	EventRoomCreated
	// EventRoomsUpdate carries a room's new live member count.
	EventRoomsUpdate
	// EventRoomMessage delivers a room message to its members.
	EventRoomMessage
	// EventPrivateMessage delivers a direct message to its recipient.
	EventPrivateMessage
	// EventUserTyping relays a room typing notice.
	EventUserTyping
	// EventUserStoppedTyping relays a room stopped-typing notice.
	EventUserStoppedTyping
	// EventPrivateTyping relays a private typing notice.
	EventPrivateTyping
	// EventPrivateStoppedTyping relays a private stopped-typing notice.
	EventPrivateStoppedTyping
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	User    string
	Count   int
	Session Session        // EventUserOnline
	Summary RoomSummary    // EventRoomCreated
	Message RoomMessage    // EventRoomMessage
	Private PrivateMessage // EventPrivateMessage
	Reply   *Reply         // EventReply
}

// Reply is the result of a command. Only the fields relevant to Command are
// set; Err is non-nil when the command did not apply.
type Reply struct {
	Ack     uint64
	Command CommandKind
	Err     *CoreError

	Session       Session               // login
	OnlineUsers   []string              // login
	Online        []Session             // users:online
	Rooms         []RoomSummary         // rooms:list
	Room          RoomSummary           // room:create, room:join
	Messages      []RoomMessage         // room:join
	Members       []string              // room:join
	MessageID     string                // message:room, message:private
	Delivered     bool                  // message:private
	Private       []PrivateMessage      // conversation:get
	Conversations []ConversationSummary // conversations:list
}

// OK reports whether the command succeeded.
func (r *Reply) OK() bool {
	return r != nil && r.Err == nil
}
