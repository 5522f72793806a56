package core

import (
	"sync"
	"time"
)

// Room is a named broadcast group with a bounded message history.
type Room struct {
	Name        string
	DisplayName string
	CreatedAt   time.Time
	history     *history[RoomMessage]
}

// RoomSummary is the listing view of a room with its live member count.
type RoomSummary struct {
	Name        string
	DisplayName string
	CreatedAt   time.Time
	UserCount   int
}

// JoinResult describes a committed room switch.
type JoinResult struct {
	Room          RoomSummary
	Previous      string // room the session left, empty if none
	PreviousCount int    // live members left in Previous
	Messages      []RoomMessage
	Members       []string
}

// RoomOptions tunes RoomRegistry limits.
type RoomOptions struct {
	DefaultRoom        string
	DefaultDisplayName string
	HistoryLimit       int
	JoinHistoryLimit   int
	IDs                IDFunc
	Clock              Clock
}

// RoomRegistry owns every room and its history. Membership lives on the
// session's CurrentRoom pointer in UserRegistry; the registry lock wraps the
// pointer swap so room switches are observed as a single step.
type RoomRegistry struct {
	mu       sync.RWMutex
	users    *UserRegistry
	rooms    map[string]*Room
	order    []string
	limit    int
	joinSize int
	newID    IDFunc
	now      Clock
}

// NewRoomRegistry creates a registry holding the default room.
func NewRoomRegistry(users *UserRegistry, opts RoomOptions) *RoomRegistry {
	r := &RoomRegistry{
		users:    users,
		rooms:    make(map[string]*Room),
		limit:    opts.HistoryLimit,
		joinSize: opts.JoinHistoryLimit,
		newID:    defaultIDs(opts.IDs),
		now:      defaultClock(opts.Clock),
	}
	if r.limit <= 0 {
		r.limit = DefaultHistoryLimit
	}
	if r.joinSize <= 0 {
		r.joinSize = DefaultFetchLimit
	}

	name := opts.DefaultRoom
	if name == "" {
		name = "general"
	}
	display := opts.DefaultDisplayName
	if display == "" {
		display = name
	}
	r.insert(name, display)
	return r
}

func (r *RoomRegistry) insert(name, display string) *Room {
	room := &Room{
		Name:        name,
		DisplayName: display,
		CreatedAt:   r.now(),
		history:     newHistory[RoomMessage](r.limit),
	}
	r.rooms[name] = room
	r.order = append(r.order, name)
	return room
}

// List returns every room in creation order with live user counts.
func (r *RoomRegistry) List() []RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := r.users.CountByRoom()
	out := make([]RoomSummary, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, summarize(r.rooms[name], counts[name]))
	}
	return out
}

// Get returns the summary of a single room.
func (r *RoomRegistry) Get(name string) (RoomSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return RoomSummary{}, false
	}
	return summarize(room, r.users.CountByRoom()[name]), true
}

// Exists reports whether a room with the given name exists.
func (r *RoomRegistry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[name]
	return ok
}

// Create adds a new empty room. An empty display name falls back to name.
func (r *RoomRegistry) Create(name, displayName string) (RoomSummary, error) {
	if err := validateRoomName(name); err != nil {
		return RoomSummary{}, err
	}
	if err := validateDisplayName(displayName); err != nil {
		return RoomSummary{}, err
	}
	if displayName == "" {
		displayName = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return RoomSummary{}, ErrRoomExists
	}
	return summarize(r.insert(name, displayName), 0), nil
}

// Join moves the session for connID into room and returns the recent
// history and member list as of the switch.
func (r *RoomRegistry) Join(connID, name string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	prev, ok := r.users.SetCurrentRoom(connID, name)
	if !ok {
		return JoinResult{}, ErrSessionNotFound
	}

	members := r.users.UsersInRoom(name)
	res := JoinResult{
		Room:     summarize(room, len(members)),
		Messages: room.history.last(r.joinSize),
		Members:  usernames(members),
	}
	if prev != name {
		res.Previous = prev
		if prev != "" {
			res.PreviousCount = len(r.users.UsersInRoom(prev))
		}
	}
	return res, nil
}

// Leave detaches the session from whatever room it is in, returning that
// room and its remaining member count. Used on disconnect.
func (r *RoomRegistry) Leave(connID string) (string, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.users.SetCurrentRoom(connID, "")
	if !ok || prev == "" {
		return "", 0, false
	}
	return prev, len(r.users.UsersInRoom(prev)), true
}

// Post appends a message to the room history, evicting the oldest entry
// once the history is full.
func (r *RoomRegistry) Post(name, username, content string) (RoomMessage, error) {
	if err := validateContent(content); err != nil {
		return RoomMessage{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return RoomMessage{}, ErrRoomNotFound
	}
	msg := RoomMessage{
		ID:        r.newID(),
		Room:      name,
		Username:  username,
		Content:   content,
		Timestamp: r.now(),
	}
	room.history.push(msg)
	return msg, nil
}

// History returns up to limit most recent messages of a room, oldest first.
func (r *RoomRegistry) History(name string, limit int) ([]RoomMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.history.last(limit), nil
}

// Members returns the usernames currently in a room.
func (r *RoomRegistry) Members(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return usernames(r.users.UsersInRoom(name))
}

func summarize(room *Room, count int) RoomSummary {
	return RoomSummary{
		Name:        room.Name,
		DisplayName: room.DisplayName,
		CreatedAt:   room.CreatedAt,
		UserCount:   count,
	}
}
