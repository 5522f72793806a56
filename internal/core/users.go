package core

import (
	"sort"
	"sync"
	"time"
)

// Session binds a live connection to a claimed username.
type Session struct {
	ConnID      string
	Username    string
	CurrentRoom string // empty once detached at disconnect
	JoinedAt    time.Time
}

// UserRegistry is the authoritative set of logged-in sessions. Sessions are
// indexed by connection id and by username; both indexes change together
// under one lock so a name can never be claimed twice.
type UserRegistry struct {
	mu          sync.RWMutex
	defaultRoom string
	byConn      map[string]*Session
	byName      map[string]*Session
	now         Clock
}

// NewUserRegistry creates an empty registry. New sessions start in defaultRoom.
func NewUserRegistry(defaultRoom string, clock Clock) *UserRegistry {
	return &UserRegistry{
		defaultRoom: defaultRoom,
		byConn:      make(map[string]*Session),
		byName:      make(map[string]*Session),
		now:         defaultClock(clock),
	}
}

// Login claims username for connID. The name is trimmed first.
func (r *UserRegistry) Login(connID, username string) (Session, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[connID]; exists {
		return Session{}, invalidInput("connection is already logged in")
	}
	if _, taken := r.byName[name]; taken {
		return Session{}, ErrNameTaken
	}

	s := &Session{
		ConnID:      connID,
		Username:    name,
		CurrentRoom: r.defaultRoom,
		JoinedAt:    r.now(),
	}
	r.byConn[connID] = s
	r.byName[name] = s
	return *s, nil
}

// Logout removes the session for connID. Reports false if there was none.
func (r *UserRegistry) Logout(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.byConn, connID)
	delete(r.byName, s.Username)
	return *s, true
}

// ByConnection looks a session up by connection id.
func (r *UserRegistry) ByConnection(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ByUsername looks a session up by username.
func (r *UserRegistry) ByUsername(username string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[username]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetCurrentRoom moves the session's room pointer and returns the previous
// room. It does not notify anyone.
func (r *UserRegistry) SetCurrentRoom(connID, room string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	prev := s.CurrentRoom
	s.CurrentRoom = room
	return prev, true
}

// UsersInRoom returns the sessions currently in room, ordered by join time.
func (r *UserRegistry) UsersInRoom(room string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0)
	for _, s := range r.byConn {
		if s.CurrentRoom == room {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out
}

// CountByRoom returns live member counts per room from one snapshot.
func (r *UserRegistry) CountByRoom() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range r.byConn {
		if s.CurrentRoom != "" {
			counts[s.CurrentRoom]++
		}
	}
	return counts
}

// Online returns every live session ordered by join time.
func (r *UserRegistry) Online() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, *s)
	}
	sortSessions(out)
	return out
}

// Usernames returns all live usernames ordered by join time.
func (r *UserRegistry) Usernames() []string {
	return usernames(r.Online())
}

// Count returns the number of live sessions.
func (r *UserRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func sortSessions(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].JoinedAt.Equal(sessions[j].JoinedAt) {
			return sessions[i].JoinedAt.Before(sessions[j].JoinedAt)
		}
		return sessions[i].Username < sessions[j].Username
	})
}

func usernames(sessions []Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Username)
	}
	return out
}
