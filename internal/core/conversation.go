package core

import (
	"sort"
	"sync"
	"time"
)

// PairKey identifies a conversation by an unordered pair of usernames.
// A is always the lexicographically smaller name.
type PairKey struct {
	A string
	B string
}

// CanonicalKey pairs two usernames independently of their order.
func CanonicalKey(userA, userB string) PairKey {
	if userB < userA {
		userA, userB = userB, userA
	}
	return PairKey{A: userA, B: userB}
}

func (k PairKey) String() string {
	return k.A + ":" + k.B
}

// Has reports whether username is one of the pair.
func (k PairKey) Has(username string) bool {
	return k.A == username || k.B == username
}

// Other returns the counterpart of username in the pair.
func (k PairKey) Other(username string) string {
	if k.A == username {
		return k.B
	}
	return k.A
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	OtherUser     string
	LastMessage   string
	LastTimestamp time.Time
	UnreadCount   int
}

type conversation struct {
	key      PairKey
	messages *history[*PrivateMessage]
	seq      uint64 // store-wide sequence of the latest append
}

// ConversationOptions tunes ConversationStore limits.
type ConversationOptions struct {
	HistoryLimit int
	IDs          IDFunc
	Clock        Clock
}

// ConversationStore keeps bounded private-message histories per user pair.
// Conversations are created on first message and live for the process.
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[PairKey]*conversation
	limit int
	seq   uint64
	newID IDFunc
	now   Clock
}

// NewConversationStore creates an empty store.
func NewConversationStore(opts ConversationOptions) *ConversationStore {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ConversationStore{
		convs: make(map[PairKey]*conversation),
		limit: limit,
		newID: defaultIDs(opts.IDs),
		now:   defaultClock(opts.Clock),
	}
}

// Append stores a new undelivered message from one user to another.
// Recipient presence is the caller's concern.
func (s *ConversationStore) Append(from, to, content string) (PrivateMessage, error) {
	if err := validateContent(content); err != nil {
		return PrivateMessage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := CanonicalKey(from, to)
	conv, ok := s.convs[key]
	if !ok {
		conv = &conversation{key: key, messages: newHistory[*PrivateMessage](s.limit)}
		s.convs[key] = conv
	}

	msg := &PrivateMessage{
		ID:        s.newID(),
		From:      from,
		To:        to,
		Content:   content,
		Timestamp: s.now(),
	}
	conv.messages.push(msg)
	s.seq++
	conv.seq = s.seq
	return *msg, nil
}

// MarkDelivered flips the delivered flag of a stored message once. Reports
// false if the message is unknown (or already evicted) or already delivered.
func (s *ConversationStore) MarkDelivered(from, to, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[CanonicalKey(from, to)]
	if !ok {
		return false
	}
	flipped := false
	conv.messages.each(func(m *PrivateMessage) bool {
		if m.ID != id {
			return true
		}
		if !m.Delivered {
			m.Delivered = true
			flipped = true
		}
		return false
	})
	return flipped
}

// History returns up to limit most recent messages between two users,
// oldest first. limit <= 0 returns the whole stored history.
func (s *ConversationStore) History(userA, userB string, limit int) []PrivateMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[CanonicalKey(userA, userB)]
	if !ok {
		return []PrivateMessage{}
	}
	stored := conv.messages.last(limit)
	out := make([]PrivateMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, *m)
	}
	return out
}

// List returns the conversations involving username, most recent first.
func (s *ConversationStore) List(username string) []ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*conversation, 0)
	for key, conv := range s.convs {
		if key.Has(username) {
			matched = append(matched, conv)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].seq > matched[j].seq
	})

	out := make([]ConversationSummary, 0, len(matched))
	for _, conv := range matched {
		summary := ConversationSummary{OtherUser: conv.key.Other(username)}
		if last, ok := conv.messages.newest(); ok {
			summary.LastMessage = last.Content
			summary.LastTimestamp = last.Timestamp
		}
		out = append(out, summary)
	}
	return out
}

// Len returns the number of stored conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
