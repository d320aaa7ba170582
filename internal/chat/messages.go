package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"asaancar/internal/api"
)

// placeholderPrefix marks client-generated message ids awaiting a server id.
const placeholderPrefix = "local-"

// MessageStore holds the ordered message list for the single currently open
// conversation. Opening another conversation replaces the slot wholesale;
// the two lists are never merged.
type MessageStore struct {
	mu             sync.RWMutex
	conversationID api.ID
	items          []api.Message
}

// NewMessageStore builds an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Reset replaces the slot with a fetched list for one conversation. The
// backend exposes no sequence number, so the page is ordered once by
// created_at (then id) and later appends keep local arrival order.
func (s *MessageStore) Reset(conversationID api.ID, messages []api.Message) {
	sorted := append([]api.Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = conversationID
	s.items = sorted
}

// Clear empties the slot.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = ""
	s.items = nil
}

// ConversationID returns the conversation the slot currently holds.
func (s *MessageStore) ConversationID() api.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// AppendOptimistic appends a locally authored message with a placeholder id
// and client-clock timestamp, synchronously, before any network call. The
// returned message carries the placeholder id for later reconciliation.
func (s *MessageStore) AppendOptimistic(body string, senderID int64) api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := api.Message{
		ID:             api.ID(placeholderPrefix + uuid.NewString()),
		ConversationID: s.conversationID,
		SenderType:     api.SenderUser,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	s.items = append(s.items, msg)
	return msg
}

// Reconcile replaces a pending entry's id and timestamp with the
// server-confirmed values, leaving its position unchanged.
func (s *MessageStore) Reconcile(placeholderID api.ID, confirmed api.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != placeholderID {
			continue
		}
		s.items[i].ID = confirmed.ID
		s.items[i].CreatedAt = confirmed.CreatedAt
		if confirmed.SenderID != 0 {
			s.items[i].SenderID = confirmed.SenderID
		}
		return nil
	}
	return ErrMessageNotFound
}

// Remove rolls back a pending entry after a failed send. Missing ids are
// reported so callers can tell a rollback from a no-op.
func (s *MessageStore) Remove(placeholderID api.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != placeholderID {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		return nil
	}
	return ErrMessageNotFound
}

// AppendRemote appends a message delivered over the realtime channel.
// Messages for another conversation or with an id already present are
// dropped; it reports whether the message was appended.
func (s *MessageStore) AppendRemote(msg api.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == "" || (msg.ConversationID != "" && msg.ConversationID != s.conversationID) {
		return false
	}
	for i := range s.items {
		if s.items[i].ID == msg.ID {
			return false
		}
	}
	s.items = append(s.items, msg)
	return true
}

// Messages returns a snapshot of the ordered list.
func (s *MessageStore) Messages() []api.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Message(nil), s.items...)
}

// Len returns the number of messages in the slot.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IsPlaceholder reports whether an id is a client-generated placeholder.
func IsPlaceholder(id api.ID) bool {
	return strings.HasPrefix(string(id), placeholderPrefix)
}
