// Package chat holds the client-side conversation state: the conversation
// list, the single open conversation's messages, and the service that keeps
// both reconciled against the REST API and the realtime channel.
package chat

import (
	"errors"
	"sync"

	"asaancar/internal/api"
)

var (
	// ErrMessageNotFound is returned when a placeholder id has no entry.
	ErrMessageNotFound = errors.New("chat: message not found")
	// ErrNoActiveConversation is returned from operations that need an
	// open conversation when none is open.
	ErrNoActiveConversation = errors.New("chat: no active conversation")
	// ErrSuperseded marks a completion that arrived after the user moved
	// to another conversation; its result was discarded.
	ErrSuperseded = errors.New("chat: conversation no longer active")
)

// ConversationStore is the in-memory list of conversation summaries for the
// current session. Mutations are last-write-wins; the server list from
// Replace is authoritative except for locally created threads prepended
// before any refresh.
type ConversationStore struct {
	mu    sync.RWMutex
	items []api.Conversation
}

// NewConversationStore builds an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// Replace swaps in a freshly fetched list. Callers must not call it with a
// failed fetch's nil-on-error result; a failed load leaves the store as-is.
func (s *ConversationStore) Replace(items []api.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]api.Conversation(nil), items...)
}

// Prepend inserts a freshly created conversation at the head of the list so
// the UI shows it before any server push confirms it.
func (s *ConversationStore) Prepend(conv api.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.items {
		if existing.ID == conv.ID {
			// Already known; move it to the head instead of duplicating.
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.items = append([]api.Conversation{conv}, s.items...)
}

// Touch updates a conversation's preview after a message event and moves it
// to the head of the list. Unknown ids are ignored; the next Replace will
// pick the thread up.
func (s *ConversationStore) Touch(id api.ID, preview api.LastMessage, bumpUnread bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		conv := s.items[i]
		p := preview
		conv.LastMessage = &p
		if bumpUnread {
			conv.UnreadCount++
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.items = append([]api.Conversation{conv}, s.items...)
		return
	}
}

// All returns a snapshot of the list.
func (s *ConversationStore) All() []api.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Conversation(nil), s.items...)
}

// Get returns a conversation by id.
func (s *ConversationStore) Get(id api.ID) (api.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.items {
		if conv.ID == id {
			return conv, true
		}
	}
	return api.Conversation{}, false
}

// Len returns the number of conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
