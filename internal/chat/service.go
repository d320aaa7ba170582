package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"asaancar/internal/api"
	"asaancar/internal/realtime"
	"asaancar/internal/session"
)

// API is the slice of the REST client the chat core consumes.
type API interface {
	Conversations(ctx context.Context) ([]api.Conversation, error)
	CreateConversation(ctx context.Context, storeID int64) (api.Conversation, error)
	Messages(ctx context.Context, conversationID api.ID) ([]api.Message, error)
	SendMessage(ctx context.Context, conversationID api.ID, body string) (api.Message, error)
}

// Channel is the realtime binding the service drives. A nil Channel means
// REST-only operation: everything works, nothing is pushed live.
type Channel interface {
	Subscribe(ctx context.Context, conversationID string) error
	Unsubscribe(conversationID string)
	OnMessage(conversationID string, fn realtime.MessageFunc) (cancel func())
	OnTyping(conversationID string, fn realtime.TypingFunc) (cancel func())
	TriggerMessageSent(conversationID string, message any) error
	TriggerTyping(conversationID string, isTyping bool, userID int64) error
}

// Service reconciles the conversation and message stores against the REST
// API and the realtime channel. One conversation is open at a time; every
// Open supersedes in-flight completions from the previous one.
type Service struct {
	api     API
	channel Channel
	sess    session.Session
	logger  *slog.Logger

	conversations *ConversationStore
	messages      *MessageStore

	mu         sync.Mutex
	generation uint64
	active     api.ID
	cancels    []func()

	messageHandler func(api.Message)
	typingHandler  func(isTyping bool, userID int64)
}

// NewService wires the chat core. channel may be nil.
func NewService(apiClient API, channel Channel, sess session.Session, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:           apiClient,
		channel:       channel,
		sess:          sess,
		logger:        logger,
		conversations: NewConversationStore(),
		messages:      NewMessageStore(),
	}
}

// ConversationStore exposes the conversation list.
func (s *Service) ConversationStore() *ConversationStore { return s.conversations }

// MessageStore exposes the open conversation's messages.
func (s *Service) MessageStore() *MessageStore { return s.messages }

// OnNewMessage registers the hook invoked after a remote message lands in
// the open conversation. Intended for the UI's redraw.
func (s *Service) OnNewMessage(fn func(api.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHandler = fn
}

// OnTyping registers the hook invoked on typing-state changes in the open
// conversation. The sender's own typing events are filtered out.
func (s *Service) OnTyping(fn func(isTyping bool, userID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingHandler = fn
}

// LoadConversations refreshes the conversation list. On failure the store
// keeps its previous contents and the error propagates; any fallback
// display is the caller's decision.
func (s *Service) LoadConversations(ctx context.Context) error {
	items, err := s.api.Conversations(ctx)
	if err != nil {
		return err
	}
	s.conversations.Replace(items)
	return nil
}

// StartConversation creates (or fetches) a thread with a rental store and
// prepends it so the UI shows it without a round trip. A response without
// an id has already failed closed in the API layer; nothing is prepended
// and no load or subscribe must follow.
func (s *Service) StartConversation(ctx context.Context, storeID int64) (api.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, storeID)
	if err != nil {
		return api.Conversation{}, err
	}
	s.conversations.Prepend(conv)
	return conv, nil
}

// Open makes a conversation the active one: fetches its messages, replaces
// the message slot, and binds the realtime channel. A load that resolves
// after another Open supersedes it is discarded with ErrSuperseded. A
// failed load leaves the previous slot contents intact.
func (s *Service) Open(ctx context.Context, conversationID api.ID) ([]api.Message, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.teardownLocked()
	s.mu.Unlock()

	msgs, err := s.api.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.active = conversationID
	s.mu.Unlock()
	s.messages.Reset(conversationID, msgs)

	if s.channel != nil {
		if err := s.channel.Subscribe(ctx, string(conversationID)); err != nil {
			// Live push is best effort; the conversation still works
			// over REST alone.
			s.logger.Warn("realtime subscribe failed, continuing without live updates",
				"conversation_id", conversationID, "error", err)
		} else {
			cancelMsg := s.channel.OnMessage(string(conversationID), func(data json.RawMessage) {
				s.handleRemoteMessage(gen, conversationID, data)
			})
			cancelTyping := s.channel.OnTyping(string(conversationID), func(isTyping bool, userID int64) {
				s.handleTyping(gen, isTyping, userID)
			})
			s.mu.Lock()
			s.cancels = append(s.cancels, cancelMsg, cancelTyping)
			s.mu.Unlock()
		}
	}
	return s.messages.Messages(), nil
}

// Close tears down the active conversation's subscription and empties the
// message slot. Safe to call with nothing open.
func (s *Service) Close() {
	s.mu.Lock()
	s.generation++
	s.teardownLocked()
	s.mu.Unlock()
	s.messages.Clear()
}

// Active returns the open conversation's id, or "".
func (s *Service) Active() api.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Service) teardownLocked() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	if s.active != "" && s.channel != nil {
		s.channel.Unsubscribe(string(s.active))
	}
	s.active = ""
}

// Send runs one outbound attempt: optimistic append, REST send, then either
// reconcile plus courtesy echo, or rollback. A failed attempt is terminal;
// retrying is a new Send with a new placeholder.
func (s *Service) Send(ctx context.Context, body string) (api.Message, error) {
	s.mu.Lock()
	active := s.active
	gen := s.generation
	s.mu.Unlock()
	if active == "" {
		return api.Message{}, ErrNoActiveConversation
	}

	pending := s.messages.AppendOptimistic(body, s.sess.UserID)

	confirmed, err := s.api.SendMessage(ctx, active, body)
	if err != nil {
		if rmErr := s.messages.Remove(pending.ID); rmErr != nil {
			s.logger.Debug("rollback found no pending entry", "placeholder_id", pending.ID)
		}
		return api.Message{}, err
	}

	s.mu.Lock()
	stale := s.generation != gen
	s.mu.Unlock()
	if stale {
		return confirmed, ErrSuperseded
	}

	if err := s.messages.Reconcile(pending.ID, confirmed); err != nil {
		s.logger.Debug("reconcile found no pending entry", "placeholder_id", pending.ID)
	}
	s.conversations.Touch(active, api.LastMessage{
		Body:       confirmed.Body,
		SenderName: s.sess.UserName,
		CreatedAt:  confirmed.CreatedAt,
	}, false)

	if s.channel != nil {
		if err := s.channel.TriggerMessageSent(string(active), confirmed); err != nil {
			s.logger.Debug("message echo publish failed", "conversation_id", active, "error", err)
		}
	}
	return confirmed, nil
}

// Typing broadcasts the user's typing state for the open conversation.
// Best effort: nothing is stored and failures are only logged. Callers
// debounce keystroke-driven calls.
func (s *Service) Typing(isTyping bool) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == "" || s.channel == nil {
		return
	}
	if err := s.channel.TriggerTyping(string(active), isTyping, s.sess.UserID); err != nil {
		s.logger.Debug("typing publish failed", "conversation_id", active, "error", err)
	}
}

func (s *Service) handleRemoteMessage(gen uint64, conversationID api.ID, data json.RawMessage) {
	var msg api.Message
	if err := realtime.Decode(data, &msg); err != nil {
		s.logger.Debug("remote message decode failed", "error", err)
		return
	}
	if msg.ConversationID == "" {
		msg.ConversationID = conversationID
	}
	// The sender's own copy arrives through optimistic append + reconcile;
	// an echoed duplicate over the channel is dropped regardless of which
	// side of the REST response race it lands on.
	if msg.Mine(s.sess.UserID) {
		return
	}
	s.mu.Lock()
	stale := s.generation != gen
	handler := s.messageHandler
	s.mu.Unlock()
	if stale {
		return
	}
	if !s.messages.AppendRemote(msg) {
		return
	}
	s.conversations.Touch(conversationID, api.LastMessage{
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}, false)
	if handler != nil {
		handler(msg)
	}
}

func (s *Service) handleTyping(gen uint64, isTyping bool, userID int64) {
	if userID == s.sess.UserID {
		return
	}
	s.mu.Lock()
	stale := s.generation != gen
	handler := s.typingHandler
	s.mu.Unlock()
	if stale || handler == nil {
		return
	}
	handler(isTyping, userID)
}
