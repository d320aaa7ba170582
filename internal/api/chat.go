package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender types on chat messages.
const (
	SenderUser  = "user"
	SenderStore = "store"
)

// Conversation is a chat thread between the customer and one rental store.
type Conversation struct {
	ID          ID           `json:"id"`
	StoreID     int64        `json:"store_id"`
	StoreName   string       `json:"store_name"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	CreatedAt   time.Time    `json:"created_at"`
}

// LastMessage is the preview shown on the conversation list. Display only;
// it is never authoritative for ordering.
type LastMessage struct {
	Body       string    `json:"message"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message is one chat message on the wire.
type Message struct {
	ID             ID        `json:"id"`
	ConversationID ID        `json:"conversation_id"`
	SenderType     string    `json:"sender_type"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Mine reports whether the message was authored by the given user.
func (m Message) Mine(userID int64) bool {
	return m.SenderType == SenderUser && m.SenderID == userID
}

// Conversations lists all threads for the current user.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chat/conversations", nil, nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// CreateConversation starts (or fetches) a thread with a rental store.
// A 2xx response without an id fails closed: callers must not subscribe or
// load messages against an absent id.
func (c *Client) CreateConversation(ctx context.Context, storeID int64) (Conversation, error) {
	payload := map[string]int64{"store_id": storeID}
	var conversation Conversation
	if err := c.do(ctx, http.MethodPost, "/api/chat/conversations", nil, payload, &conversation); err != nil {
		return Conversation{}, err
	}
	if conversation.ID == "" {
		return Conversation{}, fmt.Errorf("%w: conversation response has no id", ErrInvalidResponse)
	}
	return conversation, nil
}

// Messages returns the full message list for one conversation.
func (c *Client) Messages(ctx context.Context, conversationID ID) ([]Message, error) {
	path := fmt.Sprintf("/api/chat/conversations/%s/messages", url.PathEscape(string(conversationID)))
	var messages []Message
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message and returns the server-confirmed copy. The
// body is validated locally first; the confirmed message must carry the
// server id and timestamp for reconciliation to work.
func (c *Client) SendMessage(ctx context.Context, conversationID ID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if len([]rune(body)) > c.maxMessageLen {
		return Message{}, fmt.Errorf("%w: %d > %d characters", ErrMessageTooLong, len([]rune(body)), c.maxMessageLen)
	}
	path := fmt.Sprintf("/api/chat/conversations/%s/messages", url.PathEscape(string(conversationID)))
	payload := map[string]string{"message": body}
	var message Message
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &message); err != nil {
		return Message{}, err
	}
	if message.ID == "" || message.CreatedAt.IsZero() {
		return Message{}, fmt.Errorf("%w: sent message missing id or timestamp", ErrInvalidResponse)
	}
	return message, nil
}
