// Package realtime binds conversations to a pusher-style pub/sub transport.
//
// One Conn is one authenticated websocket session. Each open conversation
// maps to a private channel ("private-conversation.{id}"); the channel
// delivers two event kinds, new messages and typing changes, to whichever
// subscribers are registered. The Conn is built for a fixed session: when
// credentials change, tear it down and dial a new one.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"asaancar/internal/session"
)

// Config locates the pusher endpoint and the HTTP auth handshake for
// private channels.
type Config struct {
	Host     string
	Key      string
	TLS      bool
	AuthURL  string
	Insecure bool

	// DialTimeout bounds the websocket handshake and the wait for the
	// connection-established frame. Zero means 10s.
	DialTimeout time.Duration

	// HTTPClient used for the private-channel auth handshake. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// envelope is the wire format for every frame in both directions.
type envelope struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Protocol event names. Client-originated events carry the client- prefix;
// server-relayed copies may arrive with or without it.
const (
	evConnEstablished = "pusher:connection_established"
	evPing            = "pusher:ping"
	evPong            = "pusher:pong"
	evSubscribe       = "pusher:subscribe"
	evUnsubscribe     = "pusher:unsubscribe"
	evSubscribed      = "pusher_internal:subscription_succeeded"
	evError           = "pusher:error"

	evMessageSent     = "message-sent"
	evMessageReceived = "message-received"
	evTyping          = "typing"
	evStopTyping      = "stop-typing"
)

const channelPrefix = "private-conversation."

// ErrClosed is returned from operations on a closed Conn.
var ErrClosed = errors.New("realtime: connection closed")

// Conn is one live pub/sub session.
type Conn struct {
	ws         *websocket.Conn
	cfg        Config
	sess       session.Session
	logger     *slog.Logger
	httpClient *http.Client
	socketID   string

	writeMu sync.Mutex

	mu          sync.Mutex
	subscribed  map[string]bool
	msgSubs     map[string]map[int64]MessageFunc
	typingSubs  map[string]map[int64]TypingFunc
	nextSubID   int64
	closed      bool
	done        chan struct{}
}

// MessageFunc receives a message pushed for a subscribed conversation. The
// payload is the raw event data; decoding into domain types is the
// caller's job.
type MessageFunc func(data json.RawMessage)

// TypingFunc receives typing-state changes for a subscribed conversation.
type TypingFunc func(isTyping bool, userID int64)

// Dial connects and waits for the connection-established frame. The session
// is captured for the life of the Conn; private-channel auth uses its bearer
// credential.
func Dial(ctx context.Context, cfg Config, sess session.Session, logger *slog.Logger) (*Conn, error) {
	if cfg.Host == "" {
		return nil, errors.New("realtime: host required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	scheme := "ws"
	if cfg.TLS {
		scheme = "wss"
	}
	endpoint := fmt.Sprintf("%s://%s/app/%s?protocol=7&client=asaancar-go&version=1.0", scheme, cfg.Host, cfg.Key)

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial %s: %w", cfg.Host, err)
	}

	conn := &Conn{
		ws:         ws,
		cfg:        cfg,
		sess:       sess,
		logger:     logger,
		httpClient: cfg.HTTPClient,
		subscribed: make(map[string]bool),
		msgSubs:    make(map[string]map[int64]MessageFunc),
		typingSubs: make(map[string]map[int64]TypingFunc),
		done:       make(chan struct{}),
	}
	if conn.httpClient == nil {
		conn.httpClient = http.DefaultClient
	}

	ws.SetReadDeadline(time.Now().Add(timeout))
	var hello envelope
	if err := ws.ReadJSON(&hello); err != nil {
		ws.Close()
		return nil, fmt.Errorf("realtime: handshake read: %w", err)
	}
	if hello.Event != evConnEstablished {
		ws.Close()
		return nil, fmt.Errorf("realtime: unexpected handshake event %q", hello.Event)
	}
	var established struct {
		SocketID string `json:"socket_id"`
	}
	if err := Decode(hello.Data, &established); err != nil || established.SocketID == "" {
		ws.Close()
		return nil, fmt.Errorf("realtime: handshake missing socket_id")
	}
	conn.socketID = established.SocketID
	ws.SetReadDeadline(time.Time{})

	logger.Debug("realtime connected", "host", cfg.Host, "socket_id", conn.socketID)
	go conn.readLoop()
	return conn, nil
}

// Close tears down the websocket and every subscription. Safe to call more
// than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.subscribed = make(map[string]bool)
	c.msgSubs = make(map[string]map[int64]MessageFunc)
	c.typingSubs = make(map[string]map[int64]TypingFunc)
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) writeJSON(v any) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		var env envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if !c.isClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("realtime read failed", "error", err)
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *Conn) dispatch(env envelope) {
	switch env.Event {
	case evPing:
		if err := c.writeJSON(envelope{Event: evPong}); err != nil {
			c.logger.Debug("pong write failed", "error", err)
		}
		return
	case evSubscribed:
		c.logger.Debug("channel subscribed", "channel", env.Channel)
		return
	case evError:
		c.logger.Warn("realtime server error", "data", string(env.Data))
		return
	}

	conversationID, ok := strings.CutPrefix(env.Channel, channelPrefix)
	if !ok {
		return
	}
	switch trimClientPrefix(env.Event) {
	case evMessageSent, evMessageReceived:
		for _, fn := range c.messageSubscribers(conversationID) {
			fn(env.Data)
		}
	case evTyping:
		c.deliverTyping(conversationID, true, env.Data)
	case evStopTyping:
		c.deliverTyping(conversationID, false, env.Data)
	}
}

func (c *Conn) deliverTyping(conversationID string, isTyping bool, data json.RawMessage) {
	var payload struct {
		UserID int64 `json:"user_id"`
	}
	if err := Decode(data, &payload); err != nil {
		c.logger.Debug("typing payload decode failed", "error", err)
	}
	for _, fn := range c.typingSubscribers(conversationID) {
		fn(isTyping, payload.UserID)
	}
}

func (c *Conn) messageSubscribers(conversationID string) []MessageFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]MessageFunc, 0, len(c.msgSubs[conversationID]))
	for _, fn := range c.msgSubs[conversationID] {
		subs = append(subs, fn)
	}
	return subs
}

func (c *Conn) typingSubscribers(conversationID string) []TypingFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]TypingFunc, 0, len(c.typingSubs[conversationID]))
	for _, fn := range c.typingSubs[conversationID] {
		subs = append(subs, fn)
	}
	return subs
}

func trimClientPrefix(event string) string {
	return strings.TrimPrefix(event, "client-")
}

// Decode handles both raw JSON objects and pusher's string-encoded JSON
// payloads.
func Decode(data json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		return json.Unmarshal([]byte(inner), out)
	}
	return json.Unmarshal(trimmed, out)
}
