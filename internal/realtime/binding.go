package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Subscribe opens the private channel for one conversation. It is
// idempotent: subscribing an already-subscribed conversation re-issues the
// subscription in place of the old one instead of stacking deliveries.
// Registered callbacks survive a re-subscribe.
func (c *Conn) Subscribe(ctx context.Context, conversationID string) error {
	if c.isClosed() {
		return ErrClosed
	}
	channel := channelPrefix + conversationID

	c.mu.Lock()
	already := c.subscribed[conversationID]
	c.mu.Unlock()
	if already {
		if err := c.writeJSON(envelope{Event: evUnsubscribe, Data: mustJSON(map[string]string{"channel": channel})}); err != nil {
			return err
		}
	}

	auth, err := c.authorize(ctx, channel)
	if err != nil {
		return fmt.Errorf("realtime: authorize %s: %w", channel, err)
	}
	payload := map[string]string{"channel": channel, "auth": auth}
	if err := c.writeJSON(envelope{Event: evSubscribe, Data: mustJSON(payload)}); err != nil {
		return err
	}

	c.mu.Lock()
	c.subscribed[conversationID] = true
	c.mu.Unlock()
	return nil
}

// Unsubscribe closes the conversation's channel and drops its callbacks.
// Calling it for a conversation that was never subscribed is a no-op.
func (c *Conn) Unsubscribe(conversationID string) {
	c.mu.Lock()
	if c.closed || !c.subscribed[conversationID] {
		delete(c.msgSubs, conversationID)
		delete(c.typingSubs, conversationID)
		c.mu.Unlock()
		return
	}
	delete(c.subscribed, conversationID)
	delete(c.msgSubs, conversationID)
	delete(c.typingSubs, conversationID)
	c.mu.Unlock()

	channel := channelPrefix + conversationID
	if err := c.writeJSON(envelope{Event: evUnsubscribe, Data: mustJSON(map[string]string{"channel": channel})}); err != nil {
		c.logger.Debug("unsubscribe write failed", "channel", channel, "error", err)
	}
}

// OnMessage registers a message subscriber for a conversation and returns
// its cancel func. Multiple subscribers coexist; each cancels only itself.
func (c *Conn) OnMessage(conversationID string, fn MessageFunc) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgSubs[conversationID] == nil {
		c.msgSubs[conversationID] = make(map[int64]MessageFunc)
	}
	c.nextSubID++
	id := c.nextSubID
	c.msgSubs[conversationID][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.msgSubs[conversationID], id)
	}
}

// OnTyping registers a typing subscriber for a conversation and returns its
// cancel func.
func (c *Conn) OnTyping(conversationID string, fn TypingFunc) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.typingSubs[conversationID] == nil {
		c.typingSubs[conversationID] = make(map[int64]TypingFunc)
	}
	c.nextSubID++
	id := c.nextSubID
	c.typingSubs[conversationID][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.typingSubs[conversationID], id)
	}
}

// TriggerMessageSent broadcasts a confirmed message to the conversation's
// other subscribers. This is a courtesy echo for remote participants; the
// sender's own copy lives in its message store already.
func (c *Conn) TriggerMessageSent(conversationID string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("realtime: encode message: %w", err)
	}
	return c.trigger(conversationID, "client-"+evMessageSent, data)
}

// TriggerTyping broadcasts a transient typing-state change. Nothing is
// stored; subscribers only see it if they are listening right now. Debounce
// is the caller's job.
func (c *Conn) TriggerTyping(conversationID string, isTyping bool, userID int64) error {
	event := "client-" + evTyping
	if !isTyping {
		event = "client-" + evStopTyping
	}
	return c.trigger(conversationID, event, mustJSON(map[string]int64{"user_id": userID}))
}

func (c *Conn) trigger(conversationID, event string, data json.RawMessage) error {
	c.mu.Lock()
	subscribed := c.subscribed[conversationID]
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !subscribed {
		return fmt.Errorf("realtime: conversation %s is not subscribed", conversationID)
	}
	return c.writeJSON(envelope{Event: event, Channel: channelPrefix + conversationID, Data: data})
}

// authorize runs the HTTP handshake that signs a private-channel
// subscription, using the session's bearer credential.
func (c *Conn) authorize(ctx context.Context, channel string) (string, error) {
	if c.cfg.AuthURL == "" {
		if c.cfg.Insecure {
			return "", nil
		}
		return "", fmt.Errorf("auth endpoint not configured")
	}
	payload := map[string]string{
		"socket_id":    c.socketID,
		"channel_name": channel,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if bearer := c.sess.Bearer(); bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("auth endpoint returned %d", resp.StatusCode)
	}
	var signed struct {
		Auth string `json:"auth"`
	}
	if err := json.Unmarshal(data, &signed); err != nil {
		return "", err
	}
	if signed.Auth == "" {
		return "", fmt.Errorf("auth endpoint returned no signature")
	}
	return signed.Auth, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
