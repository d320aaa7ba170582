// Package api is the typed REST client for the AsaanCar backend.
//
// Every call attaches the session's bearer credential when present and obeys
// a single global timeout from configuration. Failures fall into three
// camps: transport errors (wrapped), protocol errors (*APIError), and
// invalid 2xx responses (ErrInvalidResponse).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"asaancar/internal/config"
	"asaancar/internal/session"
)

// Client talks to the AsaanCar REST API on behalf of one session.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	session       session.Session
	logger        *slog.Logger
	maxMessageLen int
}

// NewClient builds a client from configuration and an explicit session.
// A credential change means building a new client, not mutating this one.
func NewClient(cfg config.Config, sess session.Session, logger *slog.Logger) *Client {
	maxLen := cfg.MaxMessageLen
	if maxLen <= 0 {
		maxLen = config.DefaultMessageLen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.HTTPTimeout},
		session:       sess,
		logger:        logger,
		maxMessageLen: maxLen,
	}
}

// Session returns the session this client was built with.
func (c *Client) Session() session.Session {
	return c.session
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the structured error shape the backend uses for non-2xx
// responses. Either field may carry the human-readable message.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer := c.session.Bearer(); bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			if eb.Message != "" {
				apiErr.Message = eb.Message
			} else if eb.Error != "" {
				apiErr.Message = eb.Error
			}
		}
		c.logger.Debug("api call failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, path, err)
	}
	return nil
}

// ID is an entity identifier on the wire. The backend emits numeric ids,
// locally originated placeholders are strings, so both decode into it.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numbers for numeric ids so round-trips match what the
// backend sent.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}
