package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaancar/internal/config"
	"asaancar/internal/session"
)

func testClient(t *testing.T, handler http.HandlerFunc, sess session.Session) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		APIBaseURL:    srv.URL,
		HTTPTimeout:   2 * time.Second,
		MaxMessageLen: config.DefaultMessageLen,
	}
	return NewClient(cfg, sess, nil)
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}, session.Session{Token: "tok-abc", UserID: 1})

	_, err := client.Conversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-abc", gotAuth)
}

func TestAnonymousRequestsCarryNoAuthHeader(t *testing.T) {
	var sawHeader bool
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	}, session.Anonymous())

	_, err := client.ListCars(context.Background(), CarFilters{})
	require.NoError(t, err)
	assert.False(t, sawHeader, "anonymous requests go out without a bearer header")
}

func TestProtocolErrorParsesBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"The start date must be a future date."}`))
	}, session.Anonymous())

	_, err := client.CreateBooking(context.Background(), BookingRequest{CarID: "1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "The start date must be a future date.", apiErr.Message)
}

func TestProtocolErrorFallsBackToErrorField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"conversation not found"}`))
	}, session.Anonymous())

	_, err := client.Messages(context.Background(), "404")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "conversation not found", apiErr.Message)
	assert.True(t, IsNotFound(err))
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	cfg := config.Config{APIBaseURL: "http://127.0.0.1:1", HTTPTimeout: 200 * time.Millisecond}
	client := NewClient(cfg, session.Anonymous(), nil)

	_, err := client.Conversations(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, strings.Contains(err.Error(), "status"), err.Error())
	assert.NotErrorAs(t, err, &apiErr)
}

func TestCreateConversationWithoutIDFailsClosed(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, session.Session{Token: "tok", UserID: 5})

	_, err := client.CreateConversation(context.Background(), 5)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestSendMessageRequiresServerIDAndTimestamp(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}, session.Session{Token: "tok"})

	_, err := client.SendMessage(context.Background(), "7", "hello")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestSendMessageValidatesLocally(t *testing.T) {
	called := false
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, session.Session{Token: "tok"})

	_, err := client.SendMessage(context.Background(), "7", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = client.SendMessage(context.Background(), "7", strings.Repeat("x", 501))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	assert.False(t, called, "invalid messages never reach the network")
}

func TestSendMessageRoundTrip(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/conversations/7/messages", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "When can I pick up?", payload["message"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": 42,
			"conversation_id": 7,
			"sender_type": "user",
			"sender_id": 12,
			"message": "When can I pick up?",
			"created_at": "2024-01-15T10:05:00Z"
		}`))
	}, session.Session{Token: "tok", UserID: 12})

	msg, err := client.SendMessage(context.Background(), "7", "When can I pick up?")
	require.NoError(t, err)
	assert.Equal(t, ID("42"), msg.ID)
	assert.Equal(t, ID("7"), msg.ConversationID)
	assert.True(t, msg.Mine(12))
	assert.Equal(t, time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC), msg.CreatedAt)
}

func TestLoginWithoutTokenFailsClosed(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1,"name":"Asad"}}`))
	}, session.Anonymous())

	_, err := client.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestLoginAcceptsAccessTokenField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok-xyz","user":{"id":9,"name":"Sana","email":"s@x.pk"}}`))
	}, session.Anonymous())

	result, err := client.Login(context.Background(), "s@x.pk", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", result.Token)
	assert.Equal(t, int64(9), result.User.ID)
}

func TestCarFiltersQuery(t *testing.T) {
	var gotQuery string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":1,"name":"Toyota Camry","seats":5,"available":true}]`))
	}, session.Anonymous())

	cars, err := client.ListCars(context.Background(), CarFilters{
		Brand:          "Toyota",
		MinSeats:       5,
		MaxPricePerDay: 250,
	})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, ID("1"), cars[0].ID)
	assert.Contains(t, gotQuery, "brand=Toyota")
	assert.Contains(t, gotQuery, "seats=5")
	assert.Contains(t, gotQuery, "max_price_per_day=250")
}

func TestIDDecodesNumbersAndStrings(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"local-x","c":null}`), &out))
	assert.Equal(t, ID("42"), out.A)
	assert.Equal(t, ID("local-x"), out.B)
	assert.Equal(t, ID(""), out.C)
}

func TestIDMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(struct {
		N ID `json:"n"`
		S ID `json:"s"`
	}{N: "42", S: "local-x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":42,"s":"local-x"}`, string(data))
}
