package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaancar/internal/api"
	"asaancar/internal/realtime"
	"asaancar/internal/session"
)

type fakeAPI struct {
	conversations []api.Conversation
	convErr       error

	created   api.Conversation
	createErr error

	messagesByConv map[api.ID][]api.Message
	messagesErr    error
	onMessages     func(conversationID api.ID)

	sendResult api.Message
	sendErr    error
	sendCalls  int
	onSend     func()
}

func (f *fakeAPI) Conversations(ctx context.Context) ([]api.Conversation, error) {
	return f.conversations, f.convErr
}

func (f *fakeAPI) CreateConversation(ctx context.Context, storeID int64) (api.Conversation, error) {
	return f.created, f.createErr
}

func (f *fakeAPI) Messages(ctx context.Context, conversationID api.ID) ([]api.Message, error) {
	if f.onMessages != nil {
		f.onMessages(conversationID)
	}
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messagesByConv[conversationID], nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID api.ID, body string) (api.Message, error) {
	f.sendCalls++
	if f.onSend != nil {
		f.onSend()
	}
	if f.sendErr != nil {
		return api.Message{}, f.sendErr
	}
	return f.sendResult, nil
}

type triggerCall struct {
	conversationID string
	event          string
	payload        any
}

type fakeChannel struct {
	subscribeErr  error
	subscribes    map[string]int
	unsubscribes  []string
	messageFns    map[string][]realtime.MessageFunc
	typingFns     map[string][]realtime.TypingFunc
	triggers      []triggerCall
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		subscribes: make(map[string]int),
		messageFns: make(map[string][]realtime.MessageFunc),
		typingFns:  make(map[string][]realtime.TypingFunc),
	}
}

func (f *fakeChannel) Subscribe(ctx context.Context, conversationID string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribes[conversationID]++
	return nil
}

func (f *fakeChannel) Unsubscribe(conversationID string) {
	f.unsubscribes = append(f.unsubscribes, conversationID)
}

func (f *fakeChannel) OnMessage(conversationID string, fn realtime.MessageFunc) func() {
	f.messageFns[conversationID] = append(f.messageFns[conversationID], fn)
	idx := len(f.messageFns[conversationID]) - 1
	return func() { f.messageFns[conversationID][idx] = nil }
}

func (f *fakeChannel) OnTyping(conversationID string, fn realtime.TypingFunc) func() {
	f.typingFns[conversationID] = append(f.typingFns[conversationID], fn)
	idx := len(f.typingFns[conversationID]) - 1
	return func() { f.typingFns[conversationID][idx] = nil }
}

func (f *fakeChannel) TriggerMessageSent(conversationID string, message any) error {
	f.triggers = append(f.triggers, triggerCall{conversationID, "message-sent", message})
	return nil
}

func (f *fakeChannel) TriggerTyping(conversationID string, isTyping bool, userID int64) error {
	f.triggers = append(f.triggers, triggerCall{conversationID, "typing", isTyping})
	return nil
}

func (f *fakeChannel) pushMessage(t *testing.T, conversationID string, msg api.Message) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, fn := range f.messageFns[conversationID] {
		if fn != nil {
			fn(data)
		}
	}
}

func (f *fakeChannel) pushTyping(conversationID string, isTyping bool, userID int64) {
	for _, fn := range f.typingFns[conversationID] {
		if fn != nil {
			fn(isTyping, userID)
		}
	}
}

func testSession() session.Session {
	return session.Session{Token: "tok", UserID: 12, UserName: "Asad"}
}

func TestEndToEndSendFlow(t *testing.T) {
	ctx := context.Background()
	serverTime := time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC)
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{
			"c7": {{ID: "1", ConversationID: "c7", SenderType: api.SenderStore, SenderID: 3, Body: "Hi", CreatedAt: serverTime.Add(-5 * time.Minute)}},
		},
		sendResult: api.Message{ID: "42", ConversationID: "c7", SenderType: api.SenderUser, SenderID: 12, Body: "When can I pick up?", CreatedAt: serverTime},
	}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)

	history, err := svc.Open(ctx, "c7")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, channel.subscribes["c7"])

	confirmed, err := svc.Send(ctx, "When can I pick up?")
	require.NoError(t, err)
	assert.Equal(t, api.ID("42"), confirmed.ID)

	messages := svc.MessageStore().Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, api.ID("1"), messages[0].ID)
	assert.Equal(t, api.ID("42"), messages[1].ID)
	assert.Equal(t, "When can I pick up?", messages[1].Body)
	assert.Equal(t, serverTime, messages[1].CreatedAt)
	assert.False(t, IsPlaceholder(messages[1].ID))

	// Confirmed message goes out as a courtesy echo for the other side.
	require.Len(t, channel.triggers, 1)
	assert.Equal(t, "message-sent", channel.triggers[0].event)
}

func TestSendFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{
			"c7": {{ID: "1", ConversationID: "c7", SenderType: api.SenderStore, Body: "Hi", CreatedAt: time.Now()}},
		},
		sendErr: errors.New("boom"),
	}
	svc := NewService(fapi, newFakeChannel(), testSession(), nil)
	_, err := svc.Open(ctx, "c7")
	require.NoError(t, err)

	_, err = svc.Send(ctx, "doomed")
	require.Error(t, err)

	messages := svc.MessageStore().Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, api.ID("1"), messages[0].ID)
}

func TestSendWithoutOpenConversation(t *testing.T) {
	svc := NewService(&fakeAPI{}, nil, testSession(), nil)
	_, err := svc.Send(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrNoActiveConversation)
}

func TestOpenReplacesPreviousConversation(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{
			"a": {{ID: "1", ConversationID: "a", Body: "from a", CreatedAt: time.Now()}},
			"b": {{ID: "9", ConversationID: "b", Body: "from b", CreatedAt: time.Now()}},
		},
	}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)

	_, err := svc.Open(ctx, "a")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "b")
	require.NoError(t, err)

	messages := svc.MessageStore().Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "from b", messages[0].Body)
	assert.Contains(t, channel.unsubscribes, "a")
}

func TestOpenSupersededDiscardsLateLoad(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{
			"a": {{ID: "1", ConversationID: "a", Body: "late", CreatedAt: time.Now()}},
		},
	}
	svc := NewService(fapi, newFakeChannel(), testSession(), nil)
	// While the load for "a" is in flight, the conversation is closed.
	fapi.onMessages = func(conversationID api.ID) {
		fapi.onMessages = nil
		svc.Close()
	}

	_, err := svc.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, 0, svc.MessageStore().Len())
}

func TestStaleSendIsNotReconciled(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{"a": nil, "b": nil},
		sendResult:     api.Message{ID: "42", ConversationID: "a", SenderType: api.SenderUser, SenderID: 12, Body: "late", CreatedAt: time.Now()},
	}
	svc := NewService(fapi, newFakeChannel(), testSession(), nil)
	_, err := svc.Open(ctx, "a")
	require.NoError(t, err)
	// The user switches conversations while the send is in flight.
	fapi.onSend = func() {
		fapi.onSend = nil
		_, openErr := svc.Open(ctx, "b")
		require.NoError(t, openErr)
	}

	_, err = svc.Send(ctx, "late")
	assert.ErrorIs(t, err, ErrSuperseded)

	for _, m := range svc.MessageStore().Messages() {
		assert.NotEqual(t, api.ID("42"), m.ID, "stale send must not land in the new conversation")
	}
}

func TestOwnEchoIsDropped(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{messagesByConv: map[api.ID][]api.Message{"c7": nil}}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)
	_, err := svc.Open(ctx, "c7")
	require.NoError(t, err)

	channel.pushMessage(t, "c7", api.Message{
		ID: "42", ConversationID: "c7", SenderType: api.SenderUser, SenderID: 12, Body: "my own echo", CreatedAt: time.Now(),
	})

	assert.Equal(t, 0, svc.MessageStore().Len())
}

func TestRemoteMessageAppendsAndNotifies(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		conversations:  []api.Conversation{{ID: "c7", StoreName: "Alpha Motors"}},
		messagesByConv: map[api.ID][]api.Message{"c7": nil},
	}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)
	require.NoError(t, svc.LoadConversations(ctx))
	_, err := svc.Open(ctx, "c7")
	require.NoError(t, err)

	var notified []api.Message
	svc.OnNewMessage(func(m api.Message) { notified = append(notified, m) })

	incoming := api.Message{ID: "8", ConversationID: "c7", SenderType: api.SenderStore, SenderID: 3, Body: "Sure, 10am works", CreatedAt: time.Now()}
	channel.pushMessage(t, "c7", incoming)
	channel.pushMessage(t, "c7", incoming) // duplicate delivery

	require.Len(t, notified, 1, "duplicate ids notify once")
	assert.Equal(t, 1, svc.MessageStore().Len())

	convs := svc.ConversationStore().All()
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "Sure, 10am works", convs[0].LastMessage.Body)
}

func TestRemoteMessageAfterCloseIsDropped(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{messagesByConv: map[api.ID][]api.Message{"c7": nil}}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)
	_, err := svc.Open(ctx, "c7")
	require.NoError(t, err)

	svc.Close()
	channel.pushMessage(t, "c7", api.Message{ID: "8", ConversationID: "c7", SenderType: api.SenderStore, Body: "too late"})

	assert.Equal(t, 0, svc.MessageStore().Len())
}

func TestSubscribeFailureDegradesToRESTOnly(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		messagesByConv: map[api.ID][]api.Message{
			"c7": {{ID: "1", ConversationID: "c7", Body: "Hi", CreatedAt: time.Now()}},
		},
		sendResult: api.Message{ID: "42", ConversationID: "c7", SenderType: api.SenderUser, SenderID: 12, Body: "still works", CreatedAt: time.Now()},
	}
	channel := newFakeChannel()
	channel.subscribeErr = errors.New("auth rejected")
	svc := NewService(fapi, channel, testSession(), nil)

	history, err := svc.Open(ctx, "c7")
	require.NoError(t, err, "subscription failure must not fail the open")
	assert.Len(t, history, 1)

	_, err = svc.Send(ctx, "still works")
	assert.NoError(t, err, "send path must not see realtime failures")
}

func TestStartConversationPrepends(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{
		conversations: []api.Conversation{{ID: "1", StoreName: "Old"}},
		created:       api.Conversation{ID: "9", StoreID: 5, StoreName: "Fresh Wheels"},
	}
	svc := NewService(fapi, nil, testSession(), nil)
	require.NoError(t, svc.LoadConversations(ctx))

	conv, err := svc.StartConversation(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, api.ID("9"), conv.ID)

	all := svc.ConversationStore().All()
	require.Len(t, all, 2)
	assert.Equal(t, api.ID("9"), all[0].ID)
}

func TestStartConversationFailureDoesNotPrepend(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{createErr: errors.New("no id in response")}
	svc := NewService(fapi, nil, testSession(), nil)

	_, err := svc.StartConversation(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, 0, svc.ConversationStore().Len())
}

func TestLoadConversationsFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{conversations: []api.Conversation{{ID: "1", StoreName: "Alpha"}}}
	svc := NewService(fapi, nil, testSession(), nil)
	require.NoError(t, svc.LoadConversations(ctx))

	fapi.convErr = errors.New("network down")
	err := svc.LoadConversations(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, svc.ConversationStore().Len(), "failed refresh keeps prior list")
}

func TestTypingEventsFilterSelf(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{messagesByConv: map[api.ID][]api.Message{"c7": nil}}
	channel := newFakeChannel()
	svc := NewService(fapi, channel, testSession(), nil)
	_, err := svc.Open(ctx, "c7")
	require.NoError(t, err)

	var seen []int64
	svc.OnTyping(func(isTyping bool, userID int64) { seen = append(seen, userID) })

	channel.pushTyping("c7", true, 12) // self
	channel.pushTyping("c7", true, 3)  // counterpart

	assert.Equal(t, []int64{3}, seen)
}
