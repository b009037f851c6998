package viewmodel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatPair signs up two users and opens a chat between them.
func chatPair(t *testing.T, e *env) (a, b *client, chatID string) {
	t.Helper()
	a = e.client(t, Options{})
	signUp(t, a, "ana", "5550001")
	b = e.client(t, Options{})
	signUp(t, b, "bruno", "5551234")
	chat, err := a.vm.AddChat(context.Background(), "5551234")
	require.NoError(t, err)
	return a, b, chat.ChatID
}

func TestSendMessageIsMirrored(t *testing.T) {
	e := newEnv(t)
	a, b, chatID := chatPair(t, e)

	require.NoError(t, a.vm.StartMessageSync(chatID))
	require.NoError(t, b.vm.StartMessageSync(chatID))
	assert.Equal(t, chatID, a.vm.ActiveChat())

	require.NoError(t, a.vm.SendMessage(context.Background(), chatID, "hello"))

	uid := a.vm.CurrentUser().UserID
	for _, c := range []*client{a, b} {
		require.Eventually(t, func() bool {
			msgs := c.vm.Messages()
			return len(msgs) == 1 &&
				msgs[0].Text == "hello" &&
				msgs[0].SenderID == uid &&
				msgs[0].Delivery != Sending
		}, waitFor, tick)
	}
	assert.False(t, a.vm.Loading(AreaMessages))
	assert.Equal(t, int64(1), e.count(t, backend.Messages(chatID)))
}

func TestSendMessageShowsSendingFirst(t *testing.T) {
	e := newEnv(t)
	a, _, chatID := chatPair(t, e)
	require.NoError(t, a.vm.StartMessageSync(chatID))
	require.Eventually(t, func() bool { return !a.vm.Loading(AreaMessages) }, waitFor, tick)

	a.docs.sendGate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- a.vm.SendMessage(context.Background(), chatID, "hello") }()

	require.Eventually(t, func() bool {
		msgs := a.vm.Messages()
		return len(msgs) == 1 && msgs[0].Delivery == Sending
	}, waitFor, tick)

	close(a.docs.sendGate)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		msgs := a.vm.Messages()
		return len(msgs) == 1 && msgs[0].Text == "hello" && msgs[0].Delivery == ""
	}, waitFor, tick)
}

func TestSendMessageNeverShownTwice(t *testing.T) {
	e := newEnv(t)
	a, _, chatID := chatPair(t, e)
	require.NoError(t, a.vm.StartMessageSync(chatID))
	require.Eventually(t, func() bool { return !a.vm.Loading(AreaMessages) }, waitFor, tick)

	// Let the stored message reach the mirror before SendMessage returns.
	a.docs.afterSend = func() {
		require.Eventually(t, func() bool {
			msgs := a.vm.Messages()
			return len(msgs) > 0 && msgs[0].Delivery == ""
		}, waitFor, tick)
		assert.Len(t, a.vm.Messages(), 1)
	}
	require.NoError(t, a.vm.SendMessage(context.Background(), chatID, "hello"))

	msgs := a.vm.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, Delivery(""), msgs[0].Delivery)
}

func TestSendMessageRollsBackOnFailure(t *testing.T) {
	e := newEnv(t)
	a, _, chatID := chatPair(t, e)
	require.NoError(t, a.vm.StartMessageSync(chatID))
	require.Eventually(t, func() bool { return !a.vm.Loading(AreaMessages) }, waitFor, tick)

	a.docs.sendErr = errors.New("unavailable")
	err := a.vm.SendMessage(context.Background(), chatID, "hello")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBackend))

	assert.Empty(t, a.vm.Messages())
	msg, _ := a.vm.TakeNotification()
	assert.Equal(t, "Cannot send message:unavailable", msg)
	assert.Zero(t, e.count(t, backend.Messages(chatID)))
}

func TestSendMessageValidation(t *testing.T) {
	e := newEnv(t)
	a, _, chatID := chatPair(t, e)
	before := a.docs.calls.Load()

	for _, text := range []string{"", "   "} {
		err := a.vm.SendMessage(context.Background(), chatID, text)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	err := a.vm.SendMessage(context.Background(), "", "hello")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, before, a.docs.calls.Load())
}

func TestSendToClosedChatSkipsMirror(t *testing.T) {
	e := newEnv(t)
	a, _, chatID := chatPair(t, e)

	require.NoError(t, a.vm.SendMessage(context.Background(), chatID, "hello"))
	assert.Empty(t, a.vm.Messages())
	assert.Equal(t, int64(1), e.count(t, backend.Messages(chatID)))
}

func messageSnapshot(texts ...string) backend.Snapshot {
	var snap backend.Snapshot
	for i, text := range texts {
		data, _ := json.Marshal(Message{SenderID: "u1", Text: text, Timestamp: "t"})
		snap.Docs = append(snap.Docs, backend.Document{ID: text, Seq: int64(i + 1), Data: data})
	}
	return snap
}

func TestStopMessageSyncBlocksLateSnapshots(t *testing.T) {
	c := newEnv(t).client(t, Options{})
	c.docs.leak = true

	require.NoError(t, c.vm.StartMessageSync("chat-1"))
	deliver := c.docs.leakedFunc(0)

	deliver(messageSnapshot("one"), nil)
	require.Len(t, c.vm.Messages(), 1)

	c.vm.StopMessageSync()
	assert.Empty(t, c.vm.Messages())
	assert.Empty(t, c.vm.ActiveChat())

	// The subscription ignored Stop and keeps delivering.
	deliver(messageSnapshot("one", "two"), nil)
	deliver(backend.Snapshot{}, errors.New("late failure"))
	assert.Empty(t, c.vm.Messages())
	_, pending := c.vm.TakeNotification()
	assert.False(t, pending)
}

func TestStartMessageSyncReplacesPrevious(t *testing.T) {
	c := newEnv(t).client(t, Options{})
	c.docs.leak = true

	require.NoError(t, c.vm.StartMessageSync("chat-1"))
	require.NoError(t, c.vm.StartMessageSync("chat-2"))
	first, second := c.docs.leakedFunc(0), c.docs.leakedFunc(1)

	first(messageSnapshot("old"), nil)
	assert.Empty(t, c.vm.Messages())

	second(messageSnapshot("new"), nil)
	msgs := c.vm.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "new", msgs[0].Text)
	assert.Equal(t, "chat-2", c.vm.ActiveChat())
}
