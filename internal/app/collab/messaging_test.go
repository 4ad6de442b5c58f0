package collab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/internal/pkg/errs"
)

func TestChatReachesEveryMemberIncludingSender(t *testing.T) {
	m, a, b := setupRoomPair(t)

	msg, err := m.Chat(a, "r", "hello", "")
	noErr(t, err)
	assert.NotEmpty(t, msg.ID)

	for _, c := range []*Client{a, b} {
		chats := only(drain(t, c), TypeChatMessage)
		require.Len(t, chats, 1)
		got := payloadOf[ChatMessage](t, chats[0])
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "hello", got.Content)
		assert.Equal(t, "user-a", got.UserID)
		assert.Equal(t, "Alice", got.UserName)
		assert.Equal(t, ChatKindMessage, got.Kind)
		assert.Equal(t, "r", got.RoomID)
		assert.Empty(t, got.TempID)
	}
}

func TestChatEchoesTempIDToSenderOnly(t *testing.T) {
	m, a, b := setupRoomPair(t)

	msg, err := m.Chat(a, "r", "hello", "tmp-1")
	noErr(t, err)
	assert.Equal(t, "tmp-1", msg.TempID)

	own := only(drain(t, a), TypeChatMessage)
	require.Len(t, own, 1)
	assert.Equal(t, "tmp-1", payloadOf[ChatMessage](t, own[0]).TempID)

	others := only(drain(t, b), TypeChatMessage)
	require.Len(t, others, 1)
	got := payloadOf[ChatMessage](t, others[0])
	assert.Empty(t, got.TempID)
	assert.Equal(t, msg.ID, got.ID)
}

func TestChatValidation(t *testing.T) {
	m, a, b := setupRoomPair(t)

	_, err := m.Chat(a, "r", "   ", "")
	expectCode(t, err, errs.ErrMessageContentEmpty)

	_, err = m.Chat(a, "r", strings.Repeat("x", MaxContentBytes+1), "")
	expectCode(t, err, errs.ErrMessageContentTooLong)

	_, err = m.Chat(a, "r", "bad \xff bytes", "")
	expectCode(t, err, errs.ErrMalformedPayload)

	_, err = m.Chat(a, "r", strings.Repeat("x", MaxContentBytes), "")
	noErr(t, err)

	assert.Len(t, drain(t, b), 1)
}

func TestTyping(t *testing.T) {
	m, a, b := setupRoomPair(t)

	noErr(t, m.Typing(a, "r", true))
	noErr(t, m.Typing(a, "r", false))

	frames := drain(t, b)
	require.Len(t, frames, 2)
	assert.Equal(t, TypeUserTyping, frames[0].Type)
	assert.Equal(t, TypeUserStoppedTyping, frames[1].Type)

	p := payloadOf[TypingPayload](t, frames[0])
	assert.Equal(t, "user-a", p.UserID)
	assert.Equal(t, "Alice", p.UserName)

	assert.Empty(t, drain(t, a))
}

func TestActivity(t *testing.T) {
	m, a, b := setupRoomPair(t)

	noErr(t, m.Activity(a, "r", ActivityIdle))

	frames := only(drain(t, b), TypeUserActivity)
	require.Len(t, frames, 1)
	p := payloadOf[ActivityBroadcastPayload](t, frames[0])
	assert.Equal(t, "user-a", p.UserID)
	assert.Equal(t, ActivityIdle, p.Status)

	expectCode(t, m.Activity(a, "r", "sleeping"), errs.ErrMalformedPayload)
	assert.Empty(t, drain(t, b))
}
