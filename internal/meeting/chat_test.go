package meeting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLogKeepsArrivalOrder(t *testing.T) {
	log := NewChatLog()

	log.Append(ChatMessage{SenderName: "Alice", Text: "hello"})
	log.Append(ChatMessage{SenderName: "Bob", Text: "hi"})

	msgs := log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "hi", msgs[1].Text)
	assert.Equal(t, 2, log.Len())
}

func TestChatLogMessagesReturnsCopy(t *testing.T) {
	log := NewChatLog()
	log.Append(ChatMessage{Text: "original", Timestamp: time.Now()})

	msgs := log.Messages()
	msgs[0].Text = "mutated"

	assert.Equal(t, "original", log.Messages()[0].Text)
}

func TestStateMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(messageTypeMediaState, StateAnnouncement{
		AudioOn:       true,
		SharingScreen: true,
		DisplayName:   "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, messageTypeMediaState, msg.Type)

	var ann StateAnnouncement
	require.NoError(t, msg.DecodePayload(&ann))
	assert.True(t, ann.AudioOn)
	assert.False(t, ann.VideoOn)
	assert.True(t, ann.SharingScreen)
	assert.Equal(t, "Alice", ann.DisplayName)
}
