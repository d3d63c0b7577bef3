package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/proto/waE2E"
)

func TestMessageText(t *testing.T) {
	plain := "Saturday all day"
	assert.Equal(t, plain, messageText(&waE2E.Message{Conversation: &plain}))

	extended := "John 5105935336"
	assert.Equal(t, extended, messageText(&waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: &extended},
	}))

	assert.Empty(t, messageText(&waE2E.Message{}))
}
