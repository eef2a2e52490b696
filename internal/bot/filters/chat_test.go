package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func message(chatID int64, chatType string, from *tgbotapi.User) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: chatType}, From: from}
}

func TestChatFilter(t *testing.T) {
	user := &tgbotapi.User{ID: 1}
	bot := &tgbotapi.User{ID: 2, IsBot: true}

	f := NewChatFilter(-100)
	assert.True(t, f.CheckAccess(message(1, "private", user)))
	assert.True(t, f.CheckAccess(message(-100, "supergroup", user)))
	assert.False(t, f.CheckAccess(message(-200, "supergroup", user)))
	assert.False(t, f.CheckAccess(message(-100, "supergroup", bot)))
	assert.False(t, f.CheckAccess(message(-100, "supergroup", nil)))
	assert.False(t, f.CheckAccess(nil))

	privateOnly := NewChatFilter(0)
	assert.True(t, privateOnly.CheckAccess(message(1, "private", user)))
	assert.False(t, privateOnly.CheckAccess(message(0, "group", user)))
}
