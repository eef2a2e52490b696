// Package filters решает, в каких чатах бот отвечает.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает личные сообщения и один групповой чат.
type ChatFilter struct {
	groupChatID int64 // 0 — только личка
}

// NewChatFilter создаёт фильтр. groupChatID = 0 отключает групповой чат.
func NewChatFilter(groupChatID int64) *ChatFilter {
	return &ChatFilter{groupChatID: groupChatID}
}

// CheckAccess сообщает, обрабатывать ли сообщение.
func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil || message.From.IsBot {
		// сервисные сообщения каналов и другие боты
		return false
	}

	if message.Chat.IsPrivate() {
		return true
	}
	if f.groupChatID != 0 && message.Chat.ID == f.groupChatID {
		return true
	}

	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
	}).Debug("deny: чужой чат")
	return false
}
