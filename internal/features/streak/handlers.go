// Package streak — handlers.go обрабатывает команду !ежедневный.
package streak

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// Handler обрабатывает команды стрик-системы.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик стрик-команд.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleDaily обрабатывает команду !ежедневный.
//
// Формат ответа:
//
//	🎲 Ежедневный шанс: +30 DUNA
//	🔥 Серия: 3 дня (рекорд 5)
func (h *Handler) HandleDaily(ctx context.Context, chatID, userID int64) {
	claim, err := h.service.ClaimDaily(ctx, userID)
	if err != nil {
		h.replyClaimError(ctx, chatID, userID, err)
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🎲 Ежедневный шанс: %s\n🔥 Серия: %d %s (рекорд %d)",
		common.FormatSigned(claim.Reward),
		claim.Day, common.PluralizeDays(claim.Day), claim.Longest,
	))
}

func (h *Handler) replyClaimError(ctx context.Context, chatID, userID int64, err error) {
	switch {
	case IsAlreadyClaimed(err):
		text := "⏳ Сегодня бонус уже получен, приходите завтра"
		if st, gerr := h.service.GetStreak(ctx, userID); gerr == nil {
			text += fmt.Sprintf("\n🔥 Серия: %d %s, завтра: %s",
				st.CurrentStreak, common.PluralizeDays(st.CurrentStreak),
				common.FormatBalance(GetReward(st.CurrentStreak+1)))
		}
		h.sendMessage(chatID, text)
	case errors.Is(err, common.ErrFeatureDisabled):
		h.sendMessage(chatID, "🚫 Ежедневный шанс временно отключён")
	case errors.Is(err, common.ErrLedgerUnavailable):
		h.sendMessage(chatID, "⏳ Сервис временно недоступен, попробуйте позже")
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка ежедневного бонуса")
		h.sendMessage(chatID, "❌ Не удалось начислить бонус")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
