// Package economy — handlers.go обрабатывает команды:
// !баланс, !транзакции, !бонус (приветственный).
package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance обрабатывает команду !баланс.
//
// Формат ответа:
//
//	💰 Баланс: 2 350 DUNA
//	💎 TON: 1.5
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	view, err := h.service.GetBalance(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf("💰 Баланс: %s\n💎 TON: %s", common.FormatBalance(view.Amount), view.Ton.String())
	if view.Stale {
		text += fmt.Sprintf("\n⚠️ Данные на %s, сервис временно недоступен", common.FormatDateTime(view.AsOf))
	}
	h.sendMessage(chatID, text)
}

// HandleTransactions обрабатывает команду !транзакции: последние 10 операций.
func (h *Handler) HandleTransactions(ctx context.Context, chatID, userID int64) {
	txs, err := h.service.Transactions(ctx, userID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения транзакций")
		h.sendMessage(chatID, "❌ Ошибка получения истории транзакций")
		return
	}
	h.sendMessage(chatID, FormatTransactions(txs))
}

// HandleWelcomeBonus обрабатывает команду !бонус.
func (h *Handler) HandleWelcomeBonus(ctx context.Context, chatID, userID int64) {
	tx, err := h.service.ClaimWelcomeBonus(ctx, userID)
	switch {
	case errors.Is(err, common.ErrBonusAlreadyClaimed):
		h.sendMessage(chatID, "🎁 Приветственный бонус уже получен")
	case errors.Is(err, common.ErrLedgerUnavailable):
		h.sendMessage(chatID, "⏳ Сервис временно недоступен, попробуйте позже")
	case err != nil:
		log.WithError(err).Error("Ошибка начисления бонуса")
		h.sendMessage(chatID, "❌ Не удалось начислить бонус")
	default:
		h.sendMessage(chatID, fmt.Sprintf("🎁 Приветственный бонус: %s", common.FormatSigned(tx.Amount)))
	}
}

// FormatTransactions форматирует историю для чата.
func FormatTransactions(txs []*Transaction) string {
	if len(txs) == 0 {
		return "📋 У вас пока нет транзакций"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d транзакций:\n\n", len(txs)))
	for i, tx := range txs {
		amount := common.FormatSigned(tx.Amount)
		if !tx.TonAmount.IsZero() {
			amount = fmt.Sprintf("%s TON", tx.TonAmount.StringFixed(2))
			if tx.Amount != 0 {
				amount += ", " + common.FormatSigned(tx.Amount)
			}
		}
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1, common.FormatDateTime(tx.CreatedAt), amount, tx.Description))
	}
	return sb.String()
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
