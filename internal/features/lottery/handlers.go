// Package lottery — handlers.go обрабатывает команды !билет, !доп-билет.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// Handler обрабатывает команды лотереи.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик лотереи.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleFreeTicket обрабатывает !билет.
func (h *Handler) HandleFreeTicket(ctx context.Context, chatID, userID int64) {
	t, err := h.service.ClaimFreeTicket(ctx, userID)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("🎟 Ваш билет на %s: %s", h.service.CurrentPeriod(), t.Display()))
}

// HandleExtraTicket обрабатывает !доп-билет.
func (h *Handler) HandleExtraTicket(ctx context.Context, chatID, userID int64) {
	t, err := h.service.BuyExtraTicket(ctx, userID)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("🎟 Дополнительный билет: %s (−%s)",
		t.Display(), common.FormatBalance(h.service.cfg.ExtraTicketPrice)))
}

// HandleTickets показывает билеты текущего месяца.
func (h *Handler) HandleTickets(ctx context.Context, chatID, userID int64) {
	p := h.service.CurrentPeriod()
	tickets, err := h.service.Tickets(ctx, userID, p)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	h.sendMessage(chatID, FormatTickets(p, tickets))
}

// FormatTickets: список билетов для чата.
func FormatTickets(p Period, tickets []*Ticket) string {
	if len(tickets) == 0 {
		return fmt.Sprintf("🎟 На %s билетов нет. Заберите бесплатный: !билет", p)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎟 Ваши билеты на %s:\n", p))
	for _, t := range tickets {
		mark := ""
		if t.IsFree {
			mark = " (бесплатный)"
		}
		if t.IsWinner {
			mark += " 🏆"
		}
		sb.WriteString(fmt.Sprintf("• %s%s\n", t.Display(), mark))
	}
	return sb.String()
}

func (h *Handler) replyError(chatID, userID int64, err error) {
	switch {
	case errors.Is(err, common.ErrTicketAlreadyClaimed):
		h.sendMessage(chatID, "🎟 Бесплатный билет в этом месяце уже получен. Доп. билет: !доп-билет")
	case errors.Is(err, common.ErrInsufficientBalance):
		h.sendMessage(chatID, "💸 Недостаточно средств для покупки билета")
	case errors.Is(err, common.ErrFeatureDisabled):
		h.sendMessage(chatID, "🚫 Лотерея временно отключена")
	case errors.Is(err, common.ErrLedgerUnavailable):
		h.sendMessage(chatID, "⏳ Сервис временно недоступен, попробуйте позже")
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка лотереи")
		h.sendMessage(chatID, "❌ Ошибка лотереи, попробуйте позже")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
