// Package admin — handlers.go обрабатывает админ-команды в личных сообщениях:
// /login, /logout, /payments, /confirm, /reject, /outbox, /draw.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/payments"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleCommand маршрутизирует админ-команду. Возвращает false, если команда не админская.
func (h *Handler) HandleCommand(ctx context.Context, msg *tgbotapi.Message, command string, args []string) bool {
	chatID, userID := msg.Chat.ID, msg.From.ID

	switch command {
	case "login":
		if !msg.Chat.IsPrivate() {
			h.sendMessage(chatID, "🔐 Вход только в личных сообщениях")
			return true
		}
		h.deleteMessage(chatID, msg.MessageID) // пароль не должен оставаться в чате
		h.handleLogin(ctx, chatID, userID, strings.Join(args, " "))
	case "logout":
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).Error("Ошибка выхода администратора")
		}
		h.sendMessage(chatID, "👋 Сессия закрыта")
	case "payments":
		h.handlePayments(ctx, chatID, userID)
	case "confirm", "reject":
		h.handleResolve(ctx, chatID, userID, command, args)
	case "outbox":
		h.handleOutbox(ctx, chatID, userID)
	case "draw":
		h.handleDraw(ctx, chatID, userID)
	default:
		return false
	}
	return true
}

func (h *Handler) handleLogin(ctx context.Context, chatID, userID int64, password string) {
	if password == "" {
		h.sendMessage(chatID, "Использование: /login <пароль>")
		return
	}
	if err := h.service.Login(ctx, userID, password); err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, "✅ Аутентификация успешна!\n\n"+
		"/payments — ожидающие платежи\n"+
		"/confirm <id> — подтвердить\n"+
		"/reject <id> — отклонить\n"+
		"/outbox — очередь выплат\n"+
		"/draw — розыгрыш прошлого месяца")
}

func (h *Handler) handlePayments(ctx context.Context, chatID, userID int64) {
	list, err := h.service.PendingPayments(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, FormatPayments(list))
}

func (h *Handler) handleResolve(ctx context.Context, chatID, userID int64, command string, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, fmt.Sprintf("Использование: /%s <id>", command))
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		h.sendMessage(chatID, "❌ Некорректный номер платежа")
		return
	}

	var p *payments.Payment
	if command == "confirm" {
		p, err = h.service.ConfirmPayment(ctx, userID, id)
	} else {
		p, err = h.service.RejectPayment(ctx, userID, id)
	}
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Платёж #%d: %s", p.ID, p.Status))
	h.sendMessage(p.UserID, userNotice(p))
}

func userNotice(p *payments.Payment) string {
	switch {
	case p.Kind == payments.KindDeposit && p.Status == payments.StatusCompleted:
		return fmt.Sprintf("💎 Пополнение #%d на %s TON зачислено", p.ID, p.TonAmount)
	case p.Kind == payments.KindWithdrawal && p.Status == payments.StatusCompleted:
		return fmt.Sprintf("📤 Вывод #%d на %s TON отправлен", p.ID, p.TonAmount)
	case p.Kind == payments.KindWithdrawal:
		return fmt.Sprintf("↩️ Вывод #%d отклонён, %s TON возвращены на баланс", p.ID, p.TonAmount)
	default:
		return fmt.Sprintf("❌ Пополнение #%d не подтверждено", p.ID)
	}
}

func (h *Handler) handleOutbox(ctx context.Context, chatID, userID int64) {
	stats, err := h.service.OutboxStats(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("📬 Очередь выплат\nОжидают: %d\nВыполнено: %d\nОшибки: %d",
		stats.Pending, stats.Succeeded, stats.Dead))
}

func (h *Handler) handleDraw(ctx context.Context, chatID, userID int64) {
	w, err := h.service.DrawLottery(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("🏆 Победитель %02d.%d: билет %s (user %d)",
		w.Month, w.Year, common.FormatTicketCode(w.TicketCode), w.UserID))
}

// FormatPayments — список ожидающих платежей.
func FormatPayments(list []*payments.Payment) string {
	if len(list) == 0 {
		return "✅ Ожидающих платежей нет"
	}
	var sb strings.Builder
	sb.WriteString("⏳ Ожидающие платежи:\n\n")
	for _, p := range list {
		line := fmt.Sprintf("#%d %s %s TON, user %d, %s", p.ID, p.Kind, p.TonAmount, p.UserID,
			common.FormatDateTime(p.CreatedAt))
		if p.WalletAddress != "" {
			line += "\n   → " + p.WalletAddress
		}
		if p.Kind == payments.KindDeposit && p.ExternalRef != "" {
			line += "\n   ref: " + p.ExternalRef
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (h *Handler) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, common.ErrNotAdmin),
		errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrTooManyAttempts),
		errors.Is(err, common.ErrPaymentNotFound),
		errors.Is(err, common.ErrPaymentResolved),
		errors.Is(err, common.ErrDrawAlreadyDone),
		errors.Is(err, common.ErrNoTickets):
		h.sendMessage(chatID, "❌ "+err.Error())
	case errors.Is(err, common.ErrSessionExpired):
		h.sendMessage(chatID, "🔐 "+err.Error()+": /login <пароль>")
	default:
		log.WithError(err).Error("Ошибка админ-команды")
		h.sendMessage(chatID, "❌ Ошибка: "+err.Error())
	}
}

func (h *Handler) deleteMessage(chatID int64, messageID int) {
	if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.WithError(err).Debug("Не удалось удалить сообщение с паролем")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
