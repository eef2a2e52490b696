// Package referrals: handlers.go обрабатывает команды:
// !реферал [код], !топ-приглашений и /start ref_<код>.
package referrals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// Handler обрабатывает команды реферальной программы.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик рефералов.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleReferral: без аргументов показывает код и друзей, с кодом активирует его.
func (h *Handler) HandleReferral(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) > 0 {
		h.HandleActivate(ctx, chatID, userID, args[0])
		return
	}

	sum, err := h.service.Summary(ctx, userID)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 Ваш код приглашения: %s\n", sum.Code))
	if link := h.inviteLink(sum.Code); link != "" {
		sb.WriteString(fmt.Sprintf("🔗 %s\n", link))
	}
	sb.WriteString(fmt.Sprintf("🎁 Вы и друг получите по %s\n", common.FormatBalance(sum.Bonus)))
	sb.WriteString(fmt.Sprintf("\nПриглашено друзей: %d\n", len(sum.Invited)))
	for _, i := range sum.Invited {
		sb.WriteString(fmt.Sprintf("• %s\n", i.DisplayName()))
	}
	if sum.InvitedBy == nil {
		sb.WriteString("\nЕсть код друга? !реферал <код>")
	}
	h.sendMessage(chatID, sb.String())
}

// HandleActivate активирует код друга (также из /start ref_<код>).
func (h *Handler) HandleActivate(ctx context.Context, chatID, userID int64, code string) {
	act, err := h.service.Activate(ctx, userID, code)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	text := fmt.Sprintf("🎉 Код принят! Вам и другу начислено по %s", common.FormatBalance(act.Bonus))
	if act.InviteeQueued || act.InviterQueued {
		text += "\n⏳ Начисление придёт чуть позже"
	}
	h.sendMessage(chatID, text)
}

// HandleTop показывает рейтинг пригласивших.
func (h *Handler) HandleTop(ctx context.Context, chatID, userID int64) {
	top, err := h.service.TopInviters(ctx, 10)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	if len(top) == 0 {
		h.sendMessage(chatID, "👥 Пока никто никого не пригласил. Будьте первым: !реферал")
		return
	}
	var sb strings.Builder
	sb.WriteString("🏆 Топ пригласивших:\n")
	for i, inv := range top {
		sb.WriteString(fmt.Sprintf("%d. %s — %d\n", i+1, inv.DisplayName(), inv.TotalInvites))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) inviteLink(code string) string {
	if h.bot == nil || h.bot.Self.UserName == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%s", h.bot.Self.UserName, StartPrefix, code)
}

func (h *Handler) replyError(chatID, userID int64, err error) {
	switch {
	case errors.Is(err, common.ErrReferralCodeNotFound):
		h.sendMessage(chatID, "❓ Такого кода приглашения нет")
	case errors.Is(err, common.ErrSelfReferral):
		h.sendMessage(chatID, "🙃 Свой код активировать нельзя")
	case errors.Is(err, common.ErrReferralAlreadyActivated):
		h.sendMessage(chatID, "👥 Код приглашения уже активирован")
	case errors.Is(err, common.ErrFeatureDisabled):
		h.sendMessage(chatID, "🚫 Приглашения временно отключены")
	case errors.Is(err, common.ErrLedgerUnavailable):
		h.sendMessage(chatID, "⏳ Сервис временно недоступен, попробуйте позже")
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка рефералов")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
