// Package bot — polling Telegram и маршрутизация команд к обработчикам фич.
package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/bot/filters"
	"serotonyl.ru/duna-casino/internal/bot/middleware"
	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/config"
	"serotonyl.ru/duna-casino/internal/features/admin"
	"serotonyl.ru/duna-casino/internal/features/casino"
	"serotonyl.ru/duna-casino/internal/features/economy"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/members"
	"serotonyl.ru/duna-casino/internal/features/referrals"
	"serotonyl.ru/duna-casino/internal/features/streak"
)

// Handlers — обработчики команд по фичам.
type Handlers struct {
	Members   *members.Handler
	Economy   *economy.Handler
	Streak    *streak.Handler
	Casino    *casino.Handler
	Lottery   *lottery.Handler
	Referrals *referrals.Handler
	Admin     *admin.Handler
}

// Bot — главная структура бота.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	members     *members.Service
	handlers    Handlers
	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	parser      *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота.
func New(api *tgbotapi.BotAPI, cfg *config.Config, memberService *members.Service, handlers Handlers) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		members:     memberService,
		handlers:    handlers,
		chatFilter:  filters.NewChatFilter(cfg.BotGroupChatID),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	defer b.rateLimiter.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil {
		return
	}

	if len(message.NewChatMembers) > 0 {
		if b.chatFilter.CheckAccess(message) {
			b.handlers.Members.HandleNewChatMembers(ctx, message.NewChatMembers)
		}
		return
	}

	if message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	// Ошибку регистрации не игнорируем: бан и недоступная БД останавливают команду.
	if err := b.members.EnsureMember(ctx, members.ProfileFromUser(message.From)); err != nil {
		log.WithError(err).WithField("user_id", message.From.ID).Warn("EnsureMember failed")
		if errors.Is(err, common.ErrUserBanned) {
			b.sendMessage(message.Chat.ID, "⛔ Доступ к казино закрыт")
		}
		return
	}

	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": len(args),
	}).Debug("routing command")

	if b.handlers.Admin.HandleCommand(ctx, message, cmd, args) {
		return
	}

	switch cmd {
	case "start":
		// ссылка приглашения: /start ref_<код>
		if len(args) > 0 && strings.HasPrefix(strings.ToLower(args[0]), referrals.StartPrefix) {
			b.handlers.Referrals.HandleActivate(ctx, chatID, userID, args[0])
		}
		b.sendHelp(chatID)
	case "help", "помощь":
		b.sendHelp(chatID)

	case "баланс":
		b.handlers.Economy.HandleBalance(ctx, chatID, userID)
	case "транзакции":
		b.handlers.Economy.HandleTransactions(ctx, chatID, userID)
	case "бонус":
		b.handlers.Economy.HandleWelcomeBonus(ctx, chatID, userID)
	case "ежедневный":
		b.handlers.Streak.HandleDaily(ctx, chatID, userID)

	case "кости":
		b.handlers.Casino.HandleDice(ctx, chatID, userID, args)
	case "баккара":
		b.handlers.Casino.HandleBaccarat(ctx, chatID, userID, args)
	case "рулетка":
		b.handlers.Casino.HandleRoulette(ctx, chatID, userID, args)
	case "блэкджек", "бж":
		b.handlers.Casino.HandleBlackjackStart(ctx, chatID, userID, args)
	case "еще", "ещё":
		b.handlers.Casino.HandleBlackjackHit(ctx, chatID, userID)
	case "хватит":
		b.handlers.Casino.HandleBlackjackStand(ctx, chatID, userID)
	case "история":
		b.handlers.Casino.HandleHistory(chatID, userID, args)
	case "статистика":
		b.handlers.Casino.HandleStats(ctx, chatID, userID)

	case "билет":
		b.handlers.Lottery.HandleFreeTicket(ctx, chatID, userID)
	case "доп-билет":
		b.handlers.Lottery.HandleExtraTicket(ctx, chatID, userID)
	case "билеты":
		b.handlers.Lottery.HandleTickets(ctx, chatID, userID)

	case "реферал", "друзья":
		b.handlers.Referrals.HandleReferral(ctx, chatID, userID, args)
	case "топ-приглашений":
		b.handlers.Referrals.HandleTop(ctx, chatID, userID)
	}
}

const helpText = `🎰 Duna Casino

💰 !баланс, !транзакции
🎁 !бонус — приветственный бонус
🔥 !ежедневный — ежедневный бонус (серия растёт каждый день)

🎲 !кости <odd|even|over|under> <ставка> [кол-во]
🃏 !баккара <player|banker|tie> <ставка> [множитель]
🎡 !рулетка <ставка> <тип> [значение] ...
♠️ !блэкджек <ставка> [множитель], затем !еще или !хватит
📜 !история <игра>, !статистика

🎟 !билет — бесплатный билет месяца
🎟 !доп-билет — дополнительный билет
🎟 !билеты — ваши билеты

👥 !реферал [код] — пригласить друга или активировать его код
🏆 !топ-приглашений`

// sendHelp отправляет список команд и кнопку Mini-App, если WEBAPP_URL задан.
func (b *Bot) sendHelp(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpText)
	if b.cfg.WebAppURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🎰 Открыть казино", b.cfg.WebAppURL)),
		)
	}
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет личное сообщение (уведомления джобов и платежей).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
		return
	}
	log.WithField("user_id", userID).Debug("message sent")
}

// CommandParser разбирает команды с префиксами ! . /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команды отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
