// Package casino — handlers.go обрабатывает игровые команды бота:
// !кости, !баккара, !рулетка, !блэкджек, !еще, !хватит, !история, !статистика.
package casino

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
)

// Handler обрабатывает команды казино.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик казино.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleDice обрабатывает !кости <odd|even|over|under> <ставка> [кол-во].
//
// Формат ответа:
//
//	🎲 3 · 5 · 6 = 14
//	✅ Ставка over10: +40 DUNA
func (h *Handler) HandleDice(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !кости <odd|even|over|under> <ставка> [кол-во]")
		return
	}
	bet, ok := dice.ParseBetType(strings.ToLower(args[0]))
	if !ok {
		h.sendMessage(chatID, "❌ Тип ставки: odd, even, over или under")
		return
	}
	w, ok := parseWager(args[1:])
	if !ok {
		h.sendMessage(chatID, "❌ Ставка и количество должны быть числами")
		return
	}

	res, err := h.service.PlayDice(ctx, userID, w, bet)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	d := res.Details.(DiceDetails)
	text := fmt.Sprintf("🎲 %d · %d · %d = %d\n%s",
		d.Roll[0], d.Roll[1], d.Roll[2], d.Sum, formatOutcome(res))
	h.sendMessage(chatID, text)
}

// HandleBaccarat обрабатывает !баккара <player|banker|tie> <ставка> [множитель].
func (h *Handler) HandleBaccarat(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !баккара <player|banker|tie> <ставка> [множитель]")
		return
	}
	side, ok := baccarat.ParseSide(strings.ToLower(args[0]))
	if !ok {
		h.sendMessage(chatID, "❌ Ставка: player, banker или tie")
		return
	}
	w, ok := parseWager(args[1:])
	if !ok {
		h.sendMessage(chatID, "❌ Ставка и множитель должны быть числами")
		return
	}

	res, err := h.service.PlayBaccarat(ctx, userID, w, side)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	text := fmt.Sprintf("🃏 БАККАРА\n\nИгрок: %s (%d)\nБанкир: %s (%d)\nПобедил: %s\n\n%s",
		cards.FormatHand(res.Hand.PlayerCards), res.Hand.PlayerScore,
		cards.FormatHand(res.Hand.BankerCards), res.Hand.BankerScore,
		res.Hand.Winner, formatOutcome(&res.RoundResult))
	h.sendMessage(chatID, text)
}

// HandleRoulette обрабатывает !рулетка <ставка> <тип> [значение] ...
//
// Пример: !рулетка 10 red 5 number 17 20 dozen 2
func (h *Handler) HandleRoulette(ctx context.Context, chatID, userID int64, args []string) {
	bets, err := ParseRouletteArgs(args)
	if err != nil || len(bets) == 0 {
		h.sendMessage(chatID, "❌ Формат: !рулетка <ставка> <тип> [значение] ...\n"+
			"Типы: red, black, odd, even, low, high, number N, dozen 1-3")
		return
	}

	res, err := h.service.SpinRoulette(ctx, userID, bets)
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎡 Выпало: %d (%s)\n\n", res.Spin.Number, res.Spin.Color))
	for _, o := range res.Spin.Outcomes {
		mark := "❌"
		if o.Won {
			mark = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %s %d: %s\n", mark, o.Bet.Kind, o.Bet.Amount, common.FormatSigned(o.Win)))
	}
	sb.WriteString("\n" + formatOutcome(&res.RoundResult))
	h.sendMessage(chatID, sb.String())
}

// HandleBlackjackStart обрабатывает !блэкджек <ставка> [множитель].
func (h *Handler) HandleBlackjackStart(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !блэкджек <ставка> [множитель]")
		return
	}
	w, ok := parseWager(args)
	if !ok {
		h.sendMessage(chatID, "❌ Ставка и множитель должны быть числами")
		return
	}
	view, err := h.service.StartBlackjack(ctx, userID, w)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	h.sendMessage(chatID, formatBlackjack(view))
}

// HandleBlackjackHit обрабатывает !еще.
func (h *Handler) HandleBlackjackHit(ctx context.Context, chatID, userID int64) {
	view, err := h.service.HitBlackjack(ctx, userID)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	h.sendMessage(chatID, formatBlackjack(view))
}

// HandleBlackjackStand обрабатывает !хватит.
func (h *Handler) HandleBlackjackStand(ctx context.Context, chatID, userID int64) {
	view, err := h.service.StandBlackjack(ctx, userID)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	h.sendMessage(chatID, formatBlackjack(view))
}

// HandleHistory обрабатывает !история <игра>.
func (h *Handler) HandleHistory(chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !история <blackjack|baccarat|roulette|dice>")
		return
	}
	game, ok := ParseGameKind(strings.ToLower(args[0]))
	if !ok {
		h.sendMessage(chatID, "❌ Игры: blackjack, baccarat, roulette, dice")
		return
	}

	items := h.service.History(userID, game)
	if len(items) == 0 {
		h.sendMessage(chatID, fmt.Sprintf("📜 %s: история пуста", game.Title()))
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 %s, последние %d:\n\n", game.Title(), len(items)))
	for i, r := range items {
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1, common.FormatDateTime(r.CreatedAt), r.Outcome, common.FormatSigned(r.Net)))
	}
	h.sendMessage(chatID, sb.String())
}

// HandleStats обрабатывает !статистика.
//
// Формат ответа:
//
//	📊 СТАТИСТИКА КАЗИНО
//	Всего раундов: 47
//	Поставлено: 2 350 DUNA
//	Выиграно: 2 120 DUNA
//	Чистая прибыль: -230 DUNA
//	💎 Лучший выигрыш: 1 500 DUNA
//	📈 Твой RTP: 90.21%
func (h *Handler) HandleStats(ctx context.Context, chatID, userID int64) {
	stats, err := h.service.Stats(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики казино")
		h.sendMessage(chatID, "❌ Ошибка получения статистики")
		return
	}
	if stats.TotalRounds == 0 {
		h.sendMessage(chatID, "📊 У тебя пока нет статистики. Сыграй первый раунд!")
		return
	}

	text := fmt.Sprintf(
		"📊 СТАТИСТИКА КАЗИНО\n\n"+
			"Всего раундов: %d\n"+
			"Поставлено: %s\n"+
			"Выиграно: %s\n"+
			"Чистая прибыль: %s\n\n"+
			"💎 Лучший выигрыш: %s\n"+
			"📈 Твой RTP: %.2f%%",
		stats.TotalRounds,
		common.FormatBalance(stats.TotalWagered),
		common.FormatBalance(stats.TotalWon),
		common.FormatSigned(stats.NetProfit()),
		common.FormatBalance(stats.BiggestWin),
		CalculateRTP(stats.TotalWagered, stats.TotalWon),
	)
	h.sendMessage(chatID, text)
}

// ParseRouletteArgs разбирает последовательность "<ставка> <тип> [значение]".
func ParseRouletteArgs(args []string) ([]roulette.Bet, error) {
	var bets []roulette.Bet
	for i := 0; i < len(args); {
		amount, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil || i+1 >= len(args) {
			return nil, fmt.Errorf("ставка %q: %w", args[i], common.ErrInvalidSelection)
		}
		kind := strings.ToLower(args[i+1])
		i += 2

		value := ""
		if k, ok := roulette.ParseKind(kind); ok && k.NeedsValue() {
			if i >= len(args) {
				return nil, fmt.Errorf("%s без значения: %w", kind, common.ErrInvalidSelection)
			}
			value = strings.ToLower(args[i])
			i++
		}
		b, err := roulette.ParseBet(kind, value, amount)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, nil
}

// parseWager разбирает "<ставка> [множитель]"; множитель по умолчанию 1.
func parseWager(args []string) (Wager, bool) {
	if len(args) == 0 {
		return Wager{}, false
	}
	unit, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return Wager{}, false
	}
	w := Wager{Unit: unit, Multiplier: 1}
	if len(args) > 1 {
		m, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return Wager{}, false
		}
		w.Multiplier = m
	}
	return w, true
}

func formatOutcome(r *RoundResult) string {
	var line string
	switch {
	case r.Net > 0:
		line = fmt.Sprintf("✅ Выигрыш: %s", common.FormatSigned(r.Net))
	case r.Net == 0:
		line = "🤝 Ставка возвращена"
	default:
		line = fmt.Sprintf("💸 Проигрыш: %s", common.FormatSigned(r.Net))
	}
	if r.PayoutQueued {
		line += "\n⏳ Выплата будет зачислена в ближайшее время"
	}
	return line
}

func formatBlackjack(v *BlackjackView) string {
	var sb strings.Builder
	sb.WriteString("🂡 БЛЭКДЖЕК\n\n")
	sb.WriteString(fmt.Sprintf("Дилер: %s (%d)\n", cards.FormatHand(v.DealerCards), v.DealerTotal))
	sb.WriteString(fmt.Sprintf("Ты: %s (%d)\n\n", cards.FormatHand(v.PlayerCards), v.PlayerTotal))
	if !v.Finished {
		sb.WriteString("!еще — взять карту, !хватит — остановиться")
		return sb.String()
	}
	if v.Result != nil {
		if v.Result.Outcome == "blackjack" {
			sb.WriteString("🔥 Блэкджек!\n")
		}
		sb.WriteString(formatOutcome(v.Result))
	}
	return sb.String()
}

// sendError переводит ошибку раунда в понятное сообщение.
func (h *Handler) sendError(chatID int64, err error) {
	var text string
	switch {
	case errors.Is(err, common.ErrBelowMinimum):
		text = "❌ Ставка меньше минимальной"
	case errors.Is(err, common.ErrExceedsBalance), errors.Is(err, common.ErrInsufficientBalance):
		text = "❌ Недостаточно " + common.CurrencyName + " для такой ставки"
	case errors.Is(err, common.ErrInvalidMultiplier):
		text = "❌ Недопустимый множитель"
	case errors.Is(err, common.ErrInvalidSelection):
		text = "❌ Недопустимая ставка"
	case errors.Is(err, common.ErrRoundInProgress):
		text = "⏳ У тебя уже идёт раунд"
	case errors.Is(err, common.ErrNoActiveRound):
		text = "❌ Нет активной раздачи. Начни: !блэкджек <ставка>"
	case errors.Is(err, common.ErrCasinoDisabled):
		text = "🚧 Казино временно отключено"
	case errors.Is(err, common.ErrLedgerUnavailable):
		text = "⏳ Сервис временно недоступен, попробуйте позже"
	default:
		log.WithError(err).Error("Ошибка раунда казино")
		text = "❌ Ошибка при игре"
	}
	h.sendMessage(chatID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
