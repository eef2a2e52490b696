// Package casino — service.go проводит раунд от ставки до выплаты.
//
// Протокол раунда:
//  1. занять слот пользователя (иначе ErrRoundInProgress);
//  2. прочитать баланс и проверить ставку;
//  3. списать ставку (при ошибке раунд не начинается);
//  4. разыграть исход на свежей колоде;
//  5. начислить выплату или отложить её в outbox;
//  6. записать итог в историю и журнал раундов;
//  7. освободить слот.
package casino

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/blackjack"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

// Ledger: операции леджера, нужные казино.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (economy.BalanceView, error)
	Debit(ctx context.Context, userID, amount int64, kind economy.Kind, description string) (*economy.Transaction, error)
	CreditOrEnqueue(ctx context.Context, userID, amount int64, kind economy.Kind, description, key string) (*economy.Transaction, bool, error)
}

// RoundLog: журнал раундов и статистика в БД.
type RoundLog interface {
	AppendRound(ctx context.Context, r *RoundResult) error
	GetStats(ctx context.Context, userID int64) (*Stats, error)
}

// Settings: лимиты ставок и флаг включения казино.
type Settings struct {
	Enabled         bool
	Blackjack       Limits
	Baccarat        Limits
	Dice            Limits
	RouletteMinChip int64
}

// Service управляет раундами всех игр.
type Service struct {
	ledger   Ledger
	rounds   RoundLog
	src      random.Source
	sessions *sessions
	history  *historyBook
	cfg      Settings

	blackjackRules blackjack.Rules
	baccaratRules  baccarat.Rules
	rouletteRules  roulette.Rules
	diceRules      dice.Rules

	newDeck func() *cards.Deck
	newID   func() uuid.UUID
	now     func() time.Time
}

// NewService создаёт оркестратор. rounds может быть nil: тогда журнал не ведётся.
func NewService(ledger Ledger, rounds RoundLog, src random.Source, cfg Settings) *Service {
	if src == nil {
		src = random.Default()
	}
	s := &Service{
		ledger:         ledger,
		rounds:         rounds,
		src:            src,
		sessions:       newSessions(),
		history:        newHistoryBook(HistoryCaps),
		cfg:            cfg,
		blackjackRules: blackjack.DefaultRules(),
		baccaratRules:  baccarat.DefaultRules(),
		rouletteRules:  roulette.DefaultRules(),
		diceRules:      dice.DefaultRules(),
		newID:          uuid.New,
		now:            time.Now,
	}
	s.newDeck = func() *cards.Deck { return cards.NewDeck(s.src) }
	return s
}

// Settings возвращает текущие лимиты.
func (s *Service) Settings() Settings { return s.cfg }

// PlayDice: «Три кубика»: unit × count на чёт/нечет или больше/не больше 10.
func (s *Service) PlayDice(ctx context.Context, userID int64, w Wager, bet dice.BetType) (*RoundResult, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrCasinoDisabled
	}
	if !s.sessions.acquire(userID) {
		return nil, common.ErrRoundInProgress
	}
	defer s.sessions.release(userID)

	stake := w.Total()
	err := s.placeStake(ctx, userID, GameDice, stake, func(balance int64) error {
		if !bet.Valid() {
			return fmt.Errorf("тип ставки %d: %w", bet, common.ErrInvalidSelection)
		}
		return ValidateWager(w, balance, s.cfg.Dice)
	})
	if err != nil {
		return nil, err
	}

	roll := dice.RollDice(s.src)
	payout := dice.Payout(s.diceRules, bet, roll, w.Unit, w.Multiplier)

	r := s.newResult(userID, GameDice, stake, payout)
	r.Selection = bet.String()
	r.PlayerScore = roll.Sum()
	r.Details = DiceDetails{Roll: roll, Sum: roll.Sum(), Unit: w.Unit, Count: w.Multiplier}
	if err := s.settle(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// PlayBaccarat: мгновенная раздача баккары со ставкой на игрока, банкира или ничью.
func (s *Service) PlayBaccarat(ctx context.Context, userID int64, w Wager, bet baccarat.Side) (*BaccaratRound, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrCasinoDisabled
	}
	if !s.sessions.acquire(userID) {
		return nil, common.ErrRoundInProgress
	}
	defer s.sessions.release(userID)

	stake := w.Total()
	err := s.placeStake(ctx, userID, GameBaccarat, stake, func(balance int64) error {
		if !bet.Valid() {
			return fmt.Errorf("сторона %d: %w", bet, common.ErrInvalidSelection)
		}
		return ValidateWager(w, balance, s.cfg.Baccarat)
	})
	if err != nil {
		return nil, err
	}

	id := s.newID()
	hand, err := baccarat.Deal(s.baccaratRules, s.newDeck())
	if err != nil {
		s.refund(ctx, userID, id, GameBaccarat, stake, err)
		return nil, err
	}

	payout := baccarat.Payout(s.baccaratRules, bet, hand.Winner, stake)
	r := s.newResult(userID, GameBaccarat, stake, payout)
	r.ID = id
	r.Selection = bet.String()
	r.PlayerScore = hand.PlayerScore
	r.OpponentScore = hand.BankerScore
	if hand.Winner == baccarat.SideTie && bet != baccarat.SideTie && payout == stake {
		r.Outcome = OutcomePush
	}
	r.Details = hand
	if err := s.settle(ctx, r); err != nil {
		return nil, err
	}
	return &BaccaratRound{RoundResult: *r, Bet: bet, Hand: hand}, nil
}

// SpinRoulette вращает колесо со всеми ставками стола.
// Сумма ставок списывается до вращения, выигрыш начисляется после.
// Если списание не прошло, колесо не вращается.
func (s *Service) SpinRoulette(ctx context.Context, userID int64, bets []roulette.Bet) (*RouletteRound, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrCasinoDisabled
	}
	if !s.sessions.acquire(userID) {
		return nil, common.ErrRoundInProgress
	}
	defer s.sessions.release(userID)

	table := roulette.NewTable()
	for _, b := range bets {
		if b.Amount < s.cfg.RouletteMinChip {
			return nil, fmt.Errorf("фишка %d при минимуме %d: %w", b.Amount, s.cfg.RouletteMinChip, common.ErrBelowMinimum)
		}
		if err := table.Place(b); err != nil {
			return nil, err
		}
	}
	total := table.Total()
	if total <= 0 {
		return nil, fmt.Errorf("пустой стол: %w", common.ErrBelowMinimum)
	}

	err := s.placeStake(ctx, userID, GameRoulette, total, func(balance int64) error {
		if total > balance {
			return fmt.Errorf("ставки %d при балансе %d: %w", total, balance, common.ErrExceedsBalance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	number := roulette.Spin(s.src)
	spin := roulette.Resolve(s.rouletteRules, table.Bets(), number)

	r := s.newResult(userID, GameRoulette, spin.TotalBet, spin.TotalWin)
	r.PlayerScore = number
	r.Selection = describeBets(table.Bets())
	r.Details = spin
	switch {
	case spin.Net > 0:
		r.Outcome = OutcomeWin
	case spin.Net == 0:
		r.Outcome = OutcomePush
	default:
		r.Outcome = OutcomeLose
	}

	if err := s.settle(ctx, r); err != nil {
		return nil, err
	}
	return &RouletteRound{RoundResult: *r, Spin: spin}, nil
}

// StartBlackjack списывает ставку и раздаёт карты. Слот остаётся занят до конца раздачи.
func (s *Service) StartBlackjack(ctx context.Context, userID int64, w Wager) (*BlackjackView, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrCasinoDisabled
	}
	if !s.sessions.acquire(userID) {
		return nil, common.ErrRoundInProgress
	}

	stake := w.Total()
	err := s.placeStake(ctx, userID, GameBlackjack, stake, func(balance int64) error {
		return ValidateWager(w, balance, s.cfg.Blackjack)
	})
	if err != nil {
		s.sessions.release(userID)
		return nil, err
	}

	round := &blackjackRound{
		id:        s.newID(),
		game:      blackjack.New(s.blackjackRules, s.newDeck(), stake),
		startedAt: s.now(),
	}
	round.mu.Lock()
	defer round.mu.Unlock()

	if err := round.game.Deal(); err != nil {
		return nil, s.abortBlackjack(ctx, userID, round, err)
	}
	if round.game.Finished() {
		return s.finishBlackjack(ctx, userID, round)
	}
	s.sessions.setBlackjack(userID, round)
	return blackjackView(round, nil), nil
}

// HitBlackjack: взять карту.
func (s *Service) HitBlackjack(ctx context.Context, userID int64) (*BlackjackView, error) {
	return s.actBlackjack(ctx, userID, (*blackjack.Game).Hit)
}

// StandBlackjack: остановиться; дилер добирает до 17.
func (s *Service) StandBlackjack(ctx context.Context, userID int64) (*BlackjackView, error) {
	return s.actBlackjack(ctx, userID, (*blackjack.Game).Stand)
}

func (s *Service) actBlackjack(ctx context.Context, userID int64, action func(*blackjack.Game) error) (*BlackjackView, error) {
	round, ok := s.sessions.activeBlackjack(userID)
	if !ok {
		return nil, common.ErrNoActiveRound
	}
	round.mu.Lock()
	defer round.mu.Unlock()
	if round.done {
		return nil, common.ErrNoActiveRound
	}

	if err := action(round.game); err != nil {
		if errors.Is(err, common.ErrDeckExhausted) {
			return nil, s.abortBlackjack(ctx, userID, round, err)
		}
		return nil, err
	}
	if round.game.Finished() {
		return s.finishBlackjack(ctx, userID, round)
	}
	return blackjackView(round, nil), nil
}

// ActiveBlackjack возвращает текущую раздачу, если она есть.
func (s *Service) ActiveBlackjack(userID int64) (*BlackjackView, bool) {
	round, ok := s.sessions.activeBlackjack(userID)
	if !ok {
		return nil, false
	}
	round.mu.Lock()
	defer round.mu.Unlock()
	if round.done {
		return nil, false
	}
	return blackjackView(round, nil), true
}

// finishBlackjack выплачивает выигрыш и освобождает слот. Вызывается под round.mu.
func (s *Service) finishBlackjack(ctx context.Context, userID int64, round *blackjackRound) (*BlackjackView, error) {
	defer s.sessions.release(userID)
	round.done = true

	g := round.game
	r := s.newResult(userID, GameBlackjack, g.Stake(), g.Payout())
	r.ID = round.id
	r.Outcome = g.Outcome().String()
	r.PlayerScore = g.PlayerTotal()
	r.OpponentScore = g.DealerTotal()
	r.Details = map[string]any{
		"player_cards": g.PlayerCards(),
		"dealer_cards": g.DealerCards(),
	}
	if err := s.settle(ctx, r); err != nil {
		return nil, err
	}
	return blackjackView(round, r), nil
}

// abortBlackjack возвращает ставку после внутренней ошибки раздачи.
func (s *Service) abortBlackjack(ctx context.Context, userID int64, round *blackjackRound, cause error) error {
	defer s.sessions.release(userID)
	round.done = true
	s.refund(ctx, userID, round.id, GameBlackjack, round.game.Stake(), cause)
	return cause
}

// errShutdown: раздача прервана остановкой сервиса.
var errShutdown = errors.New("сервис останавливается")

// AbortOpenRounds возвращает ставки всех незавершённых раздач блэкджека.
// Раздачи живут только в памяти, поэтому вызывается при остановке,
// когда бот и HTTP API уже не принимают ходы. Возвращает число раздач.
func (s *Service) AbortOpenRounds(ctx context.Context) int {
	aborted := 0
	for userID, round := range s.sessions.openBlackjack() {
		round.mu.Lock()
		if !round.done {
			_ = s.abortBlackjack(ctx, userID, round, errShutdown)
			aborted++
		}
		round.mu.Unlock()
	}
	if aborted > 0 {
		log.WithFields(log.Fields{
			"component": "casino",
			"rounds":    aborted,
		}).Warn("Незавершённые раздачи блэкджека закрыты с возвратом ставок")
	}
	return aborted
}

func blackjackView(round *blackjackRound, result *RoundResult) *BlackjackView {
	g := round.game
	dealerTotal := g.VisibleDealerTotal()
	if g.Finished() {
		dealerTotal = g.DealerTotal()
	}
	return &BlackjackView{
		RoundID:     round.id,
		Phase:       g.Phase().String(),
		PlayerCards: g.PlayerCards(),
		DealerCards: g.DealerCards(),
		PlayerTotal: g.PlayerTotal(),
		DealerTotal: dealerTotal,
		Stake:       g.Stake(),
		Finished:    g.Finished(),
		Result:      result,
	}
}

// History возвращает последние раунды игры, новые первыми.
func (s *Service) History(userID int64, game GameKind) []RoundResult {
	return s.history.list(userID, game)
}

// Stats возвращает статистику пользователя из журнала раундов.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	if s.rounds == nil {
		return &Stats{UserID: userID}, nil
	}
	return s.rounds.GetStats(ctx, userID)
}

// placeStake читает баланс, проверяет ставку и списывает её.
func (s *Service) placeStake(ctx context.Context, userID int64, game GameKind, stake int64, validate func(balance int64) error) error {
	view, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if err := validate(view.Amount); err != nil {
		return err
	}
	if _, err := s.ledger.Debit(ctx, userID, stake, economy.KindStake, game.Title()+": ставка"); err != nil {
		return err
	}
	return nil
}

func (s *Service) newResult(userID int64, game GameKind, stake, payout int64) *RoundResult {
	outcome := OutcomeLose
	if payout > 0 {
		outcome = OutcomeWin
	}
	return &RoundResult{
		ID:        s.newID(),
		UserID:    userID,
		Game:      game,
		Outcome:   outcome,
		Stake:     stake,
		Payout:    payout,
		Net:       payout - stake,
		CreatedAt: s.now(),
	}
}

// settle начисляет выплату (или ставит её в очередь) и записывает итог.
func (s *Service) settle(ctx context.Context, r *RoundResult) error {
	if r.Payout > 0 {
		_, queued, err := s.ledger.CreditOrEnqueue(ctx, r.UserID, r.Payout, economy.KindEarn,
			r.Game.Title()+": выигрыш", payoutKey(r.ID))
		if err != nil {
			s.logRound(r).WithError(err).Error("Выигрыш не начислен и не поставлен в очередь")
			return err
		}
		r.PayoutQueued = queued
	}
	s.record(ctx, r)
	return nil
}

// record добавляет итог в историю и журнал. Ошибки журнала только логируются.
func (s *Service) record(ctx context.Context, r *RoundResult) {
	s.history.push(*r)
	if s.rounds != nil {
		if err := s.rounds.AppendRound(ctx, r); err != nil {
			s.logRound(r).WithError(err).Warn("Не удалось записать раунд в журнал")
		}
	}
	s.logRound(r).WithFields(log.Fields{
		"outcome": r.Outcome,
		"net":     r.Net,
		"queued":  r.PayoutQueued,
	}).Debug("Раунд завершён")
}

// refund возвращает ставку после нарушения инварианта (например, пустая колода).
func (s *Service) refund(ctx context.Context, userID int64, roundID uuid.UUID, game GameKind, stake int64, cause error) {
	entry := log.WithFields(log.Fields{
		"component": "casino",
		"user_id":   userID,
		"round_id":  roundID,
		"game":      game,
		"stake":     stake,
	})
	entry.WithError(cause).Error("Раунд прерван после списания ставки")

	_, queued, err := s.ledger.CreditOrEnqueue(ctx, userID, stake, economy.KindEarn,
		game.Title()+": возврат ставки", refundKey(roundID))
	if err != nil {
		entry.WithError(err).Error("Возврат ставки не выполнен")
		return
	}
	if queued {
		entry.Warn("Возврат ставки отложен в outbox")
	}
}

func (s *Service) logRound(r *RoundResult) *log.Entry {
	return log.WithFields(log.Fields{
		"component": "casino",
		"user_id":   r.UserID,
		"round_id":  r.ID,
		"game":      r.Game,
	})
}

// describeBets: краткое описание ставок стола: "straight 7×10, color red×20".
func describeBets(bets []roulette.Bet) string {
	parts := make([]string, 0, len(bets))
	for _, b := range bets {
		switch b.Kind {
		case roulette.KindStraight, roulette.KindDozen:
			parts = append(parts, fmt.Sprintf("%s %d×%d", b.Kind, b.Value, b.Amount))
		case roulette.KindColor:
			parts = append(parts, fmt.Sprintf("%s %s×%d", b.Kind, roulette.Color(b.Value), b.Amount))
		default:
			parts = append(parts, fmt.Sprintf("%s×%d", b.Kind, b.Amount))
		}
	}
	return strings.Join(parts, ", ")
}

func payoutKey(id uuid.UUID) string { return fmt.Sprintf("round:%s:payout", id) }
func refundKey(id uuid.UUID) string { return fmt.Sprintf("round:%s:refund", id) }
