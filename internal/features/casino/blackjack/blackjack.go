// Package blackjack реализует конечный автомат одной раздачи блэкджека:
// Betting → PlayerTurn → DealerTurn → Result.
package blackjack

import (
	"fmt"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
)

// Phase: фаза раздачи.
type Phase int

const (
	PhaseBetting Phase = iota
	PhasePlayerTurn
	PhaseDealerTurn
	PhaseResult
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseDealerTurn:
		return "dealer_turn"
	case PhaseResult:
		return "result"
	}
	return "unknown"
}

// Outcome: итог раздачи.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePlayerBlackjack
	OutcomePlayerWin
	OutcomeDealerWin
	OutcomePush
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomePlayerBlackjack:
		return "blackjack"
	case OutcomePlayerWin:
		return "win"
	case OutcomeDealerWin:
		return "lose"
	case OutcomePush:
		return "push"
	}
	return "unknown"
}

// Rules: правила стола. Выплаты указаны вместе с возвратом ставки.
type Rules struct {
	DealerStandsOn int   // дилер берёт, пока сумма меньше
	BlackjackNum   int64 // выплата за блэкджек = stake*Num/Den
	BlackjackDen   int64
	WinMultiplier  int64
	PushMultiplier int64
}

// DefaultRules: дилер стоит на 17, блэкджек 2.5x, победа 2x, ничья 1x.
func DefaultRules() Rules {
	return Rules{
		DealerStandsOn: 17,
		BlackjackNum:   5,
		BlackjackDen:   2,
		WinMultiplier:  2,
		PushMultiplier: 1,
	}
}

// Payout возвращает выплату за итог. Для блэкджека: с округлением вниз.
func Payout(r Rules, outcome Outcome, stake int64) int64 {
	switch outcome {
	case OutcomePlayerBlackjack:
		return stake * r.BlackjackNum / r.BlackjackDen
	case OutcomePlayerWin:
		return stake * r.WinMultiplier
	case OutcomePush:
		return stake * r.PushMultiplier
	case OutcomeDealerWin, OutcomeNone:
		return 0
	}
	return 0
}

// Game: одна раздача. Не потокобезопасна: владеет ей оркестратор раунда.
type Game struct {
	rules   Rules
	deck    *cards.Deck
	stake   int64
	player  []cards.Card
	dealer  []cards.Card
	phase   Phase
	outcome Outcome
}

// New создаёт раздачу в фазе ставок. Колода должна быть свежей.
func New(rules Rules, deck *cards.Deck, stake int64) *Game {
	return &Game{rules: rules, deck: deck, stake: stake, phase: PhaseBetting}
}

// Deal раздаёт по две карты: игрок, дилер, игрок, дилер.
// 21 на двух картах игрока сразу завершает раздачу блэкджеком.
func (g *Game) Deal() error {
	if g.phase != PhaseBetting {
		return fmt.Errorf("deal в фазе %s: %w", g.phase, common.ErrInvalidAction)
	}
	for i := 0; i < 2; i++ {
		if err := g.draw(&g.player); err != nil {
			return err
		}
		if err := g.draw(&g.dealer); err != nil {
			return err
		}
	}
	if total, _ := cards.BlackjackTotal(g.player); total == 21 {
		g.finish(OutcomePlayerBlackjack)
		return nil
	}
	g.phase = PhasePlayerTurn
	return nil
}

// Hit: игрок берёт карту. Перебор сразу отдаёт победу дилеру.
func (g *Game) Hit() error {
	if g.phase != PhasePlayerTurn {
		return fmt.Errorf("hit в фазе %s: %w", g.phase, common.ErrInvalidAction)
	}
	if err := g.draw(&g.player); err != nil {
		return err
	}
	if total, _ := cards.BlackjackTotal(g.player); total > 21 {
		g.finish(OutcomeDealerWin)
	}
	return nil
}

// Stand: игрок останавливается, дилер добирает до DealerStandsOn.
func (g *Game) Stand() error {
	if g.phase != PhasePlayerTurn {
		return fmt.Errorf("stand в фазе %s: %w", g.phase, common.ErrInvalidAction)
	}
	g.phase = PhaseDealerTurn
	for {
		total, _ := cards.BlackjackTotal(g.dealer)
		if total >= g.rules.DealerStandsOn {
			break
		}
		if err := g.draw(&g.dealer); err != nil {
			return err
		}
	}
	g.finish(Compare(g.PlayerTotal(), g.DealerTotal()))
	return nil
}

// Compare классифицирует итог после хода дилера.
func Compare(player, dealer int) Outcome {
	switch {
	case player > 21:
		return OutcomeDealerWin
	case dealer > 21 || player > dealer:
		return OutcomePlayerWin
	case player < dealer:
		return OutcomeDealerWin
	default:
		return OutcomePush
	}
}

func (g *Game) draw(hand *[]cards.Card) error {
	c, err := g.deck.Draw()
	if err != nil {
		return err
	}
	*hand = append(*hand, c)
	return nil
}

func (g *Game) finish(o Outcome) {
	g.outcome = o
	g.phase = PhaseResult
}

func (g *Game) Phase() Phase     { return g.phase }
func (g *Game) Outcome() Outcome { return g.outcome }
func (g *Game) Stake() int64     { return g.stake }
func (g *Game) Finished() bool   { return g.phase == PhaseResult }

// PlayerTotal: очки игрока.
func (g *Game) PlayerTotal() int {
	total, _ := cards.BlackjackTotal(g.player)
	return total
}

// DealerTotal: очки дилера с учётом всех карт, включая скрытую.
func (g *Game) DealerTotal() int {
	total, _ := cards.BlackjackTotal(g.dealer)
	return total
}

// VisibleDealerTotal: очки дилера по открытым картам.
func (g *Game) VisibleDealerTotal() int {
	total, _ := cards.BlackjackTotal(g.DealerCards())
	return total
}

func (g *Game) PlayerCards() []cards.Card {
	return append([]cards.Card(nil), g.player...)
}

// DealerCards возвращает карты дилера. До конца хода игрока вторая карта скрыта.
func (g *Game) DealerCards() []cards.Card {
	if g.phase == PhasePlayerTurn && len(g.dealer) > 1 {
		return append([]cards.Card(nil), g.dealer[:1]...)
	}
	return append([]cards.Card(nil), g.dealer...)
}

// Payout: выплата по завершённой раздаче, 0 пока раздача идёт.
func (g *Game) Payout() int64 {
	if g.phase != PhaseResult {
		return 0
	}
	return Payout(g.rules, g.outcome, g.stake)
}
