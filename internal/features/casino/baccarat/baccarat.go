// Package baccarat — мгновенная раздача баккары с упрощённым правилом третьей карты:
// при натуральных 8/9 у любой стороны никто не добирает, иначе игрок и банкир
// независимо друг от друга добирают при счёте 5 и меньше.
package baccarat

import (
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
)

// Side: сторона ставки и победитель раздачи.
type Side int

const (
	SidePlayer Side = iota + 1
	SideBanker
	SideTie
)

func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideBanker:
		return "banker"
	case SideTie:
		return "tie"
	}
	return "unknown"
}

// Valid сообщает, известна ли сторона.
func (s Side) Valid() bool { return s >= SidePlayer && s <= SideTie }

// MarshalText отдаёт сторону в JSON строкой.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseSide разбирает сторону ставки из строки.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "player", "p", "игрок":
		return SidePlayer, true
	case "banker", "b", "банкир":
		return SideBanker, true
	case "tie", "t", "ничья":
		return SideTie, true
	}
	return 0, false
}

// Phase: этап раздачи, по которому клиент проигрывает анимацию.
type Phase string

const (
	PhaseDealing   Phase = "dealing"
	PhaseThirdCard Phase = "third_card"
)

// Step: одна открытая карта в порядке раздачи.
type Step struct {
	Phase Phase      `json:"phase"`
	Side  Side       `json:"side"`
	Card  cards.Card `json:"card"`
}

// Rules: правила стола. Выплаты указаны вместе с возвратом ставки.
type Rules struct {
	NaturalMin       int   // натуральная комбинация: 8 и выше
	DrawMax          int   // добор при счёте не выше
	TieMultiplier    int64 // 9x
	PlayerMultiplier int64 // 2x
	BankerNum        int64 // 1.95x = 195/100
	BankerDen        int64
	PushOnTie        bool // ставка на игрока/банкира при ничьей возвращается
}

// DefaultRules возвращает правила Mini-App.
func DefaultRules() Rules {
	return Rules{
		NaturalMin:       8,
		DrawMax:          5,
		TieMultiplier:    9,
		PlayerMultiplier: 2,
		BankerNum:        195,
		BankerDen:        100,
		PushOnTie:        true,
	}
}

// Result: итог раздачи.
type Result struct {
	PlayerCards []cards.Card `json:"player_cards"`
	BankerCards []cards.Card `json:"banker_cards"`
	PlayerScore int          `json:"player_score"`
	BankerScore int          `json:"banker_score"`
	Winner      Side         `json:"winner"`
	Natural     bool         `json:"natural"`
	Steps       []Step       `json:"steps"`
}

// Deal раздаёт P, B, P, B, затем применяет правило третьей карты.
func Deal(r Rules, deck *cards.Deck) (Result, error) {
	var res Result
	draw := func(side Side, phase Phase) error {
		c, err := deck.Draw()
		if err != nil {
			return err
		}
		if side == SidePlayer {
			res.PlayerCards = append(res.PlayerCards, c)
		} else {
			res.BankerCards = append(res.BankerCards, c)
		}
		res.Steps = append(res.Steps, Step{Phase: phase, Side: side, Card: c})
		return nil
	}

	for _, side := range []Side{SidePlayer, SideBanker, SidePlayer, SideBanker} {
		if err := draw(side, PhaseDealing); err != nil {
			return Result{}, err
		}
	}

	player := cards.BaccaratScore(res.PlayerCards)
	banker := cards.BaccaratScore(res.BankerCards)
	res.Natural = player >= r.NaturalMin || banker >= r.NaturalMin

	if !res.Natural {
		// решения о доборе принимаются по счёту после двух карт
		playerDraws := player <= r.DrawMax
		bankerDraws := banker <= r.DrawMax
		if playerDraws {
			if err := draw(SidePlayer, PhaseThirdCard); err != nil {
				return Result{}, err
			}
		}
		if bankerDraws {
			if err := draw(SideBanker, PhaseThirdCard); err != nil {
				return Result{}, err
			}
		}
	}

	res.PlayerScore = cards.BaccaratScore(res.PlayerCards)
	res.BankerScore = cards.BaccaratScore(res.BankerCards)
	res.Winner = Winner(res.PlayerScore, res.BankerScore)
	return res, nil
}

// Winner: больший счёт побеждает, равный счёт — ничья.
func Winner(player, banker int) Side {
	switch {
	case player > banker:
		return SidePlayer
	case banker > player:
		return SideBanker
	default:
		return SideTie
	}
}

// Payout возвращает выплату по ставке bet при победителе winner.
func Payout(r Rules, bet, winner Side, stake int64) int64 {
	if bet == winner {
		switch bet {
		case SideTie:
			return stake * r.TieMultiplier
		case SidePlayer:
			return stake * r.PlayerMultiplier
		case SideBanker:
			return stake * r.BankerNum / r.BankerDen
		}
	}
	if winner == SideTie && r.PushOnTie && (bet == SidePlayer || bet == SideBanker) {
		return stake
	}
	return 0
}
