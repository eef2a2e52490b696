// Package casino — оркестратор раундов: ставка, списание, розыгрыш, выплата, история.
// models.go описывает структуры данных казино.
package casino

import (
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
)

// GameKind: игра.
type GameKind string

const (
	GameBlackjack GameKind = "blackjack"
	GameBaccarat  GameKind = "baccarat"
	GameRoulette  GameKind = "roulette"
	GameDice      GameKind = "dice"
)

// Games: все игры в порядке показа.
var Games = []GameKind{GameBlackjack, GameBaccarat, GameRoulette, GameDice}

// Title: название игры для сообщений и описаний транзакций.
func (g GameKind) Title() string {
	switch g {
	case GameBlackjack:
		return "Блэкджек"
	case GameBaccarat:
		return "Баккара"
	case GameRoulette:
		return "Рулетка"
	case GameDice:
		return "Кости"
	}
	return string(g)
}

// ParseGameKind разбирает название игры (латиницей или по-русски).
func ParseGameKind(s string) (GameKind, bool) {
	switch s {
	case "blackjack", "блэкджек", "бж":
		return GameBlackjack, true
	case "baccarat", "баккара":
		return GameBaccarat, true
	case "roulette", "рулетка":
		return GameRoulette, true
	case "dice", "кости":
		return GameDice, true
	}
	return "", false
}

// Исходы раундов, кроме блэкджека (у него свои).
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomePush = "push"
)

// RoundResult: неизменяемый итог завершённого раунда.
type RoundResult struct {
	ID            uuid.UUID `json:"id"`
	UserID        int64     `json:"user_id"`
	Game          GameKind  `json:"game"`
	Outcome       string    `json:"outcome"`
	Selection     string    `json:"selection,omitempty"`
	PlayerScore   int       `json:"player_score"`
	OpponentScore int       `json:"opponent_score"`
	Stake         int64     `json:"stake"`
	Payout        int64     `json:"payout"`
	Net           int64     `json:"net"`
	PayoutQueued  bool      `json:"payout_queued"`
	Details       any       `json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Won сообщает, остался ли игрок в плюсе.
func (r RoundResult) Won() bool { return r.Net > 0 }

// DiceDetails: подробности раунда в кости.
type DiceDetails struct {
	Roll  dice.Roll `json:"roll"`
	Sum   int       `json:"sum"`
	Unit  int64     `json:"unit"`
	Count int64     `json:"count"`
}

// BaccaratRound: итог баккары вместе с раздачей для анимации.
type BaccaratRound struct {
	RoundResult
	Bet  baccarat.Side   `json:"bet"`
	Hand baccarat.Result `json:"hand"`
}

// RouletteRound: итог вращения.
type RouletteRound struct {
	RoundResult
	Spin roulette.Result `json:"spin"`
}

// BlackjackView: состояние раздачи для клиента. Закрытая карта дилера
// не показывается, пока ход у игрока.
type BlackjackView struct {
	RoundID     uuid.UUID    `json:"round_id"`
	Phase       string       `json:"phase"`
	PlayerCards []cards.Card `json:"player_cards"`
	DealerCards []cards.Card `json:"dealer_cards"`
	PlayerTotal int          `json:"player_total"`
	DealerTotal int          `json:"dealer_total"`
	Stake       int64        `json:"stake"`
	Finished    bool         `json:"finished"`
	Result      *RoundResult `json:"result,omitempty"`
}

// Stats: статистика казино пользователя.
type Stats struct {
	ID           int64     `db:"id" json:"-"`
	UserID       int64     `db:"user_id" json:"user_id"`
	TotalRounds  int       `db:"total_rounds" json:"total_rounds"`
	TotalWagered int64     `db:"total_wagered" json:"total_wagered"`
	TotalWon     int64     `db:"total_won" json:"total_won"`
	BiggestWin   int64     `db:"biggest_win" json:"biggest_win"`
	CurrentRTP   float64   `db:"current_rtp" json:"current_rtp"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NetProfit: выиграно минус поставлено.
func (s *Stats) NetProfit() int64 { return s.TotalWon - s.TotalWagered }

// CalculateRTP вычисляет RTP (Return To Player) пользователя.
// RTP = (Всего выиграно / Всего поставлено) × 100%
//
// Если пользователь ещё не играл, 0.
func CalculateRTP(totalWagered, totalWon int64) float64 {
	if totalWagered == 0 {
		return 0
	}
	return (float64(totalWon) / float64(totalWagered)) * 100
}
