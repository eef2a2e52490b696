// Package dice — «Три кубика»: ставка на чёт/нечет или больше/не больше 10.
package dice

import (
	"serotonyl.ru/duna-casino/internal/features/casino/random"
)

// BetType: тип ставки. Over10 и Under10 взаимоисключающие и покрывают все суммы.
type BetType int

const (
	BetOdd BetType = iota + 1
	BetEven
	BetOver10  // сумма > 10
	BetUnder10 // сумма <= 10
)

func (b BetType) String() string {
	switch b {
	case BetOdd:
		return "odd"
	case BetEven:
		return "even"
	case BetOver10:
		return "over10"
	case BetUnder10:
		return "under10"
	}
	return "unknown"
}

// Valid сообщает, известен ли тип ставки.
func (b BetType) Valid() bool { return b >= BetOdd && b <= BetUnder10 }

// MarshalText отдаёт тип ставки в JSON строкой.
func (b BetType) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBetType разбирает тип ставки.
func ParseBetType(s string) (BetType, bool) {
	switch s {
	case "odd", "нечет":
		return BetOdd, true
	case "even", "чет":
		return BetEven, true
	case "over10", "over", "больше":
		return BetOver10, true
	case "under10", "under", "меньше":
		return BetUnder10, true
	}
	return 0, false
}

// Amounts: варианты базовой ставки в Mini-App.
var Amounts = []int64{10, 25, 50, 100}

// Roll: три кубика.
type Roll [3]int

// Sum: сумма очков (3–18).
func (r Roll) Sum() int { return r[0] + r[1] + r[2] }

// RollDice бросает три независимых кубика.
func RollDice(src random.Source) Roll {
	var r Roll
	for i := range r {
		r[i] = src.IntN(6) + 1
	}
	return r
}

// Wins сообщает, выиграла ли ставка.
func (b BetType) Wins(r Roll) bool {
	sum := r.Sum()
	switch b {
	case BetOdd:
		return sum%2 == 1
	case BetEven:
		return sum%2 == 0
	case BetOver10:
		return sum > 10
	case BetUnder10:
		return sum <= 10
	}
	return false
}

// Rules: множитель выигрыша, одинаковый для всех типов.
type Rules struct {
	WinMultiplier int64
}

// DefaultRules: 2x на любой выигравшей ставке.
func DefaultRules() Rules { return Rules{WinMultiplier: 2} }

// Payout = unit × 2 × count при выигрыше, иначе 0.
func Payout(r Rules, bet BetType, roll Roll, unit, count int64) int64 {
	if !bet.Wins(roll) {
		return 0
	}
	return unit * r.WinMultiplier * count
}
