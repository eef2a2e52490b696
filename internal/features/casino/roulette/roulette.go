// Package roulette реализует «Lucky Number» — европейскую рулетку на 37 секторов.
// Ставки копятся на столе, затем все разрешаются одним вращением.
package roulette

import (
	"fmt"
	"math"
	"strconv"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
)

// Pockets: количество секторов колеса (0–36).
const Pockets = 37

// Chips: номиналы фишек Mini-App.
var Chips = []int64{5, 10, 25, 50, 100}

// MaxBetAmount: предел одной позиции стола. Выигрыш по ней
// (amount*35) и сумма по всем позициям заведомо помещаются в int64.
const MaxBetAmount int64 = 1_000_000_000_000

// Color: цвет сектора.
type Color int

const (
	Green Color = iota
	Red
	Black
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Black:
		return "black"
	default:
		return "green"
	}
}

// MarshalText отдаёт цвет в JSON строкой.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseColor разбирает цвет ставки.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "red", "красное", "к":
		return Red, true
	case "black", "черное", "чёрное", "ч":
		return Black, true
	}
	return Green, false
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// ColorOf возвращает цвет сектора n.
func ColorOf(n int) Color {
	switch {
	case n == 0:
		return Green
	case redNumbers[n]:
		return Red
	default:
		return Black
	}
}

// Kind: тип ставки.
type Kind int

const (
	KindStraight Kind = iota + 1 // конкретное число
	KindColor                    // красное/чёрное
	KindOdd
	KindEven
	KindLow  // 1–18
	KindHigh // 19–36
	KindDozen
)

func (k Kind) String() string {
	switch k {
	case KindStraight:
		return "number"
	case KindColor:
		return "color"
	case KindOdd:
		return "odd"
	case KindEven:
		return "even"
	case KindLow:
		return "low"
	case KindHigh:
		return "high"
	case KindDozen:
		return "dozen"
	}
	return "unknown"
}

// MarshalText отдаёт тип ставки в JSON строкой.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind разбирает тип ставки.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "number", "straight", "число":
		return KindStraight, true
	case "color", "цвет":
		return KindColor, true
	case "odd", "нечет":
		return KindOdd, true
	case "even", "чет":
		return KindEven, true
	case "low", "1-18":
		return KindLow, true
	case "high", "19-36":
		return KindHigh, true
	case "dozen", "дюжина":
		return KindDozen, true
	}
	return 0, false
}

// Bet: ставка на столе. Value: число для KindStraight, Color для KindColor,
// номер дюжины 1–3 для KindDozen, иначе 0.
type Bet struct {
	Kind   Kind  `json:"kind"`
	Value  int   `json:"value"`
	Amount int64 `json:"amount"`
}

type betKey struct {
	kind  Kind
	value int
}

func (b Bet) key() betKey { return betKey{b.Kind, b.Value} }

// ParseBet собирает ставку из текстового типа и значения.
// Цвет можно указать сразу вместо типа: ParseBet("red", "", 10).
func ParseBet(kind, value string, amount int64) (Bet, error) {
	if c, ok := ParseColor(kind); ok {
		b := Bet{Kind: KindColor, Value: int(c), Amount: amount}
		return b, b.Validate()
	}
	k, ok := ParseKind(kind)
	if !ok {
		return Bet{}, fmt.Errorf("тип %q: %w", kind, common.ErrInvalidSelection)
	}
	b := Bet{Kind: k, Amount: amount}
	switch k {
	case KindStraight, KindDozen:
		n, err := strconv.Atoi(value)
		if err != nil {
			return Bet{}, fmt.Errorf("значение %q: %w", value, common.ErrInvalidSelection)
		}
		b.Value = n
	case KindColor:
		c, ok := ParseColor(value)
		if !ok {
			return Bet{}, fmt.Errorf("цвет %q: %w", value, common.ErrInvalidSelection)
		}
		b.Value = int(c)
	}
	return b, b.Validate()
}

// NeedsValue сообщает, требует ли тип ставки значение.
func (k Kind) NeedsValue() bool {
	return k == KindStraight || k == KindDozen || k == KindColor
}

// Validate проверяет тип и значение ставки.
func (b Bet) Validate() error {
	if b.Amount <= 0 {
		return common.ErrInvalidAmount
	}
	if b.Amount > MaxBetAmount {
		return fmt.Errorf("ставка %d больше предела %d: %w", b.Amount, MaxBetAmount, common.ErrExceedsBalance)
	}
	switch b.Kind {
	case KindStraight:
		if b.Value < 0 || b.Value >= Pockets {
			return fmt.Errorf("число %d: %w", b.Value, common.ErrInvalidSelection)
		}
	case KindColor:
		if Color(b.Value) != Red && Color(b.Value) != Black {
			return fmt.Errorf("цвет %d: %w", b.Value, common.ErrInvalidSelection)
		}
	case KindDozen:
		if b.Value < 1 || b.Value > 3 {
			return fmt.Errorf("дюжина %d: %w", b.Value, common.ErrInvalidSelection)
		}
	case KindOdd, KindEven, KindLow, KindHigh:
		if b.Value != 0 {
			return fmt.Errorf("%s не принимает значение: %w", b.Kind, common.ErrInvalidSelection)
		}
	default:
		return fmt.Errorf("тип %d: %w", b.Kind, common.ErrInvalidSelection)
	}
	return nil
}

// Wins сообщает, выигрывает ли ставка при выпавшем числе n.
// Ноль не чёт, не нечет, не малые и не большие.
func (b Bet) Wins(n int) bool {
	switch b.Kind {
	case KindStraight:
		return b.Value == n
	case KindColor:
		return n != 0 && ColorOf(n) == Color(b.Value)
	case KindOdd:
		return n != 0 && n%2 == 1
	case KindEven:
		return n != 0 && n%2 == 0
	case KindLow:
		return n >= 1 && n <= 18
	case KindHigh:
		return n >= 19 && n <= 36
	case KindDozen:
		return n != 0 && (n-1)/12+1 == b.Value
	}
	return false
}

// Rules: множители выигрыша (вклад ставки в выигрыш при попадании).
type Rules struct {
	StraightMultiplier  int64 // 35: выигрыш = amount*35, ставка отдельно не возвращается
	EvenMoneyMultiplier int64 // цвет, чёт/нечет, малые/большие: 2
	DozenMultiplier     int64 // 3
}

// DefaultRules возвращает правила Mini-App.
func DefaultRules() Rules {
	return Rules{StraightMultiplier: 35, EvenMoneyMultiplier: 2, DozenMultiplier: 3}
}

// Multiplier возвращает множитель для типа ставки.
func (r Rules) Multiplier(k Kind) int64 {
	switch k {
	case KindStraight:
		return r.StraightMultiplier
	case KindDozen:
		return r.DozenMultiplier
	case KindColor, KindOdd, KindEven, KindLow, KindHigh:
		return r.EvenMoneyMultiplier
	}
	return 0
}

// Table: ставки, сделанные до вращения.
type Table struct {
	bets  map[betKey]int64
	order []betKey
}

// NewTable создаёт пустой стол.
func NewTable() *Table {
	return &Table{bets: make(map[betKey]int64)}
}

// Place кладёт ставку. Повторная ставка на тот же тип и значение суммируется.
func (t *Table) Place(b Bet) error {
	if err := b.Validate(); err != nil {
		return err
	}
	k := b.key()
	sum := t.bets[k] + b.Amount
	if sum > MaxBetAmount {
		return fmt.Errorf("позиция %s: %d больше предела %d: %w", b.Kind, sum, MaxBetAmount, common.ErrExceedsBalance)
	}
	if _, err := addChecked(t.Total(), b.Amount); err != nil {
		return err
	}
	if _, ok := t.bets[k]; !ok {
		t.order = append(t.order, k)
	}
	t.bets[k] = sum
	return nil
}

// addChecked складывает суммы ставок; переполнение int64 даёт ErrExceedsBalance.
func addChecked(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("сумма ставок переполнена: %w", common.ErrExceedsBalance)
	}
	return a + b, nil
}

// Bets возвращает ставки в порядке первого размещения.
func (t *Table) Bets() []Bet {
	out := make([]Bet, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Bet{Kind: k.kind, Value: k.value, Amount: t.bets[k]})
	}
	return out
}

// Total: сумма всех ставок на столе.
func (t *Table) Total() int64 {
	var total int64
	for _, amount := range t.bets {
		total += amount
	}
	return total
}

// Clear убирает все ставки.
func (t *Table) Clear() {
	t.bets = make(map[betKey]int64)
	t.order = nil
}

// Spin возвращает равномерно случайный сектор 0–36.
func Spin(src random.Source) int {
	return src.IntN(Pockets)
}

// BetOutcome: результат одной ставки.
type BetOutcome struct {
	Bet Bet   `json:"bet"`
	Won bool  `json:"won"`
	Win int64 `json:"win"`
}

// Result: итог вращения.
type Result struct {
	Number   int          `json:"number"`
	Color    Color        `json:"color"`
	Outcomes []BetOutcome `json:"outcomes"`
	TotalBet int64        `json:"total_bet"`
	TotalWin int64        `json:"total_win"`
	Net      int64        `json:"net"`
}

// Resolve разрешает все ставки для выпавшего числа.
// Net = сумма выигрышей − сумма ставок.
func Resolve(r Rules, bets []Bet, number int) Result {
	res := Result{Number: number, Color: ColorOf(number)}
	for _, b := range bets {
		o := BetOutcome{Bet: b}
		if b.Wins(number) {
			o.Won = true
			o.Win = b.Amount * r.Multiplier(b.Kind)
		}
		res.TotalBet += b.Amount
		res.TotalWin += o.Win
		res.Outcomes = append(res.Outcomes, o)
	}
	res.Net = res.TotalWin - res.TotalBet
	return res
}
