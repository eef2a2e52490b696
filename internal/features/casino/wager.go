package casino

import (
	"fmt"

	"serotonyl.ru/duna-casino/internal/common"
)

// Wager: ставка: базовая сумма и множитель (для костей — количество ставок).
type Wager struct {
	Unit       int64 `json:"unit"`
	Multiplier int64 `json:"multiplier"`
}

// Total: полная сумма ставки.
func (w Wager) Total() int64 { return w.Unit * w.Multiplier }

// Limits: ограничения ставки для игры.
type Limits struct {
	MinUnit       int64
	MaxMultiplier int64
}

// ValidateWager проверяет ставку против лимитов и баланса. Побочных эффектов нет.
func ValidateWager(w Wager, balance int64, lim Limits) error {
	if w.Unit < lim.MinUnit || w.Unit <= 0 {
		return fmt.Errorf("ставка %d при минимуме %d: %w", w.Unit, lim.MinUnit, common.ErrBelowMinimum)
	}
	if w.Multiplier < 1 || w.Multiplier > lim.MaxMultiplier {
		return fmt.Errorf("множитель %d вне [1, %d]: %w", w.Multiplier, lim.MaxMultiplier, common.ErrInvalidMultiplier)
	}
	// Unit*Multiplier <= balance без переполнения
	if balance < 0 || w.Unit > balance/w.Multiplier {
		return fmt.Errorf("ставка больше баланса %d: %w", balance, common.ErrExceedsBalance)
	}
	return nil
}
