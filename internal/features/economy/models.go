// Package economy — шлюз леджера: балансы DUNA и TON, журнал транзакций.
// models.go описывает структуры данных баланса и транзакций.
package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind — тип транзакции.
type Kind string

const (
	KindEarn  Kind = "earn"  // выигрыши, обмен TON → DUNA, пополнения
	KindSpend Kind = "spend" // покупки (доп. билеты лотереи, вывод TON)
	KindBonus Kind = "bonus" // приветственный и ежедневный бонусы
	KindStake Kind = "stake" // ставки в играх
)

// Valid сообщает, известен ли тип транзакции.
func (k Kind) Valid() bool {
	switch k {
	case KindEarn, KindSpend, KindBonus, KindStake:
		return true
	}
	return false
}

// Balance — запись таблицы balances.
type Balance struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Balance     int64           `db:"balance"`      // DUNA, никогда не отрицательный
	TonBalance  decimal.Decimal `db:"ton_balance"`  // TON, 9 знаков после запятой
	TotalEarned int64           `db:"total_earned"` // сумма всех начислений DUNA
	TotalSpent  int64           `db:"total_spent"`  // сумма всех списаний DUNA
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Transaction — запись журнала. Amount со знаком: минус — списание.
type Transaction struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	Amount         int64           `db:"amount" json:"amount"`
	TonAmount      decimal.Decimal `db:"ton_amount" json:"ton_amount"`
	Kind           Kind            `db:"kind" json:"kind"`
	Description    string          `db:"description" json:"description"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Entry — одно атомарное изменение баланса пользователя.
// Key — ключ идемпотентности: повтор с тем же ключом не создаёт новую транзакцию.
type Entry struct {
	UserID      int64
	Amount      int64           // изменение DUNA
	Ton         decimal.Decimal // изменение TON
	Kind        Kind
	Description string
	Key         string
}

// Applied — результат применения Entry хранилищем.
type Applied struct {
	Tx        *Transaction
	Balance   int64
	Ton       decimal.Decimal
	Duplicate bool // ключ уже встречался, баланс не менялся
}

// BalanceView — баланс для отображения. Stale = true, если хранилище
// недоступно и значение взято из кеша.
type BalanceView struct {
	Amount int64           `json:"amount"`
	Ton    decimal.Decimal `json:"ton"`
	Stale  bool            `json:"stale"`
	AsOf   time.Time       `json:"as_of"`
}
