// Package payments — учёт платежей TON: пополнения (после ручной проверки
// админом), заявки на вывод и обмен TON на DUNA.
package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind: тип платежа.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

// Status: состояние платежа.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment: запись в таблице payments.
type Payment struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Kind          Kind            `db:"kind" json:"kind"`
	TonAmount     decimal.Decimal `db:"ton_amount" json:"ton_amount"`
	Status        Status          `db:"status" json:"status"`
	ExternalRef   string          `db:"external_ref" json:"external_ref,omitempty"`
	WalletAddress string          `db:"wallet_address" json:"wallet_address,omitempty"`
	ResolvedBy    *int64          `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Exchange: итог обмена TON на DUNA.
type Exchange struct {
	Ton        decimal.Decimal `json:"ton"`
	Duna       int64           `json:"duna"`
	Balance    int64           `json:"balance"`
	TonBalance decimal.Decimal `json:"ton_balance"`
}
