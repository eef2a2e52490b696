// Package economy — repository.go выполняет все операции с таблицами balances и transactions.
// Все денежные операции выполняются в транзакциях БД для целостности данных.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/duna-casino/internal/common"
)

// Store — хранилище леджера. Реализуется Repository, в тестах — фейком.
type Store interface {
	EnsureAccount(ctx context.Context, userID, starting int64) error
	GetBalance(ctx context.Context, userID int64) (*Balance, error)
	ApplyEntry(ctx context.Context, e Entry) (*Applied, error)
	GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// pgUniqueViolation — код ошибки PostgreSQL при нарушении UNIQUE.
const pgUniqueViolation = "23505"

// Repository предоставляет методы для работы с балансами и транзакциями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureAccount создаёт запись баланса, если её ещё нет.
func (r *Repository) EnsureAccount(ctx context.Context, userID, starting int64) error {
	query := `
		INSERT INTO balances (user_id, balance, ton_balance, total_earned, total_spent)
		VALUES ($1, $2, 0, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, starting)
	return classify("создание баланса", err)
}

// GetBalance возвращает запись баланса пользователя.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (*Balance, error) {
	query := `
		SELECT id, user_id, balance, ton_balance, total_earned, total_spent, created_at, updated_at
		FROM balances
		WHERE user_id = $1
	`
	var b Balance
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&b.ID, &b.UserID, &b.Balance, &b.TonBalance, &b.TotalEarned, &b.TotalSpent,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, classify("получение баланса", err)
	}
	return &b, nil
}

// ApplyEntry атомарно меняет баланс DUNA и/или TON и записывает транзакцию.
//
// Порядок:
//  1. Если задан ключ и транзакция с ним уже есть, возвращаем её (Duplicate).
//  2. Блокируем строку баланса (FOR UPDATE).
//  3. Проверяем, что ни DUNA, ни TON не уйдут в минус.
//  4. Обновляем баланс и пишем транзакцию.
func (r *Repository) ApplyEntry(ctx context.Context, e Entry) (*Applied, error) {
	applied, err := r.applyEntry(ctx, e)
	if err == nil {
		return applied, nil
	}

	// Параллельная вставка с тем же ключом: транзакция уже записана кем-то другим
	var pgErr *pgconn.PgError
	if e.Key != "" && errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return r.duplicate(ctx, e)
	}
	return nil, err
}

func (r *Repository) applyEntry(ctx context.Context, e Entry) (*Applied, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, classify("начало транзакции", err)
	}
	defer tx.Rollback(ctx)

	if e.Key != "" {
		existing, err := findByKey(ctx, tx, e.Key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			var a Applied
			if err := tx.QueryRow(ctx,
				`SELECT balance, ton_balance FROM balances WHERE user_id = $1`, e.UserID,
			).Scan(&a.Balance, &a.Ton); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, classify("получение баланса", err)
			}
			a.Tx = existing
			a.Duplicate = true
			return &a, nil
		}
	}

	// Блокируем строку баланса до конца транзакции
	var balance int64
	var ton decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT balance, ton_balance FROM balances WHERE user_id = $1 FOR UPDATE
	`, e.UserID).Scan(&balance, &ton)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, classify("блокировка баланса", err)
	}

	if balance+e.Amount < 0 || ton.Add(e.Ton).IsNegative() {
		return nil, common.ErrInsufficientBalance
	}

	var earned, spent int64
	if e.Amount > 0 {
		earned = e.Amount
	} else {
		spent = -e.Amount
	}

	err = tx.QueryRow(ctx, `
		UPDATE balances
		SET balance = balance + $2,
		    ton_balance = ton_balance + $3,
		    total_earned = total_earned + $4,
		    total_spent = total_spent + $5,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance, ton_balance
	`, e.UserID, e.Amount, e.Ton, earned, spent).Scan(&balance, &ton)
	if err != nil {
		return nil, classify("изменение баланса", err)
	}

	t := &Transaction{
		UserID:      e.UserID,
		Amount:      e.Amount,
		TonAmount:   e.Ton,
		Kind:        e.Kind,
		Description: e.Description,
	}
	if e.Key != "" {
		key := e.Key
		t.IdempotencyKey = &key
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, ton_amount, kind, description, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.UserID, t.Amount, t.TonAmount, t.Kind, t.Description, t.IdempotencyKey).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, classify("запись транзакции", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("фиксация транзакции", err)
	}
	return &Applied{Tx: t, Balance: balance, Ton: ton}, nil
}

// duplicate читает уже записанную транзакцию по ключу вне транзакции БД.
func (r *Repository) duplicate(ctx context.Context, e Entry) (*Applied, error) {
	existing, err := findByKey(ctx, r.db, e.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("транзакция %q не найдена после конфликта ключа", e.Key)
	}
	b, err := r.GetBalance(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	return &Applied{Tx: existing, Balance: b.Balance, Ton: b.TonBalance, Duplicate: true}, nil
}

// querier — общее у пула и транзакции.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findByKey(ctx context.Context, q querier, key string) (*Transaction, error) {
	var t Transaction
	err := q.QueryRow(ctx, `
		SELECT id, user_id, amount, ton_amount, kind, description, idempotency_key, created_at
		FROM transactions
		WHERE idempotency_key = $1
	`, key).Scan(&t.ID, &t.UserID, &t.Amount, &t.TonAmount, &t.Kind, &t.Description, &t.IdempotencyKey, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("поиск по ключу идемпотентности", err)
	}
	return &t, nil
}

// GetTransactions возвращает последние N транзакций пользователя.
func (r *Repository) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, user_id, amount, ton_amount, kind, description, idempotency_key, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, classify("получение транзакций", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		var t Transaction
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.TonAmount,
			&t.Kind, &t.Description, &t.IdempotencyKey, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		transactions = append(transactions, &t)
	}
	return transactions, classify("чтение транзакций", rows.Err())
}

// classify разделяет ошибки: ответ сервера PostgreSQL: бизнес-ошибка,
// всё остальное (сеть, таймаут, пул): недоступность леджера.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrLedgerUnavailable, err)
}
