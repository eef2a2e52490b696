// Package payments — repository.go работает с таблицей payments.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/duna-casino/internal/common"
)

// Store: хранилище платежей.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id int64) (*Payment, error)
	// Resolve переводит pending-платёж в итоговый статус.
	// Если платёж уже не pending, ErrPaymentResolved.
	Resolve(ctx context.Context, id int64, status Status, adminID *int64) (*Payment, error)
	Pending(ctx context.Context, limit int) ([]*Payment, error)
	StaleDeposits(ctx context.Context, before time.Time) ([]*Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Payment, error)
}

const paymentColumns = `id, user_id, kind, ton_amount, status, external_ref, wallet_address,
		       resolved_by, created_at, resolved_at`

// Repository реализует Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий платежей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.Kind, &p.TonAmount, &p.Status,
		&p.ExternalRef, &p.WalletAddress, &p.ResolvedBy, &p.CreatedAt, &p.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create сохраняет новый платёж в статусе pending.
func (r *Repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (user_id, kind, ton_amount, status, external_ref, wallet_address)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id, status, created_at
	`
	err := r.db.QueryRow(ctx, query, p.UserID, p.Kind, p.TonAmount, p.ExternalRef, p.WalletAddress).
		Scan(&p.ID, &p.Status, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания платежа: %w", err)
	}
	return nil
}

// Get возвращает платёж по ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения платежа %d: %w", id, err)
	}
	return p, nil
}

// Resolve закрывает платёж одним условным UPDATE: гонка двух админов
// даёт ровно одного победителя.
func (r *Repository) Resolve(ctx context.Context, id int64, status Status, adminID *int64) (*Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, resolved_by = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRow(ctx, query, id, status, adminID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, common.ErrPaymentResolved
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления платежа %d: %w", id, err)
	}
	return p, nil
}

// Pending возвращает ожидающие платежи, старые первыми.
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Payment, error) {
	return r.query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`, limit)
}

// StaleDeposits возвращает пополнения, ожидающие дольше before.
func (r *Repository) StaleDeposits(ctx context.Context, before time.Time) ([]*Payment, error) {
	return r.query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = 'pending' AND kind = 'deposit' AND created_at < $1
		ORDER BY created_at
	`, before)
}

// ListByUser: история платежей пользователя, новые первыми.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Payment, error) {
	return r.query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса платежей: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования платежа: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
