// Package lottery — repository.go работает с таблицами lottery_tickets и lottery_winners.
package lottery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/duna-casino/internal/common"
)

// errCodeTaken: сгенерированный код уже занят, нужно попробовать другой.
var errCodeTaken = errors.New("код билета занят")

const (
	pgUniqueViolation   = "23505"
	freeTicketIndexName = "uq_lottery_free_ticket"
)

// Store: хранилище лотереи.
type Store interface {
	CreateTicket(ctx context.Context, t *Ticket) error
	ListTickets(ctx context.Context, userID int64, p Period) ([]*Ticket, error)
	Winners(ctx context.Context, limit int) ([]*Winner, error)
	Draw(ctx context.Context, p Period, prize string, pick func(n int) int) (*Winner, error)
}

// Repository реализует Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий лотереи.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTicket сохраняет билет. Второй бесплатный билет за месяц —
// ErrTicketAlreadyClaimed (частичный уникальный индекс).
func (r *Repository) CreateTicket(ctx context.Context, t *Ticket) error {
	query := `
		INSERT INTO lottery_tickets (user_id, ticket_code, month, year, is_free)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, t.UserID, t.Code, t.Month, t.Year, t.IsFree).
		Scan(&t.ID, &t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == freeTicketIndexName {
			return common.ErrTicketAlreadyClaimed
		}
		return errCodeTaken
	}
	if err != nil {
		return fmt.Errorf("ошибка создания билета: %w", err)
	}
	return nil
}

// ListTickets возвращает билеты пользователя за месяц.
func (r *Repository) ListTickets(ctx context.Context, userID int64, p Period) ([]*Ticket, error) {
	query := `
		SELECT id, user_id, ticket_code, month, year, is_free, is_winner, created_at
		FROM lottery_tickets
		WHERE user_id = $1 AND month = $2 AND year = $3
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID, p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса билетов: %w", err)
	}
	defer rows.Close()

	var out []*Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Code, &t.Month, &t.Year,
			&t.IsFree, &t.IsWinner, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования билета: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Winners возвращает последних победителей.
func (r *Repository) Winners(ctx context.Context, limit int) ([]*Winner, error) {
	query := `
		SELECT id, ticket_id, user_id, ticket_code, month, year, prize, created_at
		FROM lottery_winners
		ORDER BY year DESC, month DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса победителей: %w", err)
	}
	defer rows.Close()

	var out []*Winner
	for rows.Next() {
		var w Winner
		if err := rows.Scan(&w.ID, &w.TicketID, &w.UserID, &w.TicketCode,
			&w.Month, &w.Year, &w.Prize, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования победителя: %w", err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// Draw проводит розыгрыш за месяц в одной транзакции:
//  1. Проверяем, что победителя ещё нет
//  2. Считаем билеты, pick выбирает номер
//  3. Помечаем билет и записываем победителя
func (r *Repository) Draw(ctx context.Context, p Period, prize string, pick func(n int) int) (*Winner, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var done bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM lottery_winners WHERE month = $1 AND year = $2)`,
		p.Month, p.Year,
	).Scan(&done)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки розыгрыша: %w", err)
	}
	if done {
		return nil, common.ErrDrawAlreadyDone
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM lottery_tickets WHERE month = $1 AND year = $2`,
		p.Month, p.Year,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта билетов: %w", err)
	}
	if count == 0 {
		return nil, common.ErrNoTickets
	}

	w := Winner{Month: p.Month, Year: p.Year, Prize: prize}
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, ticket_code FROM lottery_tickets
		WHERE month = $1 AND year = $2
		ORDER BY id
		OFFSET $3 LIMIT 1
	`, p.Month, p.Year, pick(count)).Scan(&w.TicketID, &w.UserID, &w.TicketCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNoTickets
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка выбора билета: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE lottery_tickets SET is_winner = TRUE WHERE id = $1`, w.TicketID); err != nil {
		return nil, fmt.Errorf("ошибка отметки билета: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO lottery_winners (ticket_id, user_id, ticket_code, month, year, prize)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, w.TicketID, w.UserID, w.TicketCode, w.Month, w.Year, w.Prize).Scan(&w.ID, &w.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return nil, common.ErrDrawAlreadyDone
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка записи победителя: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации розыгрыша: %w", err)
	}
	return &w, nil
}
