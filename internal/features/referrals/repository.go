// Package referrals: repository.go работает с таблицами referral_codes и referrals.
package referrals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/duna-casino/internal/common"
)

// errCodeTaken: сгенерированный код уже у другого игрока.
var errCodeTaken = errors.New("код приглашения занят")

const pgUniqueViolation = "23505"

// Store: хранилище реферальной программы.
type Store interface {
	EnsureCode(ctx context.Context, userID int64, candidate string) (string, error)
	InviterByCode(ctx context.Context, code string) (int64, error)
	Create(ctx context.Context, inviterID, inviteeID int64) (*Referral, error)
	ReferralOf(ctx context.Context, inviteeID int64) (*Referral, error)
	Invited(ctx context.Context, inviterID int64, limit int) ([]*Invitee, error)
	TopInviters(ctx context.Context, limit int) ([]*Inviter, error)
}

// Repository реализует Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рефералов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureCode закрепляет candidate за пользователем, если кода ещё нет,
// и возвращает действующий код.
func (r *Repository) EnsureCode(ctx context.Context, userID int64, candidate string) (string, error) {
	query := `
		INSERT INTO referral_codes (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING code
	`
	var code string
	err := r.db.QueryRow(ctx, query, userID, candidate).Scan(&code)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return "", errCodeTaken
	}
	if err != nil {
		return "", fmt.Errorf("ошибка выдачи кода приглашения: %w", err)
	}
	return code, nil
}

// InviterByCode: владелец кода или common.ErrReferralCodeNotFound.
func (r *Repository) InviterByCode(ctx context.Context, code string) (int64, error) {
	var userID int64
	err := r.db.QueryRow(ctx, `SELECT user_id FROM referral_codes WHERE code = $1`, code).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrReferralCodeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка поиска кода приглашения: %w", err)
	}
	return userID, nil
}

// Create записывает приглашение. Второй пригласивший для того же
// игрока: common.ErrReferralAlreadyActivated.
func (r *Repository) Create(ctx context.Context, inviterID, inviteeID int64) (*Referral, error) {
	query := `
		INSERT INTO referrals (inviter_id, invitee_id)
		VALUES ($1, $2)
		ON CONFLICT (invitee_id) DO NOTHING
		RETURNING id, inviter_id, invitee_id, created_at
	`
	var ref Referral
	err := r.db.QueryRow(ctx, query, inviterID, inviteeID).
		Scan(&ref.ID, &ref.InviterID, &ref.InviteeID, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrReferralAlreadyActivated
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка записи приглашения: %w", err)
	}
	return &ref, nil
}

// ReferralOf: кто пригласил игрока. nil, если никто.
func (r *Repository) ReferralOf(ctx context.Context, inviteeID int64) (*Referral, error) {
	query := `
		SELECT id, inviter_id, invitee_id, created_at
		FROM referrals
		WHERE invitee_id = $1
	`
	var ref Referral
	err := r.db.QueryRow(ctx, query, inviteeID).
		Scan(&ref.ID, &ref.InviterID, &ref.InviteeID, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса приглашения: %w", err)
	}
	return &ref, nil
}

// Invited возвращает приглашённых друзей, новые первыми.
func (r *Repository) Invited(ctx context.Context, inviterID int64, limit int) ([]*Invitee, error) {
	query := `
		SELECT r.invitee_id, COALESCE(m.username, ''), COALESCE(m.first_name, ''),
		       COALESCE(m.last_name, ''), r.created_at
		FROM referrals r
		LEFT JOIN members m ON m.user_id = r.invitee_id
		WHERE r.inviter_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, inviterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса приглашённых: %w", err)
	}
	defer rows.Close()

	var out []*Invitee
	for rows.Next() {
		var i Invitee
		if err := rows.Scan(&i.UserID, &i.Username, &i.FirstName, &i.LastName, &i.JoinedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования приглашённого: %w", err)
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

// TopInviters: рейтинг по числу приглашённых.
func (r *Repository) TopInviters(ctx context.Context, limit int) ([]*Inviter, error) {
	query := `
		SELECT r.inviter_id, COALESCE(m.username, ''), COALESCE(m.first_name, ''),
		       COALESCE(m.last_name, ''), COUNT(*) AS total
		FROM referrals r
		LEFT JOIN members m ON m.user_id = r.inviter_id
		GROUP BY r.inviter_id, m.username, m.first_name, m.last_name
		ORDER BY total DESC, MIN(r.created_at)
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтинга: %w", err)
	}
	defer rows.Close()

	var out []*Inviter
	for rows.Next() {
		var i Inviter
		if err := rows.Scan(&i.UserID, &i.Username, &i.FirstName, &i.LastName, &i.TotalInvites); err != nil {
			return nil, fmt.Errorf("ошибка сканирования рейтинга: %w", err)
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}
