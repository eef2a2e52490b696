// Package members — repository.go отвечает за все операции с таблицей members в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/duna-casino/internal/common"
)

// Store — хранилище игроков.
type Store interface {
	Upsert(ctx context.Context, p Profile) (created, banned bool, err error)
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	ListAdmins(ctx context.Context) ([]int64, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert добавляет игрока или обновляет имя/username и last_seen_at.
// Флаги админа и бана не трогает. created=true, если запись новая.
func (r *Repository) Upsert(ctx context.Context, p Profile) (bool, bool, error) {
	query := `
		INSERT INTO members (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    last_seen_at = NOW(),
		    updated_at = NOW()
		RETURNING (xmax = 0), is_banned
	`
	var created, banned bool
	err := r.db.QueryRow(ctx, query, p.UserID, p.Username, p.FirstName, p.LastName).Scan(&created, &banned)
	if err != nil {
		return false, false, fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return created, banned, nil
}

// GetByUserID: если не найден, common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	query := `
		SELECT id, user_id, username, first_name, last_name, is_admin, is_banned,
		       joined_at, last_seen_at, created_at, updated_at
		FROM members
		WHERE user_id = $1
	`
	var m Member
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&m.ID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
		&m.IsAdmin, &m.IsBanned,
		&m.JoinedAt, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("участник user_id=%d: %w", userID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения участника (user_id=%d): %w", userID, err)
	}
	return &m, nil
}

// ListAdmins возвращает user_id всех админов из БД.
func (r *Repository) ListAdmins(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM members WHERE is_admin = TRUE AND is_banned = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса админов: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
