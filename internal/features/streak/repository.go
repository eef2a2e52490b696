// Package streak — repository.go выполняет операции с таблицей streaks.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store — хранилище стриков.
type Store interface {
	Get(ctx context.Context, userID int64) (*Streak, error)
	Save(ctx context.Context, s *Streak) error
	BreakBefore(ctx context.Context, day time.Time) (int64, error)
}

// Repository предоставляет методы для работы с таблицей streaks.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает стрик пользователя или nil, если он ещё ни разу не забирал бонус.
func (r *Repository) Get(ctx context.Context, userID int64) (*Streak, error) {
	query := `
		SELECT id, user_id, current_streak, longest_streak, last_claim_date,
		       total_claims, created_at, updated_at
		FROM streaks
		WHERE user_id = $1
	`
	var s Streak
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastClaimDate,
		&s.TotalClaims, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения стрика (user_id=%d): %w", userID, err)
	}
	return &s, nil
}

// Save создаёт или обновляет запись стрика.
func (r *Repository) Save(ctx context.Context, s *Streak) error {
	query := `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_claim_date, total_claims)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = EXCLUDED.current_streak,
		    longest_streak = EXCLUDED.longest_streak,
		    last_claim_date = EXCLUDED.last_claim_date,
		    total_claims = EXCLUDED.total_claims,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		s.UserID, s.CurrentStreak, s.LongestStreak, s.LastClaimDate, s.TotalClaims,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения стрика: %w", err)
	}
	return nil
}

// BreakBefore обнуляет серии тех, кто последний раз забирал бонус раньше day.
func (r *Repository) BreakBefore(ctx context.Context, day time.Time) (int64, error) {
	query := `
		UPDATE streaks
		SET current_streak = 0, updated_at = NOW()
		WHERE current_streak > 0 AND last_claim_date < $1
	`
	tag, err := r.db.Exec(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса стриков: %w", err)
	}
	return tag.RowsAffected(), nil
}
