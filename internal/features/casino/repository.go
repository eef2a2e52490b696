// Package casino — repository.go выполняет операции с таблицами casino_rounds и casino_stats.
package casino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами казино в БД.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий казино.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AppendRound сохраняет раунд и обновляет статистику одной транзакцией.
func (r *Repository) AppendRound(ctx context.Context, res *RoundResult) error {
	data, err := roundData(res)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO casino_rounds (id, user_id, game, outcome, stake, payout, payout_queued, game_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, res.ID, res.UserID, string(res.Game), res.Outcome, res.Stake, res.Payout, res.PayoutQueued, data, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения раунда: %w", err)
	}

	if err := updateStats(ctx, tx, res.UserID, res.Stake, res.Payout); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// updateStats обновляет статистику после раунда.
// Обновляет в одном запросе: раунды, ставки, выигрыши, рекорд и RTP.
func updateStats(ctx context.Context, tx pgx.Tx, userID, stake, payout int64) error {
	query := `
		INSERT INTO casino_stats (user_id, total_rounds, total_wagered, total_won, biggest_win, current_rtp)
		VALUES ($1, 1, $2, $3, $3,
			CASE WHEN $2 = 0 THEN 0 ELSE ($3::DECIMAL / $2::DECIMAL) * 100 END)
		ON CONFLICT (user_id) DO UPDATE SET
			total_rounds = casino_stats.total_rounds + 1,
			total_wagered = casino_stats.total_wagered + $2,
			total_won = casino_stats.total_won + $3,
			biggest_win = GREATEST(casino_stats.biggest_win, $3),
			current_rtp = CASE
				WHEN (casino_stats.total_wagered + $2) = 0 THEN 0
				ELSE ((casino_stats.total_won + $3)::DECIMAL / (casino_stats.total_wagered + $2)::DECIMAL) * 100
			END,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, query, userID, stake, payout); err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	return nil
}

// GetStats возвращает статистику казино пользователя. Если он ещё не играл, нули.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	query := `
		SELECT id, user_id, total_rounds, total_wagered, total_won, biggest_win,
		       current_rtp, created_at, updated_at
		FROM casino_stats
		WHERE user_id = $1
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.TotalRounds, &s.TotalWagered,
		&s.TotalWon, &s.BiggestWin, &s.CurrentRTP,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Stats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return &s, nil
}

// roundData сериализует подробности раунда в JSON для сохранения.
func roundData(res *RoundResult) (json.RawMessage, error) {
	data := map[string]any{
		"selection":      res.Selection,
		"player_score":   res.PlayerScore,
		"opponent_score": res.OpponentScore,
		"details":        res.Details,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации раунда: %w", err)
	}
	return bytes, nil
}
