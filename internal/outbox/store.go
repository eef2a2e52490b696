// Package outbox — локальная надёжная очередь начислений.
// Если леджер недоступен, выигрыш записывается в SQLite-файл
// и позже применяется Relay с тем же ключом идемпотентности.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status: состояние задания.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusDead      Status = "dead"
)

// Job: отложенное начисление.
type Job struct {
	ID             uuid.UUID
	UserID         int64
	Amount         int64
	Kind           string
	Description    string
	IdempotencyKey string
	Status         Status
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

// NewJob создаёт задание, готовое к немедленной попытке.
func NewJob(userID, amount int64, kind, description, key string) Job {
	now := time.Now().UTC()
	return Job{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         amount,
		Kind:           kind,
		Description:    description,
		IdempotencyKey: key,
		Status:         StatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
	}
}

// Stats: количество заданий по состояниям.
type Stats struct {
	Pending   int `json:"pending"`
	Succeeded int `json:"succeeded"`
	Dead      int `json:"dead"`
}

const schema = `
CREATE TABLE IF NOT EXISTS outbox_jobs (
	id              TEXT PRIMARY KEY,
	user_id         INTEGER NOT NULL,
	amount          INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	description     TEXT NOT NULL,
	idempotency_key TEXT NOT NULL UNIQUE,
	status          TEXT NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	last_error      TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	processed_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox_jobs (status, next_attempt_at);
`

// Store: SQLite-хранилище заданий.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) файл очереди по пути path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("путь к outbox не задан")
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("создание каталога outbox: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", clean)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	// SQLite не поддерживает параллельную запись
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("создание схемы outbox: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает файл очереди.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Enqueue сохраняет задание. Повтор с тем же ключом идемпотентности игнорируется.
func (s *Store) Enqueue(ctx context.Context, job Job) error {
	if job.IdempotencyKey == "" {
		return fmt.Errorf("задание outbox без ключа идемпотентности")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = job.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox_jobs
			(id, user_id, amount, kind, description, idempotency_key, status, attempts, next_attempt_at, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, job.ID.String(), job.UserID, job.Amount, job.Kind, job.Description, job.IdempotencyKey,
		string(job.Status), job.Attempts, job.NextAttemptAt.UnixMilli(), job.LastError, job.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("запись задания outbox: %w", err)
	}
	return nil
}

// Due возвращает ожидающие задания, время которых наступило, старые первыми.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, description, idempotency_key, status,
		       attempts, next_attempt_at, last_error, created_at, processed_at
		FROM outbox_jobs
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at
		LIMIT ?
	`, string(StatusPending), now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("выборка заданий outbox: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Get возвращает задание по ключу идемпотентности.
func (s *Store) Get(ctx context.Context, key string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, kind, description, idempotency_key, status,
		       attempts, next_attempt_at, last_error, created_at, processed_at
		FROM outbox_jobs
		WHERE idempotency_key = ?
	`, key)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkSucceeded помечает задание применённым.
func (s *Store) MarkSucceeded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.update(ctx, `
		UPDATE outbox_jobs
		SET status = ?, attempts = attempts + 1, processed_at = ?, last_error = ''
		WHERE id = ?
	`, string(StatusSucceeded), at.UnixMilli(), id.String())
}

// MarkRetry откладывает задание до next.
func (s *Store) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	return s.update(ctx, `
		UPDATE outbox_jobs
		SET attempts = attempts + 1, next_attempt_at = ?, last_error = ?
		WHERE id = ?
	`, next.UnixMilli(), lastErr, id.String())
}

// MarkDead снимает задание с обработки.
func (s *Store) MarkDead(ctx context.Context, id uuid.UUID, lastErr string) error {
	return s.update(ctx, `
		UPDATE outbox_jobs
		SET status = ?, attempts = attempts + 1, last_error = ?, processed_at = ?
		WHERE id = ?
	`, string(StatusDead), lastErr, time.Now().UTC().UnixMilli(), id.String())
}

// Stats считает задания по состояниям.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("статистика outbox: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		switch Status(status) {
		case StatusPending:
			st.Pending = n
		case StatusSucceeded:
			st.Succeeded = n
		case StatusDead:
			st.Dead = n
		}
	}
	return st, rows.Err()
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("обновление задания outbox: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("задание outbox не найдено")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job       Job
		id        string
		status    string
		next      int64
		created   int64
		processed sql.NullInt64
	)
	err := row.Scan(&id, &job.UserID, &job.Amount, &job.Kind, &job.Description, &job.IdempotencyKey,
		&status, &job.Attempts, &next, &job.LastError, &created, &processed)
	if err != nil {
		return Job{}, err
	}
	job.ID, err = uuid.Parse(id)
	if err != nil {
		return Job{}, fmt.Errorf("повреждённый id задания %q: %w", id, err)
	}
	job.Status = Status(status)
	job.NextAttemptAt = time.UnixMilli(next).UTC()
	job.CreatedAt = time.UnixMilli(created).UTC()
	if processed.Valid {
		t := time.UnixMilli(processed.Int64).UTC()
		job.ProcessedAt = &t
	}
	return job, nil
}
