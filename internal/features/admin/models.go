// Package admin реализует админ-панель с парольной аутентификацией:
// вход по /login в личке, затем команды управления платежами,
// очередью отложенных выплат и лотереей.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

const (
	// MaxFailedAttempts — столько неудачных входов за LockoutWindow блокируют вход.
	MaxFailedAttempts = 3
	// LockoutWindow — окно подсчёта неудачных попыток.
	LockoutWindow = time.Hour
	// SessionTTL — время жизни сессии.
	SessionTTL = 24 * time.Hour
)
