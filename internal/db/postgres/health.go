package postgres

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Pinger — то, что умеет проверять соединение (pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker периодически пингует БД и помнит результат последней проверки.
type HealthChecker struct {
	db      Pinger
	timeout time.Duration

	mu        sync.RWMutex
	healthy   bool
	lastErr   error
	checkedAt time.Time
}

// NewHealthChecker создаёт проверку. До первого Check база считается здоровой:
// пул уже прошёл Ping при создании.
func NewHealthChecker(db Pinger, timeout time.Duration) *HealthChecker {
	return &HealthChecker{db: db, timeout: timeout, healthy: true}
}

// Check выполняет один пинг с таймаутом и сохраняет результат.
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.db.Ping(ctx)

	h.mu.Lock()
	wasHealthy := h.healthy
	h.healthy = err == nil
	h.lastErr = err
	h.checkedAt = time.Now()
	h.mu.Unlock()

	switch {
	case err != nil && wasHealthy:
		log.WithError(err).WithField("component", "db-health").Error("PostgreSQL недоступен")
	case err == nil && !wasHealthy:
		log.WithField("component", "db-health").Info("PostgreSQL снова доступен")
	}
	return err
}

// Healthy — результат последней проверки.
func (h *HealthChecker) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthy
}

// LastError возвращает ошибку последней проверки (nil, если всё хорошо).
func (h *HealthChecker) LastError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

// CheckedAt — время последней проверки.
func (h *HealthChecker) CheckedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.checkedAt
}
