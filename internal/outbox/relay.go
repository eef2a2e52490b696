package outbox

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// MaxBackoff: верхняя граница паузы между попытками.
const MaxBackoff = 30 * time.Minute

// Applier применяет задание к леджеру.
type Applier interface {
	ReplayCredit(ctx context.Context, job Job) error
}

// RelayConfig: параметры повторов.
type RelayConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	BatchSize   int
}

// Report: итог одного прохода.
type Report struct {
	Succeeded int
	Retried   int
	Dead      int
}

// Relay переносит задания из очереди в леджер.
type Relay struct {
	store   *Store
	applier Applier
	cfg     RelayConfig
	now     func() time.Time
}

// NewRelay создаёт Relay.
func NewRelay(store *Store, applier Applier, cfg RelayConfig) *Relay {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Relay{store: store, applier: applier, cfg: cfg, now: time.Now}
}

// Backoff: пауза перед попыткой attempt (с единицы): base, 2×base, 4×base… не больше MaxBackoff.
func Backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// ReplayDue применяет все наступившие задания одной пачкой.
// Если леджер недоступен, оставшиеся задания пачки откладываются без попытки.
func (r *Relay) ReplayDue(ctx context.Context) (Report, error) {
	var rep Report
	now := r.now().UTC()

	jobs, err := r.store.Due(ctx, now, r.cfg.BatchSize)
	if err != nil {
		return rep, err
	}

	ledgerDown := false
	for _, job := range jobs {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}

		var applyErr error
		if ledgerDown {
			applyErr = common.ErrLedgerUnavailable
		} else {
			applyErr = r.applier.ReplayCredit(ctx, job)
		}

		entry := log.WithFields(log.Fields{
			"component": "outbox",
			"job_id":    job.ID,
			"user_id":   job.UserID,
			"amount":    job.Amount,
			"attempt":   job.Attempts + 1,
		})

		switch {
		case applyErr == nil:
			if err := r.store.MarkSucceeded(ctx, job.ID, now); err != nil {
				return rep, err
			}
			rep.Succeeded++
			entry.Info("Отложенное начисление применено")

		case errors.Is(applyErr, common.ErrLedgerUnavailable):
			ledgerDown = true
			next := now.Add(Backoff(r.cfg.BaseBackoff, job.Attempts+1))
			if err := r.store.MarkRetry(ctx, job.ID, next, applyErr.Error()); err != nil {
				return rep, err
			}
			rep.Retried++
			entry.WithField("next_attempt", next).Debug("Леджер недоступен, задание отложено")

		case job.Attempts+1 >= r.cfg.MaxAttempts:
			if err := r.store.MarkDead(ctx, job.ID, applyErr.Error()); err != nil {
				return rep, err
			}
			rep.Dead++
			entry.WithError(applyErr).Error("Задание outbox исчерпало попытки")

		default:
			next := now.Add(Backoff(r.cfg.BaseBackoff, job.Attempts+1))
			if err := r.store.MarkRetry(ctx, job.ID, next, applyErr.Error()); err != nil {
				return rep, err
			}
			rep.Retried++
			entry.WithError(applyErr).Warn("Ошибка применения задания outbox")
		}
	}
	return rep, nil
}
