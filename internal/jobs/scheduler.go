// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: сброс стриков, повтор выплат из outbox,
// розыгрыш лотереи, просроченные платежи и проверку БД.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/outbox"
)

// StreakResetter ломает пропущенные серии.
type StreakResetter interface {
	DailyReset(ctx context.Context) error
}

// Replayer повторяет отложенные выплаты.
type Replayer interface {
	ReplayDue(ctx context.Context) (outbox.Report, error)
}

// LotteryDrawer разыгрывает прошедший месяц.
type LotteryDrawer interface {
	DrawPrevious(ctx context.Context) (*lottery.Winner, error)
}

// PaymentExpirer закрывает зависшие заявки на пополнение.
type PaymentExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// HealthChecker пингует БД.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Tasks — зависимости планировщика. Nil-поля пропускаются.
type Tasks struct {
	Streaks  StreakResetter
	Outbox   Replayer
	Lottery  LotteryDrawer
	Payments PaymentExpirer
	Health   HealthChecker
}

// Intervals — периоды интервальных задач.
type Intervals struct {
	OutboxReplay time.Duration
	DBHealth     time.Duration
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	tasks     Tasks
	intervals Intervals
	sendFunc  func(userID int64, text string)
}

// NewScheduler создаёт планировщик с московским часовым поясом.
func NewScheduler(tasks Tasks, intervals Intervals, sendFunc func(userID int64, text string)) *Scheduler {
	// SkipIfStillRunning: медленный проход не накладывается на следующий
	c := cron.New(
		cron.WithLocation(common.MoscowLocation()),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	return &Scheduler{
		cron:      c,
		tasks:     tasks,
		intervals: intervals,
		sendFunc:  sendFunc,
	}
}

// Start регистрирует задачи и запускает cron.
// Outbox разбирается сразу, не дожидаясь первого тика.
func (s *Scheduler) Start(ctx context.Context) error {
	type job struct {
		spec string
		name string
		fn   func(context.Context)
	}
	var jobs []job

	if s.tasks.Streaks != nil {
		// 00:00 по Москве
		jobs = append(jobs, job{"0 0 * * *", "streak-reset", s.resetStreaks})
	}
	if s.tasks.Outbox != nil && s.intervals.OutboxReplay > 0 {
		jobs = append(jobs, job{every(s.intervals.OutboxReplay), "outbox-replay", s.replayOutbox})
	}
	if s.tasks.Lottery != nil {
		// 1-е число, 00:05: после сброса стриков
		jobs = append(jobs, job{"5 0 1 * *", "lottery-draw", s.drawLottery})
	}
	if s.tasks.Payments != nil {
		jobs = append(jobs, job{"@hourly", "payments-expire", s.expirePayments})
	}
	if s.tasks.Health != nil && s.intervals.DBHealth > 0 {
		jobs = append(jobs, job{every(s.intervals.DBHealth), "db-health", s.checkHealth})
	}

	for _, j := range jobs {
		fn := j.fn
		if _, err := s.cron.AddFunc(j.spec, func() { fn(ctx) }); err != nil {
			return fmt.Errorf("cron %s (%s): %w", j.name, j.spec, err)
		}
	}

	if s.tasks.Outbox != nil {
		go s.replayOutbox(ctx)
	}

	s.cron.Start()
	log.WithField("jobs", len(jobs)).Info("Планировщик задач запущен (Europe/Moscow)")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func every(d time.Duration) string { return "@every " + d.String() }

func (s *Scheduler) resetStreaks(ctx context.Context) {
	log.Info("[CRON] Ежедневный сброс стриков")
	if err := s.tasks.Streaks.DailyReset(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка сброса стриков")
	}
}

func (s *Scheduler) replayOutbox(ctx context.Context) {
	rep, err := s.tasks.Outbox.ReplayDue(ctx)
	if err != nil {
		log.WithError(err).Warn("[CRON] Ошибка повтора выплат")
	}
	if rep.Succeeded+rep.Retried+rep.Dead > 0 {
		log.WithFields(log.Fields{
			"succeeded": rep.Succeeded,
			"retried":   rep.Retried,
			"dead":      rep.Dead,
		}).Info("[CRON] Проход outbox")
	}
}

func (s *Scheduler) drawLottery(ctx context.Context) {
	log.Info("[CRON] Розыгрыш лотереи")
	w, err := s.tasks.Lottery.DrawPrevious(ctx)
	if err != nil {
		log.WithError(err).Warn("[CRON] Розыгрыш не проведён")
		return
	}
	if s.sendFunc != nil {
		s.sendFunc(w.UserID, fmt.Sprintf(
			"🎉 Ваш билет %s выиграл розыгрыш %02d.%d!\nПриз: %s\nАдминистратор свяжется с вами.",
			w.TicketCode, w.Month, w.Year, w.Prize,
		))
	}
}

func (s *Scheduler) expirePayments(ctx context.Context) {
	n, err := s.tasks.Payments.ExpireStale(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка закрытия просроченных платежей")
		return
	}
	if n > 0 {
		log.WithField("expired", n).Info("[CRON] Просроченные платежи закрыты")
	}
}

func (s *Scheduler) checkHealth(ctx context.Context) {
	// состояние и переходы логирует сам HealthChecker
	_ = s.tasks.Health.Check(ctx)
}

// cronLogger направляет логи cron в logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(cronFields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithError(err).WithFields(cronFields(keysAndValues)).Error(msg)
}

// cronFields превращает пары ключ-значение cron в поля logrus.
func cronFields(kv []interface{}) log.Fields {
	f := log.Fields{"component": "cron"}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
