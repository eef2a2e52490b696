// Package admin — service.go содержит логику аутентификации, управления сессиями
// и админ-действия. Каждое действие требует активной сессии.
package admin

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/payments"
	"serotonyl.ru/duna-casino/internal/outbox"
)

// Admins сообщает, является ли пользователь админом.
type Admins interface {
	IsAdmin(ctx context.Context, userID int64) bool
}

// Payments — админ-операции с платежами.
type Payments interface {
	Pending(ctx context.Context, limit int) ([]*payments.Payment, error)
	Confirm(ctx context.Context, paymentID, adminID int64) (*payments.Payment, error)
	Reject(ctx context.Context, paymentID, adminID int64) (*payments.Payment, error)
}

// OutboxStats — состояние очереди отложенных выплат.
type OutboxStats interface {
	Stats(ctx context.Context) (outbox.Stats, error)
}

// Lottery — ручной запуск розыгрыша.
type Lottery interface {
	DrawPrevious(ctx context.Context) (*lottery.Winner, error)
}

// Service управляет админ-панелью.
type Service struct {
	repo         Store
	admins       Admins
	payments     Payments
	outbox       OutboxStats
	lottery      Lottery
	passwordHash string
	now          func() time.Time
}

// NewService создаёт сервис админ-панели.
func NewService(repo Store, admins Admins, pay Payments, ob OutboxStats, lot Lottery, passwordHash string) *Service {
	return &Service{
		repo:         repo,
		admins:       admins,
		payments:     pay,
		outbox:       ob,
		lottery:      lot,
		passwordHash: passwordHash,
		now:          time.Now,
	}
}

// Login проверяет пароль администратора (Argon2id) и открывает сессию на 24 часа.
// Защита от brute-force: 3 неудачные попытки за час блокируют вход.
func (s *Service) Login(ctx context.Context, userID int64, password string) error {
	if !s.admins.IsAdmin(ctx, userID) {
		return common.ErrNotAdmin
	}

	attempts, err := s.repo.GetRecentAttempts(ctx, userID, LockoutWindow)
	if err != nil {
		return err
	}
	if attempts >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)
	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		UserID:       userID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    s.now().Add(SessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}
	log.WithField("user_id", userID).Info("Администратор вошёл")
	return nil
}

// Logout закрывает сессию.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSession(ctx, userID)
}

// Authorize проверяет права и активную сессию.
func (s *Service) Authorize(ctx context.Context, userID int64) error {
	if !s.admins.IsAdmin(ctx, userID) {
		return common.ErrNotAdmin
	}
	session, err := s.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return common.ErrSessionExpired
	}
	if err := s.repo.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).Debug("Не удалось обновить активность сессии")
	}
	return nil
}

// PendingPayments — ожидающие платежи.
func (s *Service) PendingPayments(ctx context.Context, adminID int64) ([]*payments.Payment, error) {
	if err := s.Authorize(ctx, adminID); err != nil {
		return nil, err
	}
	return s.payments.Pending(ctx, 20)
}

// ConfirmPayment подтверждает платёж.
func (s *Service) ConfirmPayment(ctx context.Context, adminID, paymentID int64) (*payments.Payment, error) {
	if err := s.Authorize(ctx, adminID); err != nil {
		return nil, err
	}
	return s.payments.Confirm(ctx, paymentID, adminID)
}

// RejectPayment отклоняет платёж.
func (s *Service) RejectPayment(ctx context.Context, adminID, paymentID int64) (*payments.Payment, error) {
	if err := s.Authorize(ctx, adminID); err != nil {
		return nil, err
	}
	return s.payments.Reject(ctx, paymentID, adminID)
}

// OutboxStats — счётчики очереди выплат.
func (s *Service) OutboxStats(ctx context.Context, adminID int64) (outbox.Stats, error) {
	if err := s.Authorize(ctx, adminID); err != nil {
		return outbox.Stats{}, err
	}
	return s.outbox.Stats(ctx)
}

// DrawLottery разыгрывает прошедший месяц.
func (s *Service) DrawLottery(ctx context.Context, adminID int64) (*lottery.Winner, error) {
	if err := s.Authorize(ctx, adminID); err != nil {
		return nil, err
	}
	return s.lottery.DrawPrevious(ctx)
}
