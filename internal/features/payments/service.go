// Package payments — service.go содержит бизнес-логику платежей TON.
// Все изменения балансов идут через шлюз леджера (AdjustTon) с ключами
// идемпотентности, поэтому повтор подтверждения или отказа безопасен.
package payments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

// tonAddress: raw-формат (0:<64 hex>) или user-friendly (48 символов base64url).
var tonAddress = regexp.MustCompile(`^(-?[0-9]:[0-9a-fA-F]{64}|[A-Za-z0-9_-]{48})$`)

// TonLedger: часть шлюза леджера, которой нужны платежи.
type TonLedger interface {
	AdjustTon(ctx context.Context, userID int64, ton decimal.Decimal, duna int64, kind economy.Kind, description, key string) (*economy.Applied, error)
}

// Settings: параметры платежей из конфигурации.
type Settings struct {
	Enabled    bool
	DunaPerTon decimal.Decimal
	MinTon     decimal.Decimal
	PendingTTL time.Duration
}

// Service управляет платежами.
type Service struct {
	repo   Store
	ledger TonLedger
	cfg    Settings
	notify func(text string)
	now    func() time.Time
}

// NewService создаёт сервис платежей. notify (может быть nil) уведомляет админов о новых заявках.
func NewService(repo Store, ledger TonLedger, cfg Settings, notify func(text string)) *Service {
	if notify == nil {
		notify = func(string) {}
	}
	return &Service{repo: repo, ledger: ledger, cfg: cfg, notify: notify, now: time.Now}
}

func (s *Service) checkAmount(ton decimal.Decimal) error {
	if !s.cfg.Enabled {
		return common.ErrFeatureDisabled
	}
	if !ton.IsPositive() {
		return common.ErrInvalidAmount
	}
	if ton.LessThan(s.cfg.MinTon) {
		return fmt.Errorf("%w: минимум %s TON", common.ErrBelowMinimumTon, s.cfg.MinTon)
	}
	return nil
}

// SubmitDeposit фиксирует отправленное пользователем пополнение.
// Баланс не меняется до подтверждения админом.
func (s *Service) SubmitDeposit(ctx context.Context, userID int64, ton decimal.Decimal, externalRef string) (*Payment, error) {
	if err := s.checkAmount(ton); err != nil {
		return nil, err
	}
	p := &Payment{
		UserID:      userID,
		Kind:        KindDeposit,
		TonAmount:   ton,
		ExternalRef: strings.TrimSpace(externalRef),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"payment_id": p.ID, "user_id": userID, "ton": ton.String()}).
		Info("Заявка на пополнение создана")
	s.notify(fmt.Sprintf("💎 Пополнение #%d: %s TON от %d\nПодтвердить: /confirm %d", p.ID, ton, userID, p.ID))
	return p, nil
}

// RequestWithdrawal удерживает TON и создаёт заявку на вывод.
// Если заявку сохранить не удалось, удержание возвращается.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, ton decimal.Decimal, address string) (*Payment, error) {
	if err := s.checkAmount(ton); err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if !tonAddress.MatchString(address) {
		return nil, common.ErrInvalidWallet
	}

	holdID := uuid.NewString()
	if _, err := s.ledger.AdjustTon(ctx, userID, ton.Neg(), 0, economy.KindSpend,
		"Вывод TON (удержание)", "withdraw:"+holdID+":hold"); err != nil {
		return nil, err
	}

	p := &Payment{
		UserID:        userID,
		Kind:          KindWithdrawal,
		TonAmount:     ton,
		ExternalRef:   holdID,
		WalletAddress: address,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if _, rerr := s.ledger.AdjustTon(ctx, userID, ton, 0, economy.KindEarn,
			"Возврат удержания TON", "withdraw:"+holdID+":refund"); rerr != nil {
			log.WithError(rerr).WithField("user_id", userID).Error("Не удалось вернуть удержание TON")
		}
		return nil, err
	}

	log.WithFields(log.Fields{"payment_id": p.ID, "user_id": userID, "ton": ton.String()}).
		Info("Заявка на вывод создана")
	s.notify(fmt.Sprintf("📤 Вывод #%d: %s TON на %s\nПосле отправки: /confirm %d", p.ID, ton, address, p.ID))
	return p, nil
}

// Confirm подтверждает платёж: пополнение зачисляет TON, вывод просто закрывается.
// Повторный Confirm уже подтверждённого пополнения доводит зачисление до конца.
func (s *Service) Confirm(ctx context.Context, paymentID, adminID int64) (*Payment, error) {
	p, err := s.repo.Resolve(ctx, paymentID, StatusCompleted, &adminID)
	if errors.Is(err, common.ErrPaymentResolved) {
		existing, gerr := s.repo.Get(ctx, paymentID)
		if gerr != nil || existing.Status != StatusCompleted || existing.Kind != KindDeposit {
			return nil, err
		}
		p = existing
	} else if err != nil {
		return nil, err
	}

	if p.Kind == KindDeposit {
		key := fmt.Sprintf("payment:%d:confirm", p.ID)
		if _, err := s.ledger.AdjustTon(ctx, p.UserID, p.TonAmount, 0, economy.KindEarn,
			fmt.Sprintf("Пополнение TON #%d", p.ID), key); err != nil {
			return nil, fmt.Errorf("платёж подтверждён, но не зачислен (повторите /confirm): %w", err)
		}
	}

	log.WithFields(log.Fields{"payment_id": p.ID, "admin_id": adminID, "kind": p.Kind}).Info("Платёж подтверждён")
	return p, nil
}

// Reject отклоняет платёж. Для вывода удержанные TON возвращаются.
func (s *Service) Reject(ctx context.Context, paymentID, adminID int64) (*Payment, error) {
	p, err := s.repo.Resolve(ctx, paymentID, StatusFailed, &adminID)
	if errors.Is(err, common.ErrPaymentResolved) {
		existing, gerr := s.repo.Get(ctx, paymentID)
		if gerr != nil || existing.Status != StatusFailed || existing.Kind != KindWithdrawal {
			return nil, err
		}
		p = existing
	} else if err != nil {
		return nil, err
	}

	if p.Kind == KindWithdrawal {
		if err := s.refund(ctx, p); err != nil {
			return nil, fmt.Errorf("платёж отклонён, но TON не возвращены (повторите /reject): %w", err)
		}
	}

	log.WithFields(log.Fields{"payment_id": p.ID, "admin_id": adminID, "kind": p.Kind}).Info("Платёж отклонён")
	return p, nil
}

func (s *Service) refund(ctx context.Context, p *Payment) error {
	key := fmt.Sprintf("payment:%d:refund", p.ID)
	_, err := s.ledger.AdjustTon(ctx, p.UserID, p.TonAmount, 0, economy.KindEarn,
		fmt.Sprintf("Возврат вывода TON #%d", p.ID), key)
	return err
}

// ExchangeTonToDuna меняет TON на DUNA по курсу: DUNA = floor(ton * курс).
// Списание TON и зачисление DUNA: одна проводка.
func (s *Service) ExchangeTonToDuna(ctx context.Context, userID int64, ton decimal.Decimal) (*Exchange, error) {
	if err := s.checkAmount(ton); err != nil {
		return nil, err
	}
	duna := s.Quote(ton)
	if duna <= 0 {
		return nil, common.ErrInvalidAmount
	}

	a, err := s.ledger.AdjustTon(ctx, userID, ton.Neg(), duna, economy.KindEarn,
		fmt.Sprintf("Обмен %s TON → %s", ton, common.FormatBalance(duna)), "")
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "ton": ton.String(), "duna": duna}).Info("Обмен TON на DUNA")
	return &Exchange{Ton: ton, Duna: duna, Balance: a.Balance, TonBalance: a.Ton}, nil
}

// Quote: сколько DUNA дадут за ton.
func (s *Service) Quote(ton decimal.Decimal) int64 {
	return ton.Mul(s.cfg.DunaPerTon).Floor().IntPart()
}

// ExpireStale отклоняет пополнения, которые ждут подтверждения дольше PendingTTL.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.repo.StaleDeposits(ctx, s.now().Add(-s.cfg.PendingTTL))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, p := range stale {
		if _, err := s.repo.Resolve(ctx, p.ID, StatusFailed, nil); err != nil {
			if !errors.Is(err, common.ErrPaymentResolved) {
				log.WithError(err).WithField("payment_id", p.ID).Error("Ошибка истечения платежа")
			}
			continue
		}
		expired++
	}
	if expired > 0 {
		log.WithField("expired", expired).Info("Просроченные пополнения отклонены")
	}
	return expired, nil
}

// Pending: ожидающие платежи для админа.
func (s *Service) Pending(ctx context.Context, limit int) ([]*Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Pending(ctx, limit)
}

// History: платежи пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
