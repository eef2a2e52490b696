// Package lottery — service.go содержит бизнес-логику лотереи.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

// codeAttempts: сколько раз пробуем сгенерировать свободный код.
const codeAttempts = 5

// Ledger: часть шлюза леджера, которой нужна лотерея.
type Ledger interface {
	Debit(ctx context.Context, userID, amount int64, kind economy.Kind, description string) (*economy.Transaction, error)
	CreditOrEnqueue(ctx context.Context, userID, amount int64, kind economy.Kind, description, key string) (*economy.Transaction, bool, error)
}

// Settings: параметры лотереи из конфигурации.
type Settings struct {
	Enabled          bool
	ExtraTicketPrice int64
	Prize            string
}

// Service управляет билетами и розыгрышами.
type Service struct {
	repo   Store
	ledger Ledger
	src    random.Source
	cfg    Settings
	now    func() time.Time
}

// NewService создаёт сервис лотереи.
func NewService(repo Store, ledger Ledger, src random.Source, cfg Settings) *Service {
	if src == nil {
		src = random.Default()
	}
	return &Service{repo: repo, ledger: ledger, src: src, cfg: cfg, now: time.Now}
}

// CurrentPeriod: текущий месяц по Москве.
func (s *Service) CurrentPeriod() Period { return PeriodOf(s.now()) }

// ClaimFreeTicket выдаёт бесплатный билет текущего месяца (один на пользователя).
func (s *Service) ClaimFreeTicket(ctx context.Context, userID int64) (*Ticket, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrFeatureDisabled
	}
	t, err := s.issue(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "code": t.Code}).Info("Выдан бесплатный билет")
	return t, nil
}

// BuyExtraTicket списывает цену билета и выдаёт дополнительный билет.
// Если билет сохранить не удалось, цена возвращается.
func (s *Service) BuyExtraTicket(ctx context.Context, userID int64) (*Ticket, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrFeatureDisabled
	}

	p := s.CurrentPeriod()
	tx, err := s.ledger.Debit(ctx, userID, s.cfg.ExtraTicketPrice, economy.KindSpend,
		fmt.Sprintf("Лотерейный билет %s", p))
	if err != nil {
		return nil, err
	}

	t, err := s.issue(ctx, userID, false)
	if err != nil {
		key := fmt.Sprintf("lottery:%d:refund", tx.ID)
		if _, _, rerr := s.ledger.CreditOrEnqueue(ctx, userID, s.cfg.ExtraTicketPrice,
			economy.KindEarn, "Возврат за билет", key); rerr != nil {
			log.WithError(rerr).WithField("user_id", userID).Error("Не удалось вернуть цену билета")
		}
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "code": t.Code}).Info("Куплен дополнительный билет")
	return t, nil
}

// issue создаёт билет со свежим кодом, повторяя генерацию при коллизии.
func (s *Service) issue(ctx context.Context, userID int64, free bool) (*Ticket, error) {
	p := s.CurrentPeriod()
	for i := 0; i < codeAttempts; i++ {
		t := &Ticket{
			UserID: userID,
			Code:   s.newCode(),
			Month:  p.Month,
			Year:   p.Year,
			IsFree: free,
		}
		err := s.repo.CreateTicket(ctx, t)
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("не удалось подобрать свободный код билета")
}

// newCode генерирует код из CodeLength символов A-Z0-9.
func (s *Service) newCode() string {
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		sb.WriteByte(codeAlphabet[s.src.IntN(len(codeAlphabet))])
	}
	return sb.String()
}

// Tickets возвращает билеты пользователя за месяц.
func (s *Service) Tickets(ctx context.Context, userID int64, p Period) ([]*Ticket, error) {
	if !p.Valid() {
		return nil, common.ErrInvalidSelection
	}
	return s.repo.ListTickets(ctx, userID, p)
}

// Winners возвращает последних победителей.
func (s *Service) Winners(ctx context.Context, limit int) ([]*Winner, error) {
	if limit <= 0 || limit > 100 {
		limit = 12
	}
	return s.repo.Winners(ctx, limit)
}

// DrawMonth разыгрывает месяц: равновероятно выбирает один билет.
// Повторный розыгрыш того же месяца: ErrDrawAlreadyDone.
func (s *Service) DrawMonth(ctx context.Context, p Period) (*Winner, error) {
	if !p.Valid() {
		return nil, common.ErrInvalidSelection
	}
	w, err := s.repo.Draw(ctx, p, s.cfg.Prize, s.src.IntN)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"period":  p.String(),
		"user_id": w.UserID,
		"code":    w.TicketCode,
	}).Info("Лотерея разыграна")
	return w, nil
}

// DrawPrevious разыгрывает прошедший месяц (для крона 1-го числа).
func (s *Service) DrawPrevious(ctx context.Context) (*Winner, error) {
	return s.DrawMonth(ctx, s.CurrentPeriod().Previous())
}
