// Package referrals: service.go содержит логику приглашений и бонусов.
package referrals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

const (
	codeAttempts = 6
	listLimit    = 50
)

// Ledger: часть шлюза леджера для бонусов за приглашение.
type Ledger interface {
	ClaimBonus(ctx context.Context, userID, amount int64, description, key string) (*economy.Transaction, error)
	CreditOrEnqueue(ctx context.Context, userID, amount int64, kind economy.Kind, description, key string) (*economy.Transaction, bool, error)
}

// Settings: параметры программы.
type Settings struct {
	Enabled bool
	Bonus   int64
}

// Service управляет кодами и приглашениями.
type Service struct {
	repo   Store
	ledger Ledger
	src    random.Source
	cfg    Settings
}

// NewService создаёт сервис рефералов.
func NewService(repo Store, ledger Ledger, src random.Source, cfg Settings) *Service {
	if src == nil {
		src = random.Default()
	}
	return &Service{repo: repo, ledger: ledger, src: src, cfg: cfg}
}

// Bonus: сколько DUNA получает каждая сторона.
func (s *Service) Bonus() int64 { return s.cfg.Bonus }

// Code возвращает код приглашения игрока, выдавая его при первом обращении.
func (s *Service) Code(ctx context.Context, userID int64) (string, error) {
	if !s.cfg.Enabled {
		return "", common.ErrFeatureDisabled
	}
	for i := 0; i < codeAttempts; i++ {
		code, err := s.repo.EnsureCode(ctx, userID, s.newCode())
		if errors.Is(err, errCodeTaken) {
			continue
		}
		return code, err
	}
	return "", fmt.Errorf("не удалось подобрать свободный код приглашения")
}

func (s *Service) newCode() string {
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		sb.WriteByte(codeAlphabet[s.src.IntN(len(codeAlphabet))])
	}
	return sb.String()
}

// Activate засчитывает приглашение по коду друга.
//
// Алгоритм:
//  1. Находим владельца кода; свой код: ErrSelfReferral
//  2. Записываем приглашение; у игрока уже есть пригласивший: ErrReferralAlreadyActivated
//  3. Начисляем бонус обоим. Ключи привязаны к приглашённому,
//     поэтому каждый бонус начисляется не больше одного раза
func (s *Service) Activate(ctx context.Context, inviteeID int64, code string) (*Activation, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrFeatureDisabled
	}
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return nil, common.ErrReferralCodeNotFound
	}

	inviterID, err := s.repo.InviterByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if inviterID == inviteeID {
		return nil, common.ErrSelfReferral
	}

	ref, err := s.repo.Create(ctx, inviterID, inviteeID)
	if err != nil {
		return nil, err
	}

	act := &Activation{Referral: ref, Bonus: s.cfg.Bonus}
	act.InviteeQueued = s.award(ctx, inviteeID, "Бонус за приглашение (друг)",
		fmt.Sprintf("referral:%d", inviteeID))
	act.InviterQueued = s.award(ctx, inviterID, "Бонус за приглашение",
		fmt.Sprintf("referral:%d:inviter", inviteeID))

	log.WithFields(log.Fields{
		"component":  "referrals",
		"inviter_id": inviterID,
		"invitee_id": inviteeID,
	}).Info("Приглашение активировано")
	return act, nil
}

// award начисляет бонус по ключу. Если леджер недоступен, начисление
// уходит в outbox. Возвращает true, если бонус отложен.
func (s *Service) award(ctx context.Context, userID int64, description, key string) bool {
	entry := log.WithFields(log.Fields{
		"component": "referrals",
		"user_id":   userID,
		"key":       key,
	})

	_, err := s.ledger.ClaimBonus(ctx, userID, s.cfg.Bonus, description, key)
	switch {
	case err == nil, errors.Is(err, common.ErrBonusAlreadyClaimed):
		return false
	case errors.Is(err, common.ErrLedgerUnavailable):
		_, queued, qerr := s.ledger.CreditOrEnqueue(ctx, userID, s.cfg.Bonus, economy.KindBonus, description, key)
		if qerr != nil {
			entry.WithError(qerr).Error("Бонус за приглашение не начислен и не поставлен в очередь")
			return false
		}
		return queued
	}
	entry.WithError(err).Error("Бонус за приглашение не начислен")
	return false
}

// Summary собирает код, пригласившего и список приглашённых.
func (s *Service) Summary(ctx context.Context, userID int64) (*Summary, error) {
	code, err := s.Code(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Code: code, Bonus: s.cfg.Bonus}

	ref, err := s.repo.ReferralOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		sum.InvitedBy = &ref.InviterID
	}

	if sum.Invited, err = s.repo.Invited(ctx, userID, listLimit); err != nil {
		return nil, err
	}
	return sum, nil
}

// TopInviters: рейтинг пригласивших.
func (s *Service) TopInviters(ctx context.Context, limit int) ([]*Inviter, error) {
	if !s.cfg.Enabled {
		return nil, common.ErrFeatureDisabled
	}
	if limit <= 0 || limit > listLimit {
		limit = 10
	}
	return s.repo.TopInviters(ctx, limit)
}
