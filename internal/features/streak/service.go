// Package streak — service.go содержит бизнес-логику ежедневного шанса.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

// Bonuses — часть шлюза леджера, которой нужен стрик.
type Bonuses interface {
	ClaimBonus(ctx context.Context, userID, amount int64, description, key string) (*economy.Transaction, error)
}

// Service управляет стрик-системой.
type Service struct {
	repo    Store
	bonuses Bonuses
	enabled bool
	now     func() time.Time
}

// NewService создаёт новый сервис стриков.
func NewService(repo Store, bonuses Bonuses, enabled bool) *Service {
	return &Service{repo: repo, bonuses: bonuses, enabled: enabled, now: time.Now}
}

// ClaimDaily начисляет ежедневный бонус.
//
// Алгоритм:
//  1. Берём сегодняшнюю дату по Москве
//  2. Если бонус сегодня уже забран, ErrBonusAlreadyClaimed
//  3. Вчера забирал: серия +1, иначе серия начинается заново
//  4. Начисляем бонус по ключу daily:<user>:<дата> (повтор того же дня не пройдёт)
//  5. Сохраняем серию
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (*Claim, error) {
	if !s.enabled {
		return nil, common.ErrFeatureDisabled
	}

	now := s.now()
	today := common.MoscowDate(now)

	st, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &Streak{UserID: userID}
	}
	if st.ClaimedOn(today) {
		return nil, common.ErrBonusAlreadyClaimed
	}

	day := 1
	if st.ClaimedOn(today.AddDate(0, 0, -1)) {
		day = st.CurrentStreak + 1
	}
	reward := GetReward(day)

	key := fmt.Sprintf("daily:%d:%s", userID, today.Format("2006-01-02"))
	desc := fmt.Sprintf("Ежедневный бонус - день %d", day)
	if _, err := s.bonuses.ClaimBonus(ctx, userID, reward, desc, key); err != nil {
		return nil, err
	}

	st.CurrentStreak = day
	if day > st.LongestStreak {
		st.LongestStreak = day
	}
	st.LastClaimDate = &today
	st.TotalClaims++

	// Деньги уже начислены, поэтому ошибку сохранения серии только логируем:
	// повторно за этот день бонус всё равно не выдать.
	if err := s.repo.Save(ctx, st); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка сохранения стрика")
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"day":     day,
		"reward":  reward,
	}).Info("Ежедневный бонус начислен")

	return &Claim{Day: day, Reward: reward, Longest: st.LongestStreak, ClaimedAt: now}, nil
}

// GetStreak возвращает серию пользователя. Для новичка: пустая запись.
func (s *Service) GetStreak(ctx context.Context, userID int64) (*Streak, error) {
	st, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &Streak{UserID: userID}, nil
	}
	return st, nil
}

// NextReward — сколько принесёт следующее получение, если не пропустить день.
func (s *Service) NextReward(st *Streak) int64 {
	yesterday := common.MoscowDate(s.now()).AddDate(0, 0, -1)
	if st.ClaimedOn(yesterday) {
		return GetReward(st.CurrentStreak + 1)
	}
	return GetReward(1)
}

// DailyReset ломает серии тех, кто не забрал бонус вчера.
// Запускается кроном в 00:00 по Москве.
func (s *Service) DailyReset(ctx context.Context) error {
	yesterday := common.MoscowDate(s.now()).AddDate(0, 0, -1)
	broken, err := s.repo.BreakBefore(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("ошибка ежедневного сброса: %w", err)
	}
	log.WithField("broken", broken).Info("Ежедневный сброс стриков завершён")
	return nil
}

// IsAlreadyClaimed — удобная проверка для обработчиков.
func IsAlreadyClaimed(err error) bool {
	return errors.Is(err, common.ErrBonusAlreadyClaimed)
}
