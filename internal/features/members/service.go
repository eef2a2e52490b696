// Package members — service.go содержит бизнес-логику управления игроками.
package members

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// AccountOpener открывает счёт новому игроку (шлюз леджера).
type AccountOpener interface {
	EnsureAccount(ctx context.Context, userID int64) error
}

// Service управляет игроками.
type Service struct {
	repo     Store
	accounts AccountOpener
	adminIDs map[int64]bool // ADMIN_IDS из конфига

	mu    sync.Mutex
	known map[int64]bool // у кого счёт уже точно есть
}

// NewService создаёт новый сервис участников.
func NewService(repo Store, accounts AccountOpener, adminIDs []int64) *Service {
	ids := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Service{repo: repo, accounts: accounts, adminIDs: ids, known: make(map[int64]bool)}
}

// EnsureMember регистрирует игрока при обращении и открывает ему счёт.
// Забаненному возвращает ErrUserBanned.
func (s *Service) EnsureMember(ctx context.Context, p Profile) error {
	created, banned, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return err
	}
	if banned {
		return common.ErrUserBanned
	}
	if created {
		log.WithFields(log.Fields{
			"user_id":  p.UserID,
			"username": p.Username,
		}).Info("Новый игрок зарегистрирован")
	}

	s.mu.Lock()
	known := s.known[p.UserID]
	s.mu.Unlock()
	if !created && known {
		return nil
	}

	if err := s.accounts.EnsureAccount(ctx, p.UserID); err != nil {
		return fmt.Errorf("ошибка открытия счёта: %w", err)
	}
	s.mu.Lock()
	s.known[p.UserID] = true
	s.mu.Unlock()
	return nil
}

// GetByUserID возвращает игрока по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// IsBanned сообщает, забанен ли игрок. Неизвестный игрок не забанен.
func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsBanned, nil
}

// IsAdmin — админ по ADMIN_IDS или по флагу members.is_admin.
func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	if s.adminIDs[userID] {
		return true
	}
	m, err := s.repo.GetByUserID(ctx, userID)
	return err == nil && m.IsAdmin && !m.IsBanned
}

// AdminIDs — все админы (конфиг + БД) без повторов.
func (s *Service) AdminIDs(ctx context.Context) []int64 {
	seen := make(map[int64]bool, len(s.adminIDs))
	var out []int64
	for id := range s.adminIDs {
		seen[id] = true
		out = append(out, id)
	}
	fromDB, err := s.repo.ListAdmins(ctx)
	if err != nil {
		log.WithError(err).Warn("Не удалось получить список админов из БД")
	}
	for _, id := range fromDB {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
