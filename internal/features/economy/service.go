// Package economy — service.go содержит шлюз леджера: единственный путь
// изменения балансов. Все списания и начисления одного пользователя
// выполняются последовательно под его мьютексом.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/outbox"
)

// Outbox — надёжная очередь отложенных начислений.
type Outbox interface {
	Enqueue(ctx context.Context, job outbox.Job) error
}

// Settings — параметры экономики из конфигурации.
type Settings struct {
	StartingBalance int64
	WelcomeBonus    int64
	HistoryLimit    int
}

// Service управляет балансами DUNA и TON.
type Service struct {
	store  Store
	cache  BalanceCache
	outbox Outbox
	locks  *userLocks
	cfg    Settings
	now    func() time.Time
}

// NewService создаёт шлюз леджера. cache может быть nil: тогда используется кеш в памяти.
func NewService(store Store, cache BalanceCache, ob Outbox, cfg Settings) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Service{
		store:  store,
		cache:  cache,
		outbox: ob,
		locks:  newUserLocks(),
		cfg:    cfg,
		now:    time.Now,
	}
}

// EnsureAccount создаёт счёт пользователя со стартовым балансом.
func (s *Service) EnsureAccount(ctx context.Context, userID int64) error {
	return s.store.EnsureAccount(ctx, userID, s.cfg.StartingBalance)
}

// GetBalance возвращает баланс. Если хранилище недоступно, последнее
// известное значение с пометкой Stale.
func (s *Service) GetBalance(ctx context.Context, userID int64) (BalanceView, error) {
	b, err := s.store.GetBalance(ctx, userID)
	if err == nil {
		now := s.now()
		s.cache.Set(ctx, userID, CachedBalance{Amount: b.Balance, Ton: b.TonBalance, AsOf: now})
		return BalanceView{Amount: b.Balance, Ton: b.TonBalance, AsOf: now}, nil
	}
	if !errors.Is(err, common.ErrLedgerUnavailable) {
		return BalanceView{}, err
	}

	cached, ok := s.cache.Get(ctx, userID)
	if !ok {
		return BalanceView{}, err
	}
	log.WithFields(log.Fields{
		"component": "ledger",
		"user_id":   userID,
		"as_of":     cached.AsOf,
	}).Warn("Леджер недоступен, отдаём баланс из кеша")
	return BalanceView{Amount: cached.Amount, Ton: cached.Ton, Stale: true, AsOf: cached.AsOf}, nil
}

// Debit списывает amount DUNA. Если средств не хватает, ErrInsufficientBalance без изменений.
func (s *Service) Debit(ctx context.Context, userID, amount int64, kind Kind, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	a, err := s.apply(ctx, Entry{
		UserID:      userID,
		Amount:      -amount,
		Kind:        kind,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	return a.Tx, nil
}

// Credit начисляет amount DUNA. Повтор с тем же ключом возвращает исходную транзакцию.
func (s *Service) Credit(ctx context.Context, userID, amount int64, kind Kind, description, key string) (*Transaction, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	a, err := s.apply(ctx, Entry{
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		Key:         key,
	})
	if err != nil {
		return nil, err
	}
	return a.Tx, nil
}

// CreditOrEnqueue начисляет выигрыш, а при недоступности леджера
// сохраняет начисление в outbox (queued = true).
// Ошибка возвращается, только если не удалось ни то, ни другое.
func (s *Service) CreditOrEnqueue(ctx context.Context, userID, amount int64, kind Kind, description, key string) (*Transaction, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("начисление без ключа идемпотентности")
	}
	tx, err := s.Credit(ctx, userID, amount, kind, description, key)
	if err == nil {
		return tx, false, nil
	}
	if !errors.Is(err, common.ErrLedgerUnavailable) || s.outbox == nil {
		return nil, false, err
	}

	job := outbox.NewJob(userID, amount, string(kind), description, key)
	if qerr := s.outbox.Enqueue(ctx, job); qerr != nil {
		return nil, false, fmt.Errorf("начисление не выполнено (%v) и не поставлено в очередь: %w", err, qerr)
	}
	log.WithFields(log.Fields{
		"component": "ledger",
		"user_id":   userID,
		"amount":    amount,
		"key":       key,
	}).Warn("Леджер недоступен, начисление отложено в outbox")
	return nil, true, nil
}

// ReplayCredit применяет задание из outbox.
func (s *Service) ReplayCredit(ctx context.Context, job outbox.Job) error {
	kind := Kind(job.Kind)
	if !kind.Valid() {
		return fmt.Errorf("неизвестный тип транзакции %q", job.Kind)
	}
	_, err := s.Credit(ctx, job.UserID, job.Amount, kind, job.Description, job.IdempotencyKey)
	return err
}

// AdjustTon атомарно меняет TON и DUNA одной транзакцией (пополнения, вывод, обмен).
func (s *Service) AdjustTon(ctx context.Context, userID int64, ton decimal.Decimal, duna int64, kind Kind, description, key string) (*Applied, error) {
	if ton.IsZero() && duna == 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.apply(ctx, Entry{
		UserID:      userID,
		Amount:      duna,
		Ton:         ton,
		Kind:        kind,
		Description: description,
		Key:         key,
	})
}

// ClaimBonus начисляет разовый бонус по ключу. Повторное получение: ErrBonusAlreadyClaimed.
func (s *Service) ClaimBonus(ctx context.Context, userID, amount int64, description, key string) (*Transaction, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	a, err := s.apply(ctx, Entry{
		UserID:      userID,
		Amount:      amount,
		Kind:        KindBonus,
		Description: description,
		Key:         key,
	})
	if err != nil {
		return nil, err
	}
	if a.Duplicate {
		return nil, common.ErrBonusAlreadyClaimed
	}
	return a.Tx, nil
}

// ClaimWelcomeBonus начисляет приветственный бонус один раз за всё время.
func (s *Service) ClaimWelcomeBonus(ctx context.Context, userID int64) (*Transaction, error) {
	return s.ClaimBonus(ctx, userID, s.cfg.WelcomeBonus,
		"Приветственный бонус", fmt.Sprintf("welcome:%d", userID))
}

// Transactions возвращает последние транзакции, новые первыми.
func (s *Service) Transactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.store.GetTransactions(ctx, userID, limit)
}

func (s *Service) apply(ctx context.Context, e Entry) (*Applied, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("неизвестный тип транзакции %q", e.Kind)
	}

	unlock := s.locks.lock(e.UserID)
	defer unlock()

	a, err := s.store.ApplyEntry(ctx, e)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, e.UserID, CachedBalance{Amount: a.Balance, Ton: a.Ton, AsOf: s.now()})

	if !a.Duplicate {
		log.WithFields(log.Fields{
			"component": "ledger",
			"user_id":   e.UserID,
			"amount":    e.Amount,
			"ton":       e.Ton.String(),
			"kind":      e.Kind,
			"balance":   a.Balance,
		}).Debug("Проводка выполнена")
	}
	return a, nil
}
