package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CachedBalance — последний известный баланс пользователя.
type CachedBalance struct {
	Amount int64           `json:"amount"`
	Ton    decimal.Decimal `json:"ton"`
	AsOf   time.Time       `json:"as_of"`
}

// BalanceCache хранит последний прочитанный баланс на случай недоступности леджера.
type BalanceCache interface {
	Get(ctx context.Context, userID int64) (CachedBalance, bool)
	Set(ctx context.Context, userID int64, b CachedBalance)
}

// MemoryCache — кеш в памяти процесса.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[int64]CachedBalance
}

// NewMemoryCache создаёт пустой кеш.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[int64]CachedBalance)}
}

func (c *MemoryCache) Get(_ context.Context, userID int64) (CachedBalance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.items[userID]
	return b, ok
}

func (c *MemoryCache) Set(_ context.Context, userID int64, b CachedBalance) {
	c.mu.Lock()
	c.items[userID] = b
	c.mu.Unlock()
}

// RedisCache — кеш в Redis, общий для нескольких экземпляров сервиса.
// Ошибки Redis не прерывают игру: они логируются, а Get возвращает промах.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache создаёт кеш поверх клиента rdb.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Client возвращает клиента Redis, чтобы закрыть его при остановке.
func (c *RedisCache) Client() *redis.Client { return c.rdb }

func balanceKey(userID int64) string {
	return fmt.Sprintf("duna:balance:%d", userID)
}

func (c *RedisCache) Get(ctx context.Context, userID int64) (CachedBalance, bool) {
	data, err := c.rdb.Get(ctx, balanceKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("component", "balance_cache").Warn("Ошибка чтения кеша баланса")
		}
		return CachedBalance{}, false
	}
	var b CachedBalance
	if err := json.Unmarshal(data, &b); err != nil {
		return CachedBalance{}, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, userID int64, b CachedBalance) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, balanceKey(userID), data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("component", "balance_cache").Warn("Ошибка записи кеша баланса")
	}
}
