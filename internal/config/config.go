// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" default:""`
	AdminIDs         []int64 `envconfig:"-"` // заполняется в Load
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Групповой чат, в котором бот тоже отвечает (0: только личка)
	BotGroupChatID int64  `envconfig:"BOT_GROUP_CHAT_ID" default:"0"`
	WebAppURL      string `envconfig:"WEBAPP_URL" default:""`

	// --- Database ---
	// Дефолт "postgres": имя сервиса в docker-compose, для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"casino"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"duna_casino"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	// Проверка здоровья БД
	DBHealthInterval time.Duration `envconfig:"DB_HEALTH_INTERVAL" default:"30s"`
	DBHealthTimeout  time.Duration `envconfig:"DB_HEALTH_TIMEOUT" default:"8s"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно.
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- HTTP API (Mini-App) ---
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout   time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout  time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	APIInitDataMaxAge time.Duration `envconfig:"API_INIT_DATA_MAX_AGE" default:"24h"`
	APIAllowedOrigin  string        `envconfig:"API_ALLOWED_ORIGIN" default:"*"`

	// --- Redis (необязательный кеш балансов) ---
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisCacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"24h"`

	// --- Outbox ---
	OutboxPath           string        `envconfig:"OUTBOX_PATH" default:"data/outbox.db"`
	OutboxMaxAttempts    int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"20"`
	OutboxBaseBackoff    time.Duration `envconfig:"OUTBOX_BASE_BACKOFF" default:"15s"`
	OutboxReplayInterval time.Duration `envconfig:"OUTBOX_REPLAY_INTERVAL" default:"30s"`
	OutboxBatchSize      int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Games ---
	BlackjackMinBet        int64 `envconfig:"BLACKJACK_MIN_BET" default:"10"`
	BlackjackMaxMultiplier int64 `envconfig:"BLACKJACK_MAX_MULTIPLIER" default:"100"`
	BaccaratMinBet         int64 `envconfig:"BACCARAT_MIN_BET" default:"10"`
	BaccaratMaxMultiplier  int64 `envconfig:"BACCARAT_MAX_MULTIPLIER" default:"10"`
	DiceMinBet             int64 `envconfig:"DICE_MIN_BET" default:"10"`
	DiceMaxCount           int64 `envconfig:"DICE_MAX_COUNT" default:"10"`
	RouletteMinChip        int64 `envconfig:"ROULETTE_MIN_CHIP" default:"5"`

	// --- Economy ---
	EconomyStartingBalance int64  `envconfig:"ECONOMY_STARTING_BALANCE" default:"0"`
	EconomyWelcomeBonus    int64  `envconfig:"ECONOMY_WELCOME_BONUS" default:"50"`
	EconomyHistoryLimit    int    `envconfig:"ECONOMY_HISTORY_LIMIT" default:"50"`

	// --- Lottery ---
	LotteryExtraTicketPrice int64  `envconfig:"LOTTERY_EXTRA_TICKET_PRICE" default:"50"`
	LotteryPrize            string `envconfig:"LOTTERY_PRIZE" default:"Главный приз месяца"`

	// --- Referrals ---
	ReferralBonus int64 `envconfig:"REFERRAL_BONUS" default:"50"`

	// --- Payments (TON) ---
	PaymentsDunaPerTonRaw string          `envconfig:"PAYMENTS_DUNA_PER_TON" default:"10000"`
	PaymentsDunaPerTon    decimal.Decimal `envconfig:"-"`
	PaymentsMinTonRaw     string          `envconfig:"PAYMENTS_MIN_TON" default:"0.1"`
	PaymentsMinTon        decimal.Decimal `envconfig:"-"`
	PaymentsPendingTTL    time.Duration   `envconfig:"PAYMENTS_PENDING_TTL" default:"72h"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureCasinoEnabled    bool `envconfig:"FEATURE_CASINO_ENABLED" default:"true"`
	FeatureLotteryEnabled   bool `envconfig:"FEATURE_LOTTERY_ENABLED" default:"true"`
	FeaturePaymentsEnabled  bool `envconfig:"FEATURE_PAYMENTS_ENABLED" default:"true"`
	FeatureDailyEnabled     bool `envconfig:"FEATURE_DAILY_ENABLED" default:"true"`
	FeatureReferralsEnabled bool `envconfig:"FEATURE_REFERRALS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdminID проверяет, указан ли пользователь в ADMIN_IDS.
func (c *Config) IsAdminID(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DBHealthTimeout <= 0 || c.DBHealthTimeout >= c.DBHealthInterval {
		return fmt.Errorf("DB_HEALTH_TIMEOUT должен быть > 0 и меньше DB_HEALTH_INTERVAL")
	}
	if c.OutboxMaxAttempts <= 0 || c.OutboxBaseBackoff <= 0 || c.OutboxBatchSize <= 0 {
		return fmt.Errorf("некорректные настройки OUTBOX_*")
	}
	if c.BlackjackMinBet <= 0 || c.BaccaratMinBet <= 0 || c.DiceMinBet <= 0 || c.RouletteMinChip <= 0 {
		return fmt.Errorf("минимальные ставки должны быть > 0")
	}
	if c.BlackjackMaxMultiplier < 1 || c.BaccaratMaxMultiplier < 1 || c.DiceMaxCount < 1 {
		return fmt.Errorf("максимальные множители должны быть >= 1")
	}
	if !c.PaymentsDunaPerTon.IsPositive() || !c.PaymentsMinTon.IsPositive() {
		return fmt.Errorf("PAYMENTS_DUNA_PER_TON и PAYMENTS_MIN_TON должны быть > 0")
	}
	if c.LotteryExtraTicketPrice <= 0 {
		return fmt.Errorf("LOTTERY_EXTRA_TICKET_PRICE должен быть > 0")
	}
	if c.ReferralBonus <= 0 {
		return fmt.Errorf("REFERRAL_BONUS должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if cfg.PaymentsDunaPerTon, err = decimal.NewFromString(cfg.PaymentsDunaPerTonRaw); err != nil {
		return nil, fmt.Errorf("PAYMENTS_DUNA_PER_TON parse: %w", err)
	}
	if cfg.PaymentsMinTon, err = decimal.NewFromString(cfg.PaymentsMinTonRaw); err != nil {
		return nil, fmt.Errorf("PAYMENTS_MIN_TON parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
