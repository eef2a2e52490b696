// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: БД и миграции, outbox, кеш, сервисы, обработчики,
// бот, HTTP API и планировщик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/api"
	"serotonyl.ru/duna-casino/internal/bot"
	"serotonyl.ru/duna-casino/internal/config"
	"serotonyl.ru/duna-casino/internal/db/postgres"
	"serotonyl.ru/duna-casino/internal/features/admin"
	"serotonyl.ru/duna-casino/internal/features/casino"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/economy"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/members"
	"serotonyl.ru/duna-casino/internal/features/payments"
	"serotonyl.ru/duna-casino/internal/features/referrals"
	"serotonyl.ru/duna-casino/internal/features/streak"
	"serotonyl.ru/duna-casino/internal/jobs"
	"serotonyl.ru/duna-casino/internal/outbox"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	HTTP      *http.Server
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
	Outbox    *outbox.Store
	Redis     *redis.Client
	Casino    *casino.Service
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.DB = pool

	if err := postgres.RunMigrations(pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	health := postgres.NewHealthChecker(pool, cfg.DBHealthTimeout)

	// === 2. Outbox и кеш балансов ===
	ob, err := outbox.Open(cfg.OutboxPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия outbox: %w", err)
	}
	a.Outbox = ob

	cache := newBalanceCache(ctx, cfg)
	if rc, isRedis := cache.(*economy.RedisCache); isRedis {
		a.Redis = rc.Client()
	}

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development" && cfg.AppLogLevel == "trace"
	a.BotAPI = botAPI
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 4. Сервисы ===
	src := random.Default()

	economyService := economy.NewService(economy.NewRepository(pool), cache, ob, economy.Settings{
		StartingBalance: cfg.EconomyStartingBalance,
		WelcomeBonus:    cfg.EconomyWelcomeBonus,
		HistoryLimit:    cfg.EconomyHistoryLimit,
	})
	relay := outbox.NewRelay(ob, economyService, outbox.RelayConfig{
		MaxAttempts: cfg.OutboxMaxAttempts,
		BaseBackoff: cfg.OutboxBaseBackoff,
		BatchSize:   cfg.OutboxBatchSize,
	})

	memberService := members.NewService(members.NewRepository(pool), economyService, cfg.AdminIDs)
	streakService := streak.NewService(streak.NewRepository(pool), economyService, cfg.FeatureDailyEnabled)

	casinoService := casino.NewService(economyService, casino.NewRepository(pool), src, casino.Settings{
		Enabled:         cfg.FeatureCasinoEnabled,
		Blackjack:       casino.Limits{MinUnit: cfg.BlackjackMinBet, MaxMultiplier: cfg.BlackjackMaxMultiplier},
		Baccarat:        casino.Limits{MinUnit: cfg.BaccaratMinBet, MaxMultiplier: cfg.BaccaratMaxMultiplier},
		Dice:            casino.Limits{MinUnit: cfg.DiceMinBet, MaxMultiplier: cfg.DiceMaxCount},
		RouletteMinChip: cfg.RouletteMinChip,
	})
	a.Casino = casinoService

	lotteryService := lottery.NewService(lottery.NewRepository(pool), economyService, src, lottery.Settings{
		Enabled:          cfg.FeatureLotteryEnabled,
		ExtraTicketPrice: cfg.LotteryExtraTicketPrice,
		Prize:            cfg.LotteryPrize,
	})

	referralService := referrals.NewService(referrals.NewRepository(pool), economyService, src, referrals.Settings{
		Enabled: cfg.FeatureReferralsEnabled,
		Bonus:   cfg.ReferralBonus,
	})

	notifyAdmins := func(text string) {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, id := range memberService.AdminIDs(nctx) {
			sendTo(botAPI, id, text)
		}
	}
	paymentService := payments.NewService(payments.NewRepository(pool), economyService, payments.Settings{
		Enabled:    cfg.FeaturePaymentsEnabled,
		DunaPerTon: cfg.PaymentsDunaPerTon,
		MinTon:     cfg.PaymentsMinTon,
		PendingTTL: cfg.PaymentsPendingTTL,
	}, notifyAdmins)

	adminService := admin.NewService(admin.NewRepository(pool), memberService, paymentService, ob, lotteryService, cfg.AdminPasswordHash)

	// === 5. Бот ===
	a.Bot = bot.New(botAPI, cfg, memberService, bot.Handlers{
		Members:   members.NewHandler(memberService),
		Economy:   economy.NewHandler(economyService, botAPI),
		Streak:    streak.NewHandler(streakService, botAPI),
		Casino:    casino.NewHandler(casinoService, botAPI),
		Lottery:   lottery.NewHandler(lotteryService, botAPI),
		Referrals: referrals.NewHandler(referralService, botAPI),
		Admin:     admin.NewHandler(adminService, botAPI),
	})

	// === 6. HTTP API ===
	server := api.NewServer(api.Deps{
		Ledger:    economyService,
		Casino:    casinoService,
		Daily:     streakService,
		Lottery:   lotteryService,
		Payments:  paymentService,
		Referrals: referralService,
		Members:   memberService,
		Health:    health,
		Outbox:    ob,
	}, api.Settings{
		BotToken:       cfg.TelegramBotToken,
		InitDataMaxAge: cfg.APIInitDataMaxAge,
		AllowedOrigin:  cfg.APIAllowedOrigin,
		HistoryLimit:   cfg.EconomyHistoryLimit,
		RequestTimeout: cfg.HTTPWriteTimeout,
	})
	a.HTTP = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// === 7. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(jobs.Tasks{
		Streaks:  streakService,
		Outbox:   relay,
		Lottery:  lotteryService,
		Payments: paymentService,
		Health:   health,
	}, jobs.Intervals{
		OutboxReplay: cfg.OutboxReplayInterval,
		DBHealth:     cfg.DBHealthInterval,
	}, a.Bot.SendMessageToUser)

	ok = true
	return a, nil
}

// ServeHTTP запускает HTTP API и блокируется до остановки сервера.
func (a *App) ServeHTTP() error {
	log.WithField("addr", a.HTTP.Addr).Info("HTTP API запущен")
	if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP API: %w", err)
	}
	return nil
}

// Shutdown останавливает HTTP API, дожидаясь текущих запросов.
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTP == nil {
		return nil
	}
	return a.HTTP.Shutdown(ctx)
}

// AbortOpenRounds возвращает ставки раздач, которые не доиграны к остановке.
// Вызывается после остановки бота и HTTP API, до закрытия outbox и БД.
func (a *App) AbortOpenRounds(ctx context.Context) {
	if a.Casino == nil {
		return
	}
	a.Casino.AbortOpenRounds(ctx)
}

// Close освобождает ресурсы: outbox, Redis, пул БД.
func (a *App) Close() {
	if a.Outbox != nil {
		if err := a.Outbox.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия outbox")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// newBalanceCache подключает Redis, если он задан и отвечает.
// Иначе балансы кешируются в памяти процесса.
func newBalanceCache(ctx context.Context, cfg *config.Config) economy.BalanceCache {
	if cfg.RedisAddr == "" {
		return economy.NewMemoryCache()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis недоступен, кеш балансов в памяти")
		_ = rdb.Close()
		return economy.NewMemoryCache()
	}
	log.WithField("addr", cfg.RedisAddr).Info("Кеш балансов в Redis")
	return economy.NewRedisCache(rdb, cfg.RedisCacheTTL)
}

func sendTo(botAPI *tgbotapi.BotAPI, chatID int64, text string) {
	if _, err := botAPI.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось отправить уведомление")
	}
}
