// Package api — server.go собирает роутер chi и middleware.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/features/casino"
	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
	"serotonyl.ru/duna-casino/internal/features/economy"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/members"
	"serotonyl.ru/duna-casino/internal/features/payments"
	"serotonyl.ru/duna-casino/internal/features/referrals"
	"serotonyl.ru/duna-casino/internal/features/streak"
	"serotonyl.ru/duna-casino/internal/outbox"
)

// Ledger: балансы и бонусы.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (economy.BalanceView, error)
	Transactions(ctx context.Context, userID int64, limit int) ([]*economy.Transaction, error)
	ClaimWelcomeBonus(ctx context.Context, userID int64) (*economy.Transaction, error)
}

// Casino: раунды игр.
type Casino interface {
	PlayDice(ctx context.Context, userID int64, w casino.Wager, bet dice.BetType) (*casino.RoundResult, error)
	PlayBaccarat(ctx context.Context, userID int64, w casino.Wager, bet baccarat.Side) (*casino.BaccaratRound, error)
	SpinRoulette(ctx context.Context, userID int64, bets []roulette.Bet) (*casino.RouletteRound, error)
	StartBlackjack(ctx context.Context, userID int64, w casino.Wager) (*casino.BlackjackView, error)
	HitBlackjack(ctx context.Context, userID int64) (*casino.BlackjackView, error)
	StandBlackjack(ctx context.Context, userID int64) (*casino.BlackjackView, error)
	ActiveBlackjack(userID int64) (*casino.BlackjackView, bool)
	History(userID int64, game casino.GameKind) []casino.RoundResult
	Stats(ctx context.Context, userID int64) (*casino.Stats, error)
}

// Daily: ежедневный бонус.
type Daily interface {
	ClaimDaily(ctx context.Context, userID int64) (*streak.Claim, error)
	GetStreak(ctx context.Context, userID int64) (*streak.Streak, error)
	NextReward(st *streak.Streak) int64
}

// Lottery: билеты и победители.
type Lottery interface {
	CurrentPeriod() lottery.Period
	ClaimFreeTicket(ctx context.Context, userID int64) (*lottery.Ticket, error)
	BuyExtraTicket(ctx context.Context, userID int64) (*lottery.Ticket, error)
	Tickets(ctx context.Context, userID int64, p lottery.Period) ([]*lottery.Ticket, error)
	Winners(ctx context.Context, limit int) ([]*lottery.Winner, error)
}

// Payments: заявки TON и обмен.
type Payments interface {
	SubmitDeposit(ctx context.Context, userID int64, ton decimal.Decimal, externalRef string) (*payments.Payment, error)
	RequestWithdrawal(ctx context.Context, userID int64, ton decimal.Decimal, address string) (*payments.Payment, error)
	ExchangeTonToDuna(ctx context.Context, userID int64, ton decimal.Decimal) (*payments.Exchange, error)
	History(ctx context.Context, userID int64, limit int) ([]*payments.Payment, error)
}

// Referrals: приглашения друзей.
type Referrals interface {
	Summary(ctx context.Context, userID int64) (*referrals.Summary, error)
	Activate(ctx context.Context, inviteeID int64, code string) (*referrals.Activation, error)
	TopInviters(ctx context.Context, limit int) ([]*referrals.Inviter, error)
}

// Members: регистрация пользователя при первом запросе.
type Members interface {
	EnsureMember(ctx context.Context, p members.Profile) error
}

// Health: состояние БД для /healthz.
type Health interface {
	Healthy() bool
	LastError() error
	CheckedAt() time.Time
}

// OutboxStats: очередь отложенных выплат.
type OutboxStats interface {
	Stats(ctx context.Context) (outbox.Stats, error)
}

// Deps: сервисы, которыми пользуется API.
type Deps struct {
	Ledger    Ledger
	Casino    Casino
	Daily     Daily
	Lottery   Lottery
	Payments  Payments
	Referrals Referrals
	Members   Members
	Health    Health
	Outbox    OutboxStats
}

// Settings: параметры API.
type Settings struct {
	BotToken       string
	InitDataMaxAge time.Duration
	AllowedOrigin  string
	HistoryLimit   int
	RequestTimeout time.Duration
}

// Server: HTTP API Mini-App.
type Server struct {
	deps Deps
	cfg  Settings
	now  func() time.Time
}

// NewServer создаёт API.
func NewServer(deps Deps, cfg Settings) *Server {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	return &Server{deps: deps, cfg: cfg, now: time.Now}
}

// Routes возвращает роутер со всеми маршрутами.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/me", s.handleMe)
		r.Get("/balance", s.handleBalance)
		r.Get("/transactions", s.handleTransactions)

		r.Post("/bonus/welcome", s.handleWelcomeBonus)
		r.Post("/bonus/daily", s.handleDailyBonus)

		r.Post("/dice", s.handleDice)
		r.Post("/baccarat", s.handleBaccarat)
		r.Post("/roulette", s.handleRoulette)

		r.Route("/blackjack", func(r chi.Router) {
			r.Get("/", s.handleBlackjackState)
			r.Post("/deal", s.handleBlackjackDeal)
			r.Post("/hit", s.handleBlackjackHit)
			r.Post("/stand", s.handleBlackjackStand)
		})

		r.Get("/history/{game}", s.handleHistory)
		r.Get("/stats", s.handleStats)

		r.Route("/lottery", func(r chi.Router) {
			r.Post("/ticket", s.handleFreeTicket)
			r.Post("/extra", s.handleExtraTicket)
			r.Get("/tickets", s.handleTickets)
			r.Get("/winners", s.handleWinners)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", s.handlePaymentHistory)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/exchange", s.handleExchange)
		})

		r.Route("/referrals", func(r chi.Router) {
			r.Get("/", s.handleReferrals)
			r.Post("/activate", s.handleActivateReferral)
			r.Get("/top", s.handleTopInviters)
		})
	})

	return r
}

// requestLogger пишет одну строку logrus на запрос.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		entry := log.WithFields(log.Fields{
			"component":  "api",
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP запрос")
			return
		}
		entry.Debug("HTTP запрос")
	})
}

// cors разрешает запросы из Mini-App.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
