package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino"
	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
	"serotonyl.ru/duna-casino/internal/features/economy"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/referrals"
)

// maxBodyBytes: предел тела запроса.
const maxBodyBytes = 64 << 10

// errBadRequest: тело или параметры запроса не разобрать.
var errBadRequest = errors.New("некорректный запрос")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func userID(r *http.Request) int64 {
	id, _ := IdentityFrom(r.Context())
	return id.ID
}

// roundHaptic: отклик по итогу раунда.
func roundHaptic(net int64) Haptic {
	switch {
	case net > 0:
		return HapticSuccess
	case net == 0:
		return HapticWarning
	}
	return HapticError
}

// queryInt читает целый параметр запроса; def, если параметра нет.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: параметр %s", errBadRequest, name)
	}
	return v, nil
}

// --- Профиль и баланс ---

type streakView struct {
	Current       int        `json:"current"`
	Longest       int        `json:"longest"`
	TotalClaims   int        `json:"total_claims"`
	LastClaimDate *time.Time `json:"last_claim_date,omitempty"`
	NextReward    int64      `json:"next_reward"`
}

type meResponse struct {
	User      Identity              `json:"user"`
	Balance   *economy.BalanceView  `json:"balance,omitempty"`
	Streak    *streakView           `json:"streak,omitempty"`
	Blackjack *casino.BlackjackView `json:"blackjack,omitempty"`
}

// handleMe отдаёт всё, что нужно для первого экрана.
// Недоступные части пропускаются, чтобы экран открылся.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	resp := meResponse{User: id}

	if view, err := s.deps.Ledger.GetBalance(r.Context(), id.ID); err == nil {
		resp.Balance = &view
	} else {
		log.WithError(err).WithField("user_id", id.ID).Warn("Баланс для /me недоступен")
	}

	if st, err := s.deps.Daily.GetStreak(r.Context(), id.ID); err == nil {
		resp.Streak = &streakView{
			Current:       st.CurrentStreak,
			Longest:       st.LongestStreak,
			TotalClaims:   st.TotalClaims,
			LastClaimDate: st.LastClaimDate,
			NextReward:    s.deps.Daily.NextReward(st),
		}
	} else {
		log.WithError(err).WithField("user_id", id.ID).Warn("Стрик для /me недоступен")
	}

	if view, ok := s.deps.Casino.ActiveBlackjack(id.ID); ok {
		resp.Blackjack = view
	}
	writeData(w, "", resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Ledger.GetBalance(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	haptic := Haptic("")
	if view.Stale {
		haptic = HapticWarning
	}
	writeData(w, haptic, view)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit == 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	txs, err := s.deps.Ledger.Transactions(r.Context(), userID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*economy.Transaction{}
	}
	writeData(w, "", txs)
}

// --- Бонусы ---

func (s *Server) handleWelcomeBonus(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Ledger.ClaimWelcomeBonus(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, tx)
}

func (s *Server) handleDailyBonus(w http.ResponseWriter, r *http.Request) {
	claim, err := s.deps.Daily.ClaimDaily(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, claim)
}

// --- Игры ---

type diceRequest struct {
	Bet   string `json:"bet"`
	Unit  int64  `json:"unit"`
	Count int64  `json:"count"`
}

func (s *Server) handleDice(w http.ResponseWriter, r *http.Request) {
	var req diceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bet, ok := dice.ParseBetType(strings.ToLower(req.Bet))
	if !ok {
		s.writeError(w, r, fmt.Errorf("ставка %q: %w", req.Bet, common.ErrInvalidSelection))
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	res, err := s.deps.Casino.PlayDice(r.Context(), userID(r), casino.Wager{Unit: req.Unit, Multiplier: req.Count}, bet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, roundHaptic(res.Net), res)
}

type baccaratRequest struct {
	Side       string `json:"side"`
	Unit       int64  `json:"unit"`
	Multiplier int64  `json:"multiplier"`
}

func (s *Server) handleBaccarat(w http.ResponseWriter, r *http.Request) {
	var req baccaratRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	side, ok := baccarat.ParseSide(strings.ToLower(req.Side))
	if !ok {
		s.writeError(w, r, fmt.Errorf("сторона %q: %w", req.Side, common.ErrInvalidSelection))
		return
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	res, err := s.deps.Casino.PlayBaccarat(r.Context(), userID(r), casino.Wager{Unit: req.Unit, Multiplier: req.Multiplier}, side)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, roundHaptic(res.Net), res)
}

// rouletteBet: ставка клиента. Value — число или строка ("red", "17", "2").
type rouletteBet struct {
	Kind   string          `json:"kind"`
	Value  json.RawMessage `json:"value,omitempty"`
	Amount int64           `json:"amount"`
}

func (b rouletteBet) value() string {
	return strings.ToLower(strings.Trim(string(b.Value), `"`))
}

type rouletteRequest struct {
	Bets []rouletteBet `json:"bets"`
}

func (s *Server) handleRoulette(w http.ResponseWriter, r *http.Request) {
	var req rouletteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Bets) == 0 {
		s.writeError(w, r, fmt.Errorf("нет ставок: %w", common.ErrInvalidSelection))
		return
	}
	bets := make([]roulette.Bet, 0, len(req.Bets))
	for _, b := range req.Bets {
		bet, err := roulette.ParseBet(strings.ToLower(b.Kind), b.value(), b.Amount)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		bets = append(bets, bet)
	}
	res, err := s.deps.Casino.SpinRoulette(r.Context(), userID(r), bets)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, roundHaptic(res.Net), res)
}

func (s *Server) handleBlackjackDeal(w http.ResponseWriter, r *http.Request) {
	var req casino.Wager
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	view, err := s.deps.Casino.StartBlackjack(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, blackjackHaptic(view), view)
}

func (s *Server) handleBlackjackHit(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Casino.HitBlackjack(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, blackjackHaptic(view), view)
}

func (s *Server) handleBlackjackStand(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Casino.StandBlackjack(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, blackjackHaptic(view), view)
}

func (s *Server) handleBlackjackState(w http.ResponseWriter, r *http.Request) {
	view, ok := s.deps.Casino.ActiveBlackjack(userID(r))
	if !ok {
		s.writeError(w, r, common.ErrNoActiveRound)
		return
	}
	writeData(w, "", view)
}

// blackjackHaptic: отклик только на завершённую раздачу.
func blackjackHaptic(v *casino.BlackjackView) Haptic {
	if !v.Finished || v.Result == nil {
		return ""
	}
	return roundHaptic(v.Result.Net)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	game, ok := casino.ParseGameKind(strings.ToLower(chi.URLParam(r, "game")))
	if !ok {
		s.writeError(w, r, fmt.Errorf("игра %q: %w", chi.URLParam(r, "game"), common.ErrInvalidSelection))
		return
	}
	rounds := s.deps.Casino.History(userID(r), game)
	if rounds == nil {
		rounds = []casino.RoundResult{}
	}
	writeData(w, "", rounds)
}

type statsResponse struct {
	*casino.Stats
	NetProfit int64 `json:"net_profit"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Casino.Stats(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, "", statsResponse{Stats: stats, NetProfit: stats.NetProfit()})
}

// --- Лотерея ---

func (s *Server) handleFreeTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Lottery.ClaimFreeTicket(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, t)
}

func (s *Server) handleExtraTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Lottery.BuyExtraTicket(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, t)
}

// handleTickets: билеты за месяц: ?month=&year=, по умолчанию текущий.
func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	p := s.deps.Lottery.CurrentPeriod()
	month, err := queryInt(r, "month", p.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	year, err := queryInt(r, "year", p.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p = lottery.Period{Month: month, Year: year}
	if !p.Valid() {
		s.writeError(w, r, fmt.Errorf("месяц %s: %w", p, common.ErrInvalidSelection))
		return
	}

	tickets, err := s.deps.Lottery.Tickets(r.Context(), userID(r), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []*lottery.Ticket{}
	}
	writeData(w, "", tickets)
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	winners, err := s.deps.Lottery.Winners(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if winners == nil {
		winners = []*lottery.Winner{}
	}
	writeData(w, "", winners)
}

// --- Платежи TON ---

type depositRequest struct {
	Ton   decimal.Decimal `json:"ton"`
	TxRef string          `json:"tx_ref"`
}

type withdrawRequest struct {
	Ton     decimal.Decimal `json:"ton"`
	Address string          `json:"address"`
}

type exchangeRequest struct {
	Ton decimal.Decimal `json:"ton"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Payments.SubmitDeposit(r.Context(), userID(r), req.Ton, strings.TrimSpace(req.TxRef))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, p)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Payments.RequestWithdrawal(r.Context(), userID(r), req.Ton, strings.TrimSpace(req.Address))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, p)
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ex, err := s.deps.Payments.ExchangeTonToDuna(r.Context(), userID(r), req.Ton)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, ex)
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.deps.Payments.History(r.Context(), userID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, "", list)
}

// --- Приглашения ---

type activateReferralRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleReferrals(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Referrals.Summary(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sum.Invited == nil {
		sum.Invited = []*referrals.Invitee{}
	}
	writeData(w, "", sum)
}

func (s *Server) handleActivateReferral(w http.ResponseWriter, r *http.Request) {
	var req activateReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		s.writeError(w, r, fmt.Errorf("%w: пустой код", errBadRequest))
		return
	}
	act, err := s.deps.Referrals.Activate(r.Context(), userID(r), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, HapticSuccess, act)
}

func (s *Server) handleTopInviters(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	top, err := s.deps.Referrals.TopInviters(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if top == nil {
		top = []*referrals.Inviter{}
	}
	writeData(w, "", top)
}

// --- Служебное ---

type healthResponse struct {
	Status    string       `json:"status"`
	Database  bool         `json:"database"`
	CheckedAt time.Time    `json:"checked_at"`
	Error     string       `json:"error,omitempty"`
	Outbox    *outboxState `json:"outbox,omitempty"`
}

type outboxState struct {
	Pending int `json:"pending"`
	Dead    int `json:"dead"`
}

// handleHealth: 200, пока БД доступна. Очередь outbox показывается справочно.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: true}
	if s.deps.Health != nil {
		resp.Database = s.deps.Health.Healthy()
		resp.CheckedAt = s.deps.Health.CheckedAt()
		if err := s.deps.Health.LastError(); err != nil {
			resp.Error = err.Error()
		}
	}
	if s.deps.Outbox != nil {
		if st, err := s.deps.Outbox.Stats(r.Context()); err == nil {
			resp.Outbox = &outboxState{Pending: st.Pending, Dead: st.Dead}
		} else {
			log.WithError(err).Warn("Статистика outbox недоступна")
		}
	}

	status := http.StatusOK
	if !resp.Database {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
