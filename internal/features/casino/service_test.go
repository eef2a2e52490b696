package casino

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/baccarat"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
	"serotonyl.ru/duna-casino/internal/features/casino/dice"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/casino/roulette"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

// fakeLedger: леджер в памяти. creditDown имитирует недоступность при начислении.
type fakeLedger struct {
	mu         sync.Mutex
	balance    map[int64]int64
	credited   map[string]int64
	queued     map[string]int64
	creditDown bool
	debitErr   error
}

func newFakeLedger(userID, balance int64) *fakeLedger {
	return &fakeLedger{
		balance:  map[int64]int64{userID: balance},
		credited: map[string]int64{},
		queued:   map[string]int64{},
	}
}

func (f *fakeLedger) GetBalance(_ context.Context, userID int64) (economy.BalanceView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return economy.BalanceView{Amount: f.balance[userID]}, nil
}

func (f *fakeLedger) Debit(_ context.Context, userID, amount int64, kind economy.Kind, description string) (*economy.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return nil, f.debitErr
	}
	if f.balance[userID] < amount {
		return nil, common.ErrInsufficientBalance
	}
	f.balance[userID] -= amount
	return &economy.Transaction{UserID: userID, Amount: -amount, Kind: kind, Description: description}, nil
}

func (f *fakeLedger) CreditOrEnqueue(_ context.Context, userID, amount int64, kind economy.Kind, description, key string) (*economy.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditDown {
		f.queued[key] = amount
		return nil, true, nil
	}
	if _, ok := f.credited[key]; !ok {
		f.credited[key] = amount
		f.balance[userID] += amount
	}
	return &economy.Transaction{UserID: userID, Amount: amount, Kind: kind, Description: description}, false, nil
}

func (f *fakeLedger) get(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance[userID]
}

type fakeRoundLog struct {
	mu     sync.Mutex
	rounds []*RoundResult
	err    error
}

func (f *fakeRoundLog) AppendRound(_ context.Context, r *RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rounds = append(f.rounds, r)
	return nil
}

func (f *fakeRoundLog) GetStats(_ context.Context, userID int64) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &Stats{UserID: userID}
	for _, r := range f.rounds {
		s.TotalRounds++
		s.TotalWagered += r.Stake
		s.TotalWon += r.Payout
	}
	return s, nil
}

const user = int64(42)

func testSettings() Settings {
	return Settings{
		Enabled:         true,
		Blackjack:       Limits{MinUnit: 10, MaxMultiplier: 100},
		Baccarat:        Limits{MinUnit: 10, MaxMultiplier: 10},
		Dice:            Limits{MinUnit: 10, MaxMultiplier: 10},
		RouletteMinChip: 5,
	}
}

func newTestService(balance int64, src random.Source) (*Service, *fakeLedger, *fakeRoundLog) {
	ledger := newFakeLedger(user, balance)
	rounds := &fakeRoundLog{}
	return NewService(ledger, rounds, src, testSettings()), ledger, rounds
}

func deckOf(ranks ...cards.Rank) func() *cards.Deck {
	return func() *cards.Deck {
		cs := make([]cards.Card, len(ranks))
		for i, r := range ranks {
			cs[i] = cards.Card{Rank: r, Suit: cards.Spades}
		}
		return cards.NewStackedDeck(cs...)
	}
}

func TestBlackjackNaturalPays25(t *testing.T) {
	svc, ledger, _ := newTestService(100, nil)
	// P: A, D: 9, P: K, D: 7
	svc.newDeck = deckOf(cards.Ace, cards.Nine, cards.King, cards.Seven)

	view, err := svc.StartBlackjack(context.Background(), user, Wager{Unit: 10, Multiplier: 1})
	require.NoError(t, err)
	require.True(t, view.Finished)
	require.NotNil(t, view.Result)
	assert.Equal(t, "blackjack", view.Result.Outcome)
	assert.Equal(t, int64(25), view.Result.Payout)
	assert.Equal(t, int64(115), ledger.get(user))

	_, active := svc.ActiveBlackjack(user)
	assert.False(t, active)
}

func TestBlackjackRoundHoldsSlot(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, random.NewSequence(0))
	// игрок 10+7=17, дилер 9+8=17
	svc.newDeck = deckOf(cards.Ten, cards.Nine, cards.Seven, cards.Eight)

	view, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
	require.NoError(t, err)
	assert.False(t, view.Finished)
	assert.Len(t, view.DealerCards, 1, "hole card hidden")
	assert.Equal(t, 9, view.DealerTotal)
	assert.Equal(t, int64(90), ledger.get(user))

	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	assert.ErrorIs(t, err, common.ErrRoundInProgress)
	_, err = svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
	assert.ErrorIs(t, err, common.ErrRoundInProgress)

	active, ok := svc.ActiveBlackjack(user)
	require.True(t, ok)
	assert.Equal(t, view.RoundID, active.RoundID)

	view, err = svc.StandBlackjack(ctx, user)
	require.NoError(t, err)
	assert.True(t, view.Finished)
	assert.Equal(t, "push", view.Result.Outcome)
	assert.Equal(t, int64(100), ledger.get(user))

	_, err = svc.HitBlackjack(ctx, user)
	assert.ErrorIs(t, err, common.ErrNoActiveRound)

	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	assert.NoError(t, err)
}

func TestBlackjackBustLoses(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, nil)
	// игрок 10+6=16, берёт K: перебор
	svc.newDeck = deckOf(cards.Ten, cards.Nine, cards.Six, cards.Eight, cards.King)

	_, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 2})
	require.NoError(t, err)
	view, err := svc.HitBlackjack(ctx, user)
	require.NoError(t, err)
	assert.True(t, view.Finished)
	assert.Equal(t, "lose", view.Result.Outcome)
	assert.Equal(t, int64(-20), view.Result.Net)
	assert.Equal(t, int64(80), ledger.get(user))
}

func TestDeckExhaustedRefundsStake(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, nil)
	svc.newDeck = deckOf(cards.Ten, cards.Nine)

	_, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
	require.ErrorIs(t, err, common.ErrDeckExhausted)
	assert.Equal(t, int64(100), ledger.get(user))

	_, ok := svc.ActiveBlackjack(user)
	assert.False(t, ok)
	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	assert.NoError(t, err, "slot released")
}

func TestAbortOpenRoundsRefundsStakes(t *testing.T) {
	ctx := context.Background()
	svc, ledger, rounds := newTestService(100, nil)
	svc.newDeck = deckOf(cards.Ten, cards.Nine, cards.Seven, cards.Eight)

	view, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 3})
	require.NoError(t, err)
	require.False(t, view.Finished)
	assert.Equal(t, int64(70), ledger.get(user))

	assert.Equal(t, 1, svc.AbortOpenRounds(ctx))
	assert.Equal(t, int64(100), ledger.get(user))
	assert.Equal(t, map[string]int64{refundKey(view.RoundID): 30}, ledger.credited)
	assert.Empty(t, rounds.rounds)

	_, ok := svc.ActiveBlackjack(user)
	assert.False(t, ok)
	_, err = svc.StandBlackjack(ctx, user)
	assert.ErrorIs(t, err, common.ErrNoActiveRound)

	assert.Zero(t, svc.AbortOpenRounds(ctx), "nothing left to refund")
	assert.Equal(t, int64(100), ledger.get(user))
}

func TestAbortOpenRoundsQueuesRefundWhenLedgerDown(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, nil)
	svc.newDeck = deckOf(cards.Ten, cards.Nine, cards.Seven, cards.Eight)

	view, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
	require.NoError(t, err)
	ledger.creditDown = true

	assert.Equal(t, 1, svc.AbortOpenRounds(ctx))
	assert.Equal(t, map[string]int64{refundKey(view.RoundID): 10}, ledger.queued)
	_, ok := svc.ActiveBlackjack(user)
	assert.False(t, ok)
}

func TestBaccaratTiePays90(t *testing.T) {
	svc, ledger, _ := newTestService(100, nil)
	// игрок 3+4=7, банкир 10+4=4 добирает 3 → 7
	svc.newDeck = deckOf(cards.Three, cards.Ten, cards.Four, cards.Four, cards.Three)

	res, err := svc.PlayBaccarat(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, baccarat.SideTie)
	require.NoError(t, err)
	assert.Equal(t, baccarat.SideTie, res.Hand.Winner)
	assert.Equal(t, int64(90), res.Payout)
	assert.Equal(t, int64(180), ledger.get(user))
}

func TestBaccaratBankerLosesToPlayerNatural(t *testing.T) {
	svc, ledger, _ := newTestService(100, nil)
	// игрок 5+4=9 натуральные, банкир 2+3=5
	svc.newDeck = deckOf(cards.Five, cards.Two, cards.Four, cards.Three)

	res, err := svc.PlayBaccarat(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, baccarat.SideBanker)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLose, res.Outcome)
	assert.Equal(t, int64(90), ledger.get(user))
}

func TestBaccaratPushOnTie(t *testing.T) {
	svc, ledger, _ := newTestService(100, nil)
	svc.newDeck = deckOf(cards.Three, cards.Ten, cards.Four, cards.Four, cards.Three)

	res, err := svc.PlayBaccarat(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, baccarat.SidePlayer)
	require.NoError(t, err)
	assert.Equal(t, OutcomePush, res.Outcome)
	assert.Zero(t, res.Net)
	assert.Equal(t, int64(100), ledger.get(user))
}

func TestDiceEvenLosesOnNine(t *testing.T) {
	// кубики 2, 3, 4
	svc, ledger, _ := newTestService(50, random.NewSequence(1, 2, 3))

	res, err := svc.PlayDice(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, dice.BetEven)
	require.NoError(t, err)
	assert.Equal(t, 9, res.PlayerScore)
	assert.Equal(t, OutcomeLose, res.Outcome)
	assert.Equal(t, int64(40), ledger.get(user))
}

func TestRouletteStraightPays175(t *testing.T) {
	svc, ledger, rounds := newTestService(100, random.NewSequence(7))

	res, err := svc.SpinRoulette(context.Background(), user, []roulette.Bet{
		{Kind: roulette.KindStraight, Value: 7, Amount: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Spin.Number)
	assert.Equal(t, int64(175), res.Payout)
	assert.Equal(t, int64(170), res.Net)
	assert.Equal(t, int64(270), ledger.get(user))
	require.Len(t, rounds.rounds, 1)
}

func TestRouletteValidation(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(20, random.NewSequence(7))

	_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{{Kind: roulette.KindOdd, Amount: 4}})
	assert.ErrorIs(t, err, common.ErrBelowMinimum)

	_, err = svc.SpinRoulette(ctx, user, []roulette.Bet{
		{Kind: roulette.KindOdd, Amount: 10},
		{Kind: roulette.KindLow, Amount: 15},
	})
	assert.ErrorIs(t, err, common.ErrExceedsBalance)

	_, err = svc.SpinRoulette(ctx, user, nil)
	assert.ErrorIs(t, err, common.ErrBelowMinimum)
	assert.Equal(t, int64(20), ledger.get(user))
}

func TestValidationErrorsLeaveBalance(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, nil)

	_, err := svc.PlayDice(ctx, user, Wager{Unit: 5, Multiplier: 1}, dice.BetOdd)
	assert.ErrorIs(t, err, common.ErrBelowMinimum)
	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 11}, dice.BetOdd)
	assert.ErrorIs(t, err, common.ErrInvalidMultiplier)
	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetType(9))
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
	_, err = svc.PlayBaccarat(ctx, user, Wager{Unit: 200, Multiplier: 1}, baccarat.SidePlayer)
	assert.ErrorIs(t, err, common.ErrExceedsBalance)

	assert.Equal(t, int64(100), ledger.get(user))
}

func TestDebitFailureAbortsRound(t *testing.T) {
	ctx := context.Background()
	svc, ledger, rounds := newTestService(100, nil)
	ledger.debitErr = fmt.Errorf("debit: %w", common.ErrLedgerUnavailable)

	_, err := svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	require.ErrorIs(t, err, common.ErrLedgerUnavailable)
	assert.Empty(t, rounds.rounds)
	assert.Empty(t, svc.History(user, GameDice))

	ledger.debitErr = nil
	_, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	assert.NoError(t, err, "slot released after failed debit")
}

func TestPayoutQueuedWhenLedgerDown(t *testing.T) {
	svc, ledger, _ := newTestService(100, random.NewSequence(7))
	ledger.creditDown = true

	res, err := svc.SpinRoulette(context.Background(), user, []roulette.Bet{
		{Kind: roulette.KindStraight, Value: 7, Amount: 5},
	})
	require.NoError(t, err)
	assert.True(t, res.PayoutQueued)
	assert.Equal(t, map[string]int64{payoutKey(res.ID): 175}, ledger.queued)
	assert.Equal(t, int64(95), ledger.get(user), "stake is taken before the spin")
}

func TestRouletteDebitsStakeBeforeSpin(t *testing.T) {
	ctx := context.Background()
	svc, ledger, rounds := newTestService(100, random.NewSequence(8))

	res, err := svc.SpinRoulette(ctx, user, []roulette.Bet{
		{Kind: roulette.KindStraight, Value: 7, Amount: 5},
		{Kind: roulette.KindEven, Amount: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Stake)
	assert.Equal(t, int64(20), res.Payout)
	assert.Equal(t, int64(105), ledger.get(user))
	assert.Equal(t, map[string]int64{payoutKey(res.ID): 20}, ledger.credited)
	require.Len(t, rounds.rounds, 1)
}

func TestRouletteLedgerDownSpinsNothing(t *testing.T) {
	ctx := context.Background()
	// при каждом вращении выпала бы 7: выигрыш по прямой ставке
	svc, ledger, rounds := newTestService(100, random.NewSequence(7, 7, 7))
	ledger.debitErr = fmt.Errorf("debit: %w", common.ErrLedgerUnavailable)
	ledger.creditDown = true

	for i := 0; i < 3; i++ {
		_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{
			{Kind: roulette.KindStraight, Value: 7, Amount: 5},
		})
		require.ErrorIs(t, err, common.ErrLedgerUnavailable)
	}
	assert.Empty(t, ledger.queued, "no winnings without a charged stake")
	assert.Empty(t, rounds.rounds)
	assert.Equal(t, int64(100), ledger.get(user))
}

func TestRouletteRacingSpendAbortsSpin(t *testing.T) {
	ctx := context.Background()
	svc, ledger, rounds := newTestService(100, random.NewSequence(7))
	// баланс прочитан как 100, но к списанию средств уже не хватает
	ledger.debitErr = common.ErrInsufficientBalance

	_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{
		{Kind: roulette.KindStraight, Value: 7, Amount: 50},
	})
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.Empty(t, ledger.credited)
	assert.Empty(t, ledger.queued)
	assert.Empty(t, rounds.rounds)
}

func TestRouletteOverflowingTableIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestService(100, random.NewSequence(1))

	_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{
		{Kind: roulette.KindLow, Amount: 1 << 61},
		{Kind: roulette.KindStraight, Value: 34, Amount: 1 << 62},
		{Kind: roulette.KindStraight, Value: 35, Amount: 1 << 62},
		{Kind: roulette.KindStraight, Value: 36, Amount: 1 << 62},
		{Kind: roulette.KindStraight, Value: 33, Amount: 1<<61 + 10},
	})
	require.ErrorIs(t, err, common.ErrExceedsBalance)
	assert.Equal(t, int64(100), ledger.get(user))
	assert.Empty(t, ledger.credited)
}

func TestRoundLogFailureIsNotFatal(t *testing.T) {
	svc, _, rounds := newTestService(100, random.NewSequence(1, 2, 3))
	rounds.err = fmt.Errorf("db down")

	res, err := svc.PlayDice(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	require.NoError(t, err)
	assert.Len(t, svc.History(user, GameDice), 1)
	assert.Equal(t, res.ID, svc.History(user, GameDice)[0].ID)
}

func TestConservationOfBalance(t *testing.T) {
	ctx := context.Background()
	const initial = int64(10000)
	svc, ledger, _ := newTestService(initial, random.NewSequence(3, 17, 5, 29, 11, 0, 36, 8, 21, 14))

	var net int64
	for i := 0; i < 30; i++ {
		var err error
		switch i % 4 {
		case 0:
			var r *RoundResult
			r, err = svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 2}, dice.BetOver10)
			if err == nil {
				net += r.Net
			}
		case 1:
			var r *BaccaratRound
			r, err = svc.PlayBaccarat(ctx, user, Wager{Unit: 20, Multiplier: 1}, baccarat.SideBanker)
			if err == nil {
				net += r.Net
			}
		case 2:
			var r *RouletteRound
			r, err = svc.SpinRoulette(ctx, user, []roulette.Bet{
				{Kind: roulette.KindColor, Value: int(roulette.Red), Amount: 10},
				{Kind: roulette.KindStraight, Value: 17, Amount: 5},
			})
			if err == nil {
				net += r.Net
			}
		case 3:
			var v *BlackjackView
			v, err = svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
			for err == nil && !v.Finished {
				v, err = svc.StandBlackjack(ctx, user)
			}
			if err == nil {
				net += v.Result.Net
			}
		}
		require.NoError(t, err)
	}
	assert.Equal(t, initial+net, ledger.get(user))
}

func TestHistoryCapsAndOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(100000, random.NewSequence(0, 1, 2, 3, 4, 5))

	var last *RoundResult
	for i := 0; i < 25; i++ {
		r, err := svc.PlayDice(ctx, user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
		require.NoError(t, err)
		last = r
	}
	for i := 0; i < 12; i++ {
		_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{{Kind: roulette.KindEven, Amount: 5}})
		require.NoError(t, err)
	}

	diceHistory := svc.History(user, GameDice)
	require.Len(t, diceHistory, 20)
	assert.Equal(t, last.ID, diceHistory[0].ID, "most recent first")
	for i := 1; i < len(diceHistory); i++ {
		assert.False(t, diceHistory[i].CreatedAt.After(diceHistory[i-1].CreatedAt))
	}
	assert.Len(t, svc.History(user, GameRoulette), 10)
	assert.Empty(t, svc.History(user, GameBaccarat))
	assert.Empty(t, svc.History(user+1, GameDice))
}

func TestConcurrentRoundsForSameUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(100, nil)
	svc.newDeck = deckOf(cards.Ten, cards.Nine, cards.Seven, cards.Eight)

	var wg sync.WaitGroup
	var mu sync.Mutex
	started, conflicts := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartBlackjack(ctx, user, Wager{Unit: 10, Multiplier: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case assert.ErrorIs(t, err, common.ErrRoundInProgress):
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, started)
	assert.Equal(t, 9, conflicts)
}

func TestCasinoDisabled(t *testing.T) {
	ledger := newFakeLedger(user, 100)
	cfg := testSettings()
	cfg.Enabled = false
	svc := NewService(ledger, nil, nil, cfg)

	_, err := svc.PlayDice(context.Background(), user, Wager{Unit: 10, Multiplier: 1}, dice.BetOdd)
	assert.ErrorIs(t, err, common.ErrCasinoDisabled)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(100, random.NewSequence(7))
	_, err := svc.SpinRoulette(ctx, user, []roulette.Bet{{Kind: roulette.KindStraight, Value: 7, Amount: 5}})
	require.NoError(t, err)

	st, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalRounds)
	assert.Equal(t, int64(5), st.TotalWagered)
	assert.Equal(t, int64(175), st.TotalWon)
	assert.InDelta(t, 3500.0, CalculateRTP(st.TotalWagered, st.TotalWon), 0.001)
}

func TestParseRouletteArgs(t *testing.T) {
	bets, err := ParseRouletteArgs([]string{"10", "red", "5", "number", "17", "20", "dozen", "2", "5", "odd"})
	require.NoError(t, err)
	require.Len(t, bets, 4)
	assert.Equal(t, roulette.Bet{Kind: roulette.KindColor, Value: int(roulette.Red), Amount: 10}, bets[0])
	assert.Equal(t, roulette.Bet{Kind: roulette.KindStraight, Value: 17, Amount: 5}, bets[1])
	assert.Equal(t, roulette.Bet{Kind: roulette.KindDozen, Value: 2, Amount: 20}, bets[2])
	assert.Equal(t, roulette.KindOdd, bets[3].Kind)

	_, err = ParseRouletteArgs([]string{"10", "number"})
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
	_, err = ParseRouletteArgs([]string{"ten", "red"})
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
}
