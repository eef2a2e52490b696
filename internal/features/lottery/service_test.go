package lottery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

type memStore struct {
	tickets   []*Ticket
	winners   []*Winner
	failNext  error
	takenOnce bool
}

func (m *memStore) CreateTicket(_ context.Context, t *Ticket) error {
	if m.failNext != nil {
		return m.failNext
	}
	if m.takenOnce {
		m.takenOnce = false
		return errCodeTaken
	}
	for _, x := range m.tickets {
		if x.Code == t.Code {
			return errCodeTaken
		}
		if t.IsFree && x.IsFree && x.UserID == t.UserID && x.Month == t.Month && x.Year == t.Year {
			return common.ErrTicketAlreadyClaimed
		}
	}
	t.ID = int64(len(m.tickets) + 1)
	m.tickets = append(m.tickets, t)
	return nil
}

func (m *memStore) ListTickets(_ context.Context, userID int64, p Period) ([]*Ticket, error) {
	var out []*Ticket
	for _, t := range m.tickets {
		if t.UserID == userID && t.Month == p.Month && t.Year == p.Year {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) Winners(_ context.Context, limit int) ([]*Winner, error) {
	if len(m.winners) > limit {
		return m.winners[:limit], nil
	}
	return m.winners, nil
}

func (m *memStore) Draw(_ context.Context, p Period, prize string, pick func(n int) int) (*Winner, error) {
	for _, w := range m.winners {
		if w.Month == p.Month && w.Year == p.Year {
			return nil, common.ErrDrawAlreadyDone
		}
	}
	var pool []*Ticket
	for _, t := range m.tickets {
		if t.Month == p.Month && t.Year == p.Year {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return nil, common.ErrNoTickets
	}
	t := pool[pick(len(pool))]
	t.IsWinner = true
	w := &Winner{TicketID: t.ID, UserID: t.UserID, TicketCode: t.Code, Month: p.Month, Year: p.Year, Prize: prize}
	m.winners = append(m.winners, w)
	return w, nil
}

type fakeLedger struct {
	balance int64
	refunds []string
}

func (f *fakeLedger) Debit(_ context.Context, _ int64, amount int64, _ economy.Kind, _ string) (*economy.Transaction, error) {
	if amount > f.balance {
		return nil, common.ErrInsufficientBalance
	}
	f.balance -= amount
	return &economy.Transaction{ID: 7, Amount: -amount}, nil
}

func (f *fakeLedger) CreditOrEnqueue(_ context.Context, _ int64, amount int64, _ economy.Kind, _ string, key string) (*economy.Transaction, bool, error) {
	f.balance += amount
	f.refunds = append(f.refunds, key)
	return &economy.Transaction{Amount: amount}, false, nil
}

func newTestService(balance int64, src random.Source) (*Service, *memStore, *fakeLedger) {
	store := &memStore{}
	ledger := &fakeLedger{balance: balance}
	svc := NewService(store, ledger, src, Settings{Enabled: true, ExtraTicketPrice: 50, Prize: "Приз"})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, common.MoscowLocation()) }
	return svc, store, ledger
}

func TestPeriodPrevious(t *testing.T) {
	assert.Equal(t, Period{Month: 12, Year: 2025}, Period{Month: 1, Year: 2026}.Previous())
	assert.Equal(t, Period{Month: 4, Year: 2026}, Period{Month: 5, Year: 2026}.Previous())
	assert.False(t, Period{Month: 13, Year: 2026}.Valid())
}

func TestFreeTicketOncePerMonth(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(0, random.NewSequence(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17))

	ticket, err := svc.ClaimFreeTicket(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ticket.Code, CodeLength)
	assert.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}$`, ticket.Display())
	assert.Equal(t, 5, ticket.Month)

	_, err = svc.ClaimFreeTicket(ctx, 1)
	assert.ErrorIs(t, err, common.ErrTicketAlreadyClaimed)
}

func TestCodeCollisionRetries(t *testing.T) {
	svc, store, _ := newTestService(0, random.Default())
	store.takenOnce = true
	ticket, err := svc.ClaimFreeTicket(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.Code)
}

func TestBuyExtraTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("debits price", func(t *testing.T) {
		svc, _, ledger := newTestService(120, random.Default())
		_, err := svc.BuyExtraTicket(ctx, 1)
		require.NoError(t, err)
		_, err = svc.BuyExtraTicket(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(20), ledger.balance)

		_, err = svc.BuyExtraTicket(ctx, 1)
		assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	})

	t.Run("refunds when ticket not stored", func(t *testing.T) {
		svc, store, ledger := newTestService(100, random.Default())
		store.failNext = errors.New("db down")
		_, err := svc.BuyExtraTicket(ctx, 1)
		require.Error(t, err)
		assert.Equal(t, int64(100), ledger.balance)
		assert.Equal(t, []string{"lottery:7:refund"}, ledger.refunds)
	})
}

func TestDrawMonth(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(1000, random.Default())

	_, err := svc.DrawMonth(ctx, Period{Month: 5, Year: 2026})
	assert.ErrorIs(t, err, common.ErrNoTickets)

	for user := int64(1); user <= 3; user++ {
		_, err := svc.ClaimFreeTicket(ctx, user)
		require.NoError(t, err)
	}

	w, err := svc.DrawMonth(ctx, Period{Month: 5, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, "Приз", w.Prize)

	winners := 0
	for _, tk := range store.tickets {
		if tk.IsWinner {
			winners++
			assert.Equal(t, w.UserID, tk.UserID)
		}
	}
	assert.Equal(t, 1, winners)

	_, err = svc.DrawMonth(ctx, Period{Month: 5, Year: 2026})
	assert.ErrorIs(t, err, common.ErrDrawAlreadyDone)

	_, err = svc.DrawMonth(ctx, Period{Month: 0, Year: 2026})
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
}

func TestLotteryDisabled(t *testing.T) {
	svc := NewService(&memStore{}, &fakeLedger{}, nil, Settings{})
	_, err := svc.ClaimFreeTicket(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrFeatureDisabled)
	_, err = svc.BuyExtraTicket(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrFeatureDisabled)
}
