package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

type memStore struct {
	rows      map[int64]*Payment
	nextID    int64
	createErr error
}

func newMemStore() *memStore { return &memStore{rows: map[int64]*Payment{}} }

func (m *memStore) Create(_ context.Context, p *Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	p.Status = StatusPending
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id int64) (*Payment, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, common.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Resolve(_ context.Context, id int64, status Status, adminID *int64) (*Payment, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, common.ErrPaymentNotFound
	}
	if p.Status != StatusPending {
		return nil, common.ErrPaymentResolved
	}
	p.Status = status
	p.ResolvedBy = adminID
	cp := *p
	return &cp, nil
}

func (m *memStore) Pending(_ context.Context, limit int) ([]*Payment, error) {
	var out []*Payment
	for i := int64(1); i <= m.nextID && len(out) < limit; i++ {
		if p, ok := m.rows[i]; ok && p.Status == StatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) StaleDeposits(_ context.Context, before time.Time) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.rows {
		if p.Status == StatusPending && p.Kind == KindDeposit && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64, limit int) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.rows {
		if p.UserID == userID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeLedger struct {
	ton     decimal.Decimal
	duna    int64
	keys    map[string]bool
	failing bool
}

func newFakeLedger(ton string) *fakeLedger {
	return &fakeLedger{ton: decimal.RequireFromString(ton), keys: map[string]bool{}}
}

func (f *fakeLedger) AdjustTon(_ context.Context, _ int64, ton decimal.Decimal, duna int64, _ economy.Kind, _ string, key string) (*economy.Applied, error) {
	if f.failing {
		return nil, common.ErrLedgerUnavailable
	}
	if key != "" && f.keys[key] {
		return &economy.Applied{Balance: f.duna, Ton: f.ton, Duplicate: true}, nil
	}
	if f.ton.Add(ton).IsNegative() || f.duna+duna < 0 {
		return nil, common.ErrInsufficientBalance
	}
	f.ton = f.ton.Add(ton)
	f.duna += duna
	if key != "" {
		f.keys[key] = true
	}
	return &economy.Applied{Balance: f.duna, Ton: f.ton}, nil
}

const wallet = "UQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"

func newTestService(ton string) (*Service, *memStore, *fakeLedger, *[]string) {
	store := newMemStore()
	ledger := newFakeLedger(ton)
	var notes []string
	svc := NewService(store, ledger, Settings{
		Enabled:    true,
		DunaPerTon: decimal.NewFromInt(10000),
		MinTon:     decimal.RequireFromString("0.1"),
		PendingTTL: 72 * time.Hour,
	}, func(text string) { notes = append(notes, text) })
	return svc, store, ledger, &notes
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDepositConfirm(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger, notes := newTestService("0")

	p, err := svc.SubmitDeposit(ctx, 1, d("1.5"), "tx-hash")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, ledger.ton.IsZero(), "до подтверждения баланс не меняется")
	require.Len(t, *notes, 1)

	confirmed, err := svc.Confirm(ctx, p.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, confirmed.Status)
	assert.True(t, ledger.ton.Equal(d("1.5")))

	// повтор не зачисляет второй раз
	_, err = svc.Confirm(ctx, p.ID, 99)
	require.NoError(t, err)
	assert.True(t, ledger.ton.Equal(d("1.5")))

	_, err = svc.Reject(ctx, p.ID, 99)
	assert.ErrorIs(t, err, common.ErrPaymentResolved)
}

func TestConfirmRetriesCreditAfterLedgerOutage(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger, _ := newTestService("0")

	p, err := svc.SubmitDeposit(ctx, 1, d("2"), "")
	require.NoError(t, err)

	ledger.failing = true
	_, err = svc.Confirm(ctx, p.ID, 99)
	require.ErrorIs(t, err, common.ErrLedgerUnavailable)

	ledger.failing = false
	_, err = svc.Confirm(ctx, p.ID, 99)
	require.NoError(t, err)
	assert.True(t, ledger.ton.Equal(d("2")))
}

func TestDepositValidation(t *testing.T) {
	svc, _, _, _ := newTestService("0")
	_, err := svc.SubmitDeposit(context.Background(), 1, d("0.05"), "")
	assert.ErrorIs(t, err, common.ErrBelowMinimumTon)
	assert.True(t, common.IsValidation(err))
	_, err = svc.SubmitDeposit(context.Background(), 1, d("-1"), "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("holds and completes", func(t *testing.T) {
		svc, _, ledger, _ := newTestService("3")
		p, err := svc.RequestWithdrawal(ctx, 1, d("1.25"), wallet)
		require.NoError(t, err)
		assert.True(t, ledger.ton.Equal(d("1.75")))

		_, err = svc.Confirm(ctx, p.ID, 99)
		require.NoError(t, err)
		assert.True(t, ledger.ton.Equal(d("1.75")))
	})

	t.Run("reject refunds once", func(t *testing.T) {
		svc, _, ledger, _ := newTestService("3")
		p, err := svc.RequestWithdrawal(ctx, 1, d("1"), wallet)
		require.NoError(t, err)

		_, err = svc.Reject(ctx, p.ID, 99)
		require.NoError(t, err)
		_, err = svc.Reject(ctx, p.ID, 99)
		require.NoError(t, err)
		assert.True(t, ledger.ton.Equal(d("3")))
	})

	t.Run("insufficient ton", func(t *testing.T) {
		svc, store, _, _ := newTestService("0.5")
		_, err := svc.RequestWithdrawal(ctx, 1, d("1"), wallet)
		assert.ErrorIs(t, err, common.ErrInsufficientBalance)
		assert.Empty(t, store.rows)
	})

	t.Run("bad address", func(t *testing.T) {
		svc, _, _, _ := newTestService("3")
		_, err := svc.RequestWithdrawal(ctx, 1, d("1"), "not-a-wallet")
		assert.ErrorIs(t, err, common.ErrInvalidWallet)
	})

	t.Run("store failure releases hold", func(t *testing.T) {
		svc, store, ledger, _ := newTestService("3")
		store.createErr = errors.New("db down")
		_, err := svc.RequestWithdrawal(ctx, 1, d("1"), "0:"+strings.Repeat("ab", 32))
		require.Error(t, err)
		assert.True(t, ledger.ton.Equal(d("3")))
	})
}

func TestExchangeTonToDuna(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger, _ := newTestService("1")

	ex, err := svc.ExchangeTonToDuna(ctx, 1, d("0.12345"))
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ex.Duna)
	assert.Equal(t, int64(1234), ledger.duna)
	assert.True(t, ex.TonBalance.Equal(d("0.87655")))

	_, err = svc.ExchangeTonToDuna(ctx, 1, d("0.09"))
	assert.ErrorIs(t, err, common.ErrBelowMinimumTon)

	_, err = svc.ExchangeTonToDuna(ctx, 1, d("5"))
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newTestService("0")

	old, err := svc.SubmitDeposit(ctx, 1, d("1"), "")
	require.NoError(t, err)
	store.rows[old.ID].CreatedAt = time.Now().Add(-100 * time.Hour)
	fresh, err := svc.SubmitDeposit(ctx, 1, d("1"), "")
	require.NoError(t, err)

	n, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusFailed, store.rows[old.ID].Status)
	assert.Equal(t, StatusPending, store.rows[fresh.ID].Status)

	pending, err := svc.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)
}
