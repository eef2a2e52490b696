package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/lottery"
	"serotonyl.ru/duna-casino/internal/features/payments"
	"serotonyl.ru/duna-casino/internal/outbox"
)

type memStore struct {
	sessions map[int64]*AdminSession
	failed   map[int64]int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[int64]*AdminSession{}, failed: map[int64]int{}}
}

func (m *memStore) CreateSession(_ context.Context, s *AdminSession) error {
	s.IsActive = true
	m.sessions[s.UserID] = s
	return nil
}

func (m *memStore) GetActiveSession(_ context.Context, userID int64) (*AdminSession, error) {
	s, ok := m.sessions[userID]
	if !ok || !s.IsActive || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *memStore) DeactivateSession(_ context.Context, userID int64) error {
	delete(m.sessions, userID)
	return nil
}

func (m *memStore) UpdateActivity(context.Context, int64) error { return nil }

func (m *memStore) LogAttempt(_ context.Context, userID int64, success bool) error {
	if !success {
		m.failed[userID]++
	}
	return nil
}

func (m *memStore) GetRecentAttempts(_ context.Context, userID int64, _ time.Duration) (int, error) {
	return m.failed[userID], nil
}

type adminSet map[int64]bool

func (a adminSet) IsAdmin(_ context.Context, userID int64) bool { return a[userID] }

type fakePayments struct{ confirmed []int64 }

func (f *fakePayments) Pending(context.Context, int) ([]*payments.Payment, error) { return nil, nil }

func (f *fakePayments) Confirm(_ context.Context, id, _ int64) (*payments.Payment, error) {
	f.confirmed = append(f.confirmed, id)
	return &payments.Payment{ID: id, Status: payments.StatusCompleted}, nil
}

func (f *fakePayments) Reject(_ context.Context, id, _ int64) (*payments.Payment, error) {
	return &payments.Payment{ID: id, Status: payments.StatusFailed}, nil
}

type fakeOutbox struct{}

func (fakeOutbox) Stats(context.Context) (outbox.Stats, error) { return outbox.Stats{Pending: 2}, nil }

type fakeLottery struct{}

func (fakeLottery) DrawPrevious(context.Context) (*lottery.Winner, error) {
	return &lottery.Winner{UserID: 5, TicketCode: "ABCD1234"}, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *fakePayments) {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	store := newMemStore()
	pay := &fakePayments{}
	svc := NewService(store, adminSet{1: true}, pay, fakeOutbox{}, fakeLottery{}, hash)
	return svc, store, pay
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("пароль")
	require.NoError(t, err)
	assert.Regexp(t, `^\$argon2id\$v=19\$m=65536,t=3,p=2\$`, hash)
	assert.True(t, verifyArgon2id("пароль", hash))
	assert.False(t, verifyArgon2id("Пароль", hash))
	assert.False(t, verifyArgon2id("пароль", "garbage"))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("not admin", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		assert.ErrorIs(t, svc.Login(ctx, 2, "s3cret"), common.ErrNotAdmin)
	})

	t.Run("lockout after three failures", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		for i := 0; i < MaxFailedAttempts; i++ {
			assert.ErrorIs(t, svc.Login(ctx, 1, "wrong"), common.ErrWrongPassword)
		}
		assert.ErrorIs(t, svc.Login(ctx, 1, "s3cret"), common.ErrTooManyAttempts)
	})

	t.Run("success opens session", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		assert.ErrorIs(t, svc.Authorize(ctx, 1), common.ErrSessionExpired)
		require.NoError(t, svc.Login(ctx, 1, "s3cret"))
		require.NoError(t, svc.Authorize(ctx, 1))
		assert.WithinDuration(t, time.Now().Add(SessionTTL), store.sessions[1].ExpiresAt, time.Minute)

		require.NoError(t, svc.Logout(ctx, 1))
		assert.ErrorIs(t, svc.Authorize(ctx, 1), common.ErrSessionExpired)
	})
}

func TestActionsRequireSession(t *testing.T) {
	ctx := context.Background()
	svc, _, pay := newTestService(t)

	_, err := svc.ConfirmPayment(ctx, 1, 10)
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.Empty(t, pay.confirmed)

	require.NoError(t, svc.Login(ctx, 1, "s3cret"))
	p, err := svc.ConfirmPayment(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusCompleted, p.Status)
	assert.Equal(t, []int64{10}, pay.confirmed)

	stats, err := svc.OutboxStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)

	w, err := svc.DrawLottery(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), w.UserID)

	_, err = svc.RejectPayment(ctx, 2, 10)
	assert.ErrorIs(t, err, common.ErrNotAdmin)
}
