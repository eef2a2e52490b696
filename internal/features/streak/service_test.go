package streak

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

type memStore struct {
	mu   sync.Mutex
	rows map[int64]Streak
}

func (m *memStore) Get(_ context.Context, userID int64) (*Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.UserID] = *s
	return nil
}

func (m *memStore) BreakBefore(_ context.Context, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if s.CurrentStreak > 0 && s.LastClaimDate != nil && s.LastClaimDate.Before(day) {
			s.CurrentStreak = 0
			m.rows[id] = s
			n++
		}
	}
	return n, nil
}

type fakeBonuses struct {
	keys    map[string]int64
	credits []int64
}

func (f *fakeBonuses) ClaimBonus(_ context.Context, _ int64, amount int64, _ string, key string) (*economy.Transaction, error) {
	if _, ok := f.keys[key]; ok {
		return nil, common.ErrBonusAlreadyClaimed
	}
	f.keys[key] = amount
	f.credits = append(f.credits, amount)
	return &economy.Transaction{Amount: amount, Kind: economy.KindBonus}, nil
}

func newTestService(start time.Time) (*Service, *fakeBonuses, *time.Time) {
	clock := start
	b := &fakeBonuses{keys: map[string]int64{}}
	svc := NewService(&memStore{rows: map[int64]Streak{}}, b, true)
	svc.now = func() time.Time { return clock }
	return svc, b, &clock
}

func TestGetReward(t *testing.T) {
	tests := []struct {
		day  int
		want int64
	}{
		{0, 10}, {1, 10}, {2, 20}, {6, 60}, {7, 70}, {8, 70}, {30, 70},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetReward(tt.day), "день %d", tt.day)
	}
}

func TestClaimDailyGrowsStreak(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, common.MoscowLocation())
	svc, b, clock := newTestService(start)

	for day := 1; day <= 8; day++ {
		claim, err := svc.ClaimDaily(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, day, claim.Day)
		assert.Equal(t, GetReward(day), claim.Reward)
		*clock = clock.AddDate(0, 0, 1)
	}
	assert.Equal(t, []int64{10, 20, 30, 40, 50, 60, 70, 70}, b.credits)
}

func TestClaimDailyOncePerDay(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 30, 0, 0, common.MoscowLocation())
	svc, b, clock := newTestService(start)

	_, err := svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)

	*clock = clock.Add(23 * time.Hour)
	_, err = svc.ClaimDaily(ctx, 1)
	assert.ErrorIs(t, err, common.ErrBonusAlreadyClaimed)
	assert.Len(t, b.credits, 1)
	assert.Contains(t, b.keys, "daily:1:2026-03-01")
}

func TestClaimDailySkippedDayResets(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, common.MoscowLocation())
	svc, _, clock := newTestService(start)

	_, err := svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	*clock = clock.AddDate(0, 0, 1)
	claim, err := svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, claim.Day)

	*clock = clock.AddDate(0, 0, 2)
	claim, err = svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, claim.Day)
	assert.Equal(t, int64(10), claim.Reward)
	assert.Equal(t, 2, claim.Longest)
}

func TestDailyResetBreaksMissedStreaks(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, common.MoscowLocation())
	svc, _, clock := newTestService(start)

	_, err := svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	*clock = clock.AddDate(0, 0, 1)
	_, err = svc.ClaimDaily(ctx, 2)
	require.NoError(t, err)

	// полночь 3 марта: пользователь 1 пропустил 2 марта, пользователь 2: нет
	*clock = time.Date(2026, 3, 3, 0, 0, 0, 0, common.MoscowLocation())
	require.NoError(t, svc.DailyReset(ctx))

	st1, err := svc.GetStreak(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, st1.CurrentStreak)
	st2, err := svc.GetStreak(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, st2.CurrentStreak)
	assert.Equal(t, int64(20), svc.NextReward(st2))
}

func TestClaimDailyDisabled(t *testing.T) {
	svc := NewService(&memStore{rows: map[int64]Streak{}}, &fakeBonuses{keys: map[string]int64{}}, false)
	_, err := svc.ClaimDaily(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrFeatureDisabled)
}
