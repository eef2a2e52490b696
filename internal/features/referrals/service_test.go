package referrals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
	"serotonyl.ru/duna-casino/internal/features/economy"
)

type memStore struct {
	codes     map[int64]string
	referrals []*Referral
}

func newMemStore() *memStore {
	return &memStore{codes: map[int64]string{}}
}

func (m *memStore) EnsureCode(_ context.Context, userID int64, candidate string) (string, error) {
	if code, ok := m.codes[userID]; ok {
		return code, nil
	}
	for _, c := range m.codes {
		if c == candidate {
			return "", errCodeTaken
		}
	}
	m.codes[userID] = candidate
	return candidate, nil
}

func (m *memStore) InviterByCode(_ context.Context, code string) (int64, error) {
	for id, c := range m.codes {
		if c == code {
			return id, nil
		}
	}
	return 0, common.ErrReferralCodeNotFound
}

func (m *memStore) Create(_ context.Context, inviterID, inviteeID int64) (*Referral, error) {
	for _, r := range m.referrals {
		if r.InviteeID == inviteeID {
			return nil, common.ErrReferralAlreadyActivated
		}
	}
	r := &Referral{ID: int64(len(m.referrals) + 1), InviterID: inviterID, InviteeID: inviteeID, CreatedAt: time.Now()}
	m.referrals = append(m.referrals, r)
	return r, nil
}

func (m *memStore) ReferralOf(_ context.Context, inviteeID int64) (*Referral, error) {
	for _, r := range m.referrals {
		if r.InviteeID == inviteeID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memStore) Invited(_ context.Context, inviterID int64, limit int) ([]*Invitee, error) {
	var out []*Invitee
	for _, r := range m.referrals {
		if r.InviterID == inviterID && len(out) < limit {
			out = append(out, &Invitee{UserID: r.InviteeID, JoinedAt: r.CreatedAt})
		}
	}
	return out, nil
}

func (m *memStore) TopInviters(_ context.Context, limit int) ([]*Inviter, error) {
	counts := map[int64]int{}
	var order []int64
	for _, r := range m.referrals {
		if counts[r.InviterID] == 0 {
			order = append(order, r.InviterID)
		}
		counts[r.InviterID]++
	}
	var out []*Inviter
	for _, id := range order {
		out = append(out, &Inviter{UserID: id, TotalInvites: counts[id]})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeLedger: бонусы по ключам. down имитирует недоступный леджер.
type fakeLedger struct {
	balance map[int64]int64
	keys    map[string]bool
	queued  map[string]int64
	down    bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balance: map[int64]int64{}, keys: map[string]bool{}, queued: map[string]int64{}}
}

func (f *fakeLedger) ClaimBonus(_ context.Context, userID, amount int64, description, key string) (*economy.Transaction, error) {
	if f.down {
		return nil, fmt.Errorf("claim: %w", common.ErrLedgerUnavailable)
	}
	if f.keys[key] {
		return nil, common.ErrBonusAlreadyClaimed
	}
	f.keys[key] = true
	f.balance[userID] += amount
	return &economy.Transaction{UserID: userID, Amount: amount, Kind: economy.KindBonus, Description: description}, nil
}

func (f *fakeLedger) CreditOrEnqueue(_ context.Context, userID, amount int64, kind economy.Kind, _, key string) (*economy.Transaction, bool, error) {
	if kind != economy.KindBonus {
		return nil, false, errors.New("unexpected kind")
	}
	f.queued[key] = amount
	return nil, true, nil
}

const (
	alice = int64(1)
	bob   = int64(2)
	carol = int64(3)
)

// codes: alice получает AAAAAAAA, следующий игрок BBBBBBBB и т.д.
func codeSequence() *random.Sequence {
	var vals []int
	for letter := 0; letter < 4; letter++ {
		for i := 0; i < CodeLength; i++ {
			vals = append(vals, letter)
		}
	}
	return random.NewSequence(vals...)
}

func newTestService() (*Service, *memStore, *fakeLedger) {
	store := newMemStore()
	ledger := newFakeLedger()
	return NewService(store, ledger, codeSequence(), Settings{Enabled: true, Bonus: 50}), store, ledger
}

func TestCodeIsStable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	code, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", code)

	again, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestCodeRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	store.codes[99] = "AAAAAAAA"

	code, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", code)
}

func TestActivatePaysBothSides(t *testing.T) {
	ctx := context.Background()
	svc, store, ledger := newTestService()
	code, err := svc.Code(ctx, alice)
	require.NoError(t, err)

	act, err := svc.Activate(ctx, bob, " ref_"+code+" ")
	require.NoError(t, err)
	assert.Equal(t, alice, act.Referral.InviterID)
	assert.Equal(t, bob, act.Referral.InviteeID)
	assert.False(t, act.InviteeQueued)
	assert.False(t, act.InviterQueued)

	assert.Equal(t, int64(50), ledger.balance[alice])
	assert.Equal(t, int64(50), ledger.balance[bob])
	assert.True(t, ledger.keys["referral:2"])
	assert.True(t, ledger.keys["referral:2:inviter"])
	assert.Len(t, store.referrals, 1)
}

func TestActivateRejections(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger := newTestService()
	aliceCode, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	carolCode, err := svc.Code(ctx, carol)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, alice, aliceCode)
	assert.ErrorIs(t, err, common.ErrSelfReferral)
	assert.True(t, common.IsValidation(err))

	_, err = svc.Activate(ctx, bob, "ZZZZZZZZ")
	assert.ErrorIs(t, err, common.ErrReferralCodeNotFound)
	_, err = svc.Activate(ctx, bob, "short")
	assert.ErrorIs(t, err, common.ErrReferralCodeNotFound)

	_, err = svc.Activate(ctx, bob, strings.ToLower(aliceCode))
	require.NoError(t, err)

	// второй код и повтор того же: у bob уже есть пригласивший
	_, err = svc.Activate(ctx, bob, carolCode)
	assert.ErrorIs(t, err, common.ErrReferralAlreadyActivated)
	_, err = svc.Activate(ctx, bob, aliceCode)
	assert.ErrorIs(t, err, common.ErrReferralAlreadyActivated)

	assert.Equal(t, int64(50), ledger.balance[bob], "bonus is paid once")
	assert.Zero(t, ledger.balance[carol])
}

func TestActivateQueuesBonusWhenLedgerDown(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger := newTestService()
	code, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	ledger.down = true

	act, err := svc.Activate(ctx, bob, code)
	require.NoError(t, err)
	assert.True(t, act.InviteeQueued)
	assert.True(t, act.InviterQueued)
	assert.Equal(t, map[string]int64{"referral:2": 50, "referral:2:inviter": 50}, ledger.queued)
}

func TestSummaryAndTop(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	code, err := svc.Code(ctx, alice)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, bob, code)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, carol, code)
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, code, sum.Code)
	assert.Nil(t, sum.InvitedBy)
	assert.Len(t, sum.Invited, 2)

	sum, err = svc.Summary(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, sum.InvitedBy)
	assert.Equal(t, alice, *sum.InvitedBy)
	assert.Empty(t, sum.Invited)

	top, err := svc.TopInviters(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].TotalInvites)
}

func TestReferralsDisabled(t *testing.T) {
	svc := NewService(newMemStore(), newFakeLedger(), nil, Settings{Enabled: false, Bonus: 50})
	_, err := svc.Activate(context.Background(), bob, "AAAAAAAA")
	assert.ErrorIs(t, err, common.ErrFeatureDisabled)
	_, err = svc.Code(context.Background(), bob)
	assert.ErrorIs(t, err, common.ErrFeatureDisabled)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeCode(" ref_ab12cd34 "))
	assert.Equal(t, "AB12CD34", NormalizeCode("REF_AB12CD34"))
	assert.Equal(t, "AB12CD34", NormalizeCode("ab12cd34"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "@ivan", (&Invitee{Username: "ivan"}).DisplayName())
	assert.Equal(t, "Иван Петров", (&Inviter{FirstName: "Иван", LastName: "Петров"}).DisplayName())
	assert.Equal(t, "id7", (&Invitee{UserID: 7}).DisplayName())
}
