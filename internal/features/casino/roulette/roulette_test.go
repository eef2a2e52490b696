package roulette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
)

func TestColorTableIsExhaustive(t *testing.T) {
	reds, blacks := 0, 0
	for n := 0; n < Pockets; n++ {
		switch ColorOf(n) {
		case Red:
			reds++
		case Black:
			blacks++
		case Green:
			assert.Equal(t, 0, n, "only zero is green")
		}
	}
	assert.Equal(t, 18, reds)
	assert.Equal(t, 18, blacks)
}

func TestClassificationsMatchCanonicalTable(t *testing.T) {
	odd := Bet{Kind: KindOdd}
	even := Bet{Kind: KindEven}
	low := Bet{Kind: KindLow}
	high := Bet{Kind: KindHigh}

	assert.False(t, odd.Wins(0))
	assert.False(t, even.Wins(0))
	assert.False(t, low.Wins(0))
	assert.False(t, high.Wins(0))

	for n := 1; n < Pockets; n++ {
		assert.NotEqual(t, odd.Wins(n), even.Wins(n), "number %d", n)
		assert.NotEqual(t, low.Wins(n), high.Wins(n), "number %d", n)
		assert.Equal(t, n%2 == 1, odd.Wins(n))
		assert.Equal(t, n <= 18, low.Wins(n))

		dozens := 0
		for d := 1; d <= 3; d++ {
			if (Bet{Kind: KindDozen, Value: d}).Wins(n) {
				dozens++
			}
		}
		assert.Equal(t, 1, dozens, "number %d must be in exactly one dozen", n)
	}
}

func TestSpotColors(t *testing.T) {
	assert.Equal(t, Red, ColorOf(1))
	assert.Equal(t, Black, ColorOf(2))
	assert.Equal(t, Red, ColorOf(19))
	assert.Equal(t, Black, ColorOf(20))
	assert.Equal(t, Red, ColorOf(36))
	assert.Equal(t, Black, ColorOf(35))
}

func TestTableAccumulatesSameKey(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Place(Bet{Kind: KindStraight, Value: 17, Amount: 5}))
	require.NoError(t, tbl.Place(Bet{Kind: KindColor, Value: int(Red), Amount: 10}))
	require.NoError(t, tbl.Place(Bet{Kind: KindStraight, Value: 17, Amount: 25}))

	bets := tbl.Bets()
	require.Len(t, bets, 2)
	assert.Equal(t, Bet{Kind: KindStraight, Value: 17, Amount: 30}, bets[0])
	assert.Equal(t, int64(40), tbl.Total())

	tbl.Clear()
	assert.Empty(t, tbl.Bets())
	assert.Zero(t, tbl.Total())
}

func TestPlaceRejectsInvalidBets(t *testing.T) {
	tbl := NewTable()
	assert.ErrorIs(t, tbl.Place(Bet{Kind: KindStraight, Value: 37, Amount: 5}), common.ErrInvalidSelection)
	assert.ErrorIs(t, tbl.Place(Bet{Kind: KindColor, Value: int(Green), Amount: 5}), common.ErrInvalidSelection)
	assert.ErrorIs(t, tbl.Place(Bet{Kind: KindDozen, Value: 4, Amount: 5}), common.ErrInvalidSelection)
	assert.ErrorIs(t, tbl.Place(Bet{Kind: Kind(99), Amount: 5}), common.ErrInvalidSelection)
	assert.ErrorIs(t, tbl.Place(Bet{Kind: KindOdd, Amount: 0}), common.ErrInvalidAmount)
	assert.Empty(t, tbl.Bets())
}

func TestResolve(t *testing.T) {
	r := DefaultRules()

	t.Run("straight hit pays 35x", func(t *testing.T) {
		res := Resolve(r, []Bet{{Kind: KindStraight, Value: 7, Amount: 5}}, 7)
		assert.Equal(t, int64(175), res.TotalWin)
		assert.Equal(t, int64(170), res.Net)
	})

	t.Run("mixed bets", func(t *testing.T) {
		bets := []Bet{
			{Kind: KindStraight, Value: 7, Amount: 10},
			{Kind: KindColor, Value: int(Black), Amount: 20},
			{Kind: KindDozen, Value: 2, Amount: 10},
			{Kind: KindEven, Amount: 5},
		}
		// 20: чёрное, вторая дюжина, чёт
		res := Resolve(r, bets, 20)
		assert.Equal(t, int64(45), res.TotalBet)
		assert.Equal(t, int64(40+30+10), res.TotalWin)
		assert.Equal(t, int64(35), res.Net)
		assert.False(t, res.Outcomes[0].Won)
		assert.True(t, res.Outcomes[1].Won)
	})

	t.Run("zero loses outside bets", func(t *testing.T) {
		bets := []Bet{{Kind: KindOdd, Amount: 10}, {Kind: KindLow, Amount: 10}}
		res := Resolve(r, bets, 0)
		assert.Zero(t, res.TotalWin)
		assert.Equal(t, int64(-20), res.Net)
		assert.Equal(t, Green, res.Color)
	})
}

func TestSpinInRange(t *testing.T) {
	src := random.NewSequence(0, 36, 37, 100)
	for _, want := range []int{0, 36, 0, 26} {
		assert.Equal(t, want, Spin(src))
	}
	for i := 0; i < 500; i++ {
		n := Spin(random.Default())
		assert.True(t, n >= 0 && n <= 36)
	}
}

func TestParse(t *testing.T) {
	k, ok := ParseKind("dozen")
	assert.True(t, ok)
	assert.Equal(t, KindDozen, k)

	c, ok := ParseColor("red")
	assert.True(t, ok)
	assert.Equal(t, Red, c)

	_, ok = ParseColor("green")
	assert.False(t, ok)
}

func TestParseBet(t *testing.T) {
	b, err := ParseBet("red", "", 10)
	require.NoError(t, err)
	assert.Equal(t, Bet{Kind: KindColor, Value: int(Red), Amount: 10}, b)

	b, err = ParseBet("number", "17", 5)
	require.NoError(t, err)
	assert.Equal(t, Bet{Kind: KindStraight, Value: 17, Amount: 5}, b)

	b, err = ParseBet("dozen", "3", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Value)

	_, err = ParseBet("number", "x", 5)
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
	_, err = ParseBet("number", "40", 5)
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
	_, err = ParseBet("corner", "", 5)
	assert.ErrorIs(t, err, common.ErrInvalidSelection)
}

func TestPlaceRejectsHugeAmounts(t *testing.T) {
	table := NewTable()
	err := table.Place(Bet{Kind: KindLow, Amount: 1 << 61})
	assert.ErrorIs(t, err, common.ErrExceedsBalance)
	err = table.Place(Bet{Kind: KindStraight, Value: 34, Amount: 1 << 62})
	assert.ErrorIs(t, err, common.ErrExceedsBalance)

	require.NoError(t, table.Place(Bet{Kind: KindStraight, Value: 33, Amount: MaxBetAmount}))
	err = table.Place(Bet{Kind: KindStraight, Value: 33, Amount: 1})
	assert.ErrorIs(t, err, common.ErrExceedsBalance, "accumulated position is capped too")

	assert.Equal(t, MaxBetAmount, table.Total())
	res := Resolve(DefaultRules(), table.Bets(), 33)
	assert.Equal(t, MaxBetAmount*35, res.TotalWin)
	assert.Positive(t, res.Net)
}

func TestAddChecked(t *testing.T) {
	sum, err := addChecked(10, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(30), sum)

	_, err = addChecked(1<<62, 1<<62)
	assert.ErrorIs(t, err, common.ErrExceedsBalance)
}
