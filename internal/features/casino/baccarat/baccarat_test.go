package baccarat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/cards"
)

// stacked раскладывает карты в порядке P, B, P, B, [P3], [B3].
func stacked(ranks ...cards.Rank) *cards.Deck {
	cs := make([]cards.Card, len(ranks))
	for i, r := range ranks {
		cs[i] = cards.Card{Rank: r, Suit: cards.Clubs}
	}
	return cards.NewStackedDeck(cs...)
}

func TestDealPlayerNaturalStopsDrawing(t *testing.T) {
	// игрок 5+4=9, банкир 2+3=5: у игрока натуральные, никто не добирает
	res, err := Deal(DefaultRules(), stacked(cards.Five, cards.Two, cards.Four, cards.Three, cards.King, cards.King))
	require.NoError(t, err)

	assert.True(t, res.Natural)
	assert.Len(t, res.PlayerCards, 2)
	assert.Len(t, res.BankerCards, 2)
	assert.Equal(t, 9, res.PlayerScore)
	assert.Equal(t, 5, res.BankerScore)
	assert.Equal(t, SidePlayer, res.Winner)
	assert.Len(t, res.Steps, 4)
	assert.Equal(t, []Side{SidePlayer, SideBanker, SidePlayer, SideBanker},
		[]Side{res.Steps[0].Side, res.Steps[1].Side, res.Steps[2].Side, res.Steps[3].Side})
}

func TestDealBothDrawIndependently(t *testing.T) {
	// игрок 2+3=5, банкир A+4=5: оба добирают: игрок 2 → 7, банкир 3 → 8
	res, err := Deal(DefaultRules(), stacked(cards.Two, cards.Ace, cards.Three, cards.Four, cards.Two, cards.Three))
	require.NoError(t, err)

	assert.False(t, res.Natural)
	assert.Len(t, res.PlayerCards, 3)
	assert.Len(t, res.BankerCards, 3)
	assert.Equal(t, 7, res.PlayerScore)
	assert.Equal(t, 8, res.BankerScore)
	assert.Equal(t, SideBanker, res.Winner)
	assert.Equal(t, PhaseThirdCard, res.Steps[4].Phase)
	assert.Equal(t, SidePlayer, res.Steps[4].Side)
	assert.Equal(t, SideBanker, res.Steps[5].Side)
}

func TestDealOnlyBankerDraws(t *testing.T) {
	// игрок 3+4=7 стоит, банкир 10+4=4 добирает 3 → 7, ничья
	res, err := Deal(DefaultRules(), stacked(cards.Three, cards.Ten, cards.Four, cards.Four, cards.Three))
	require.NoError(t, err)

	assert.Len(t, res.PlayerCards, 2)
	assert.Len(t, res.BankerCards, 3)
	assert.Equal(t, SideTie, res.Winner)
}

func TestDealBankerNaturalStopsPlayer(t *testing.T) {
	res, err := Deal(DefaultRules(), stacked(cards.Two, cards.Nine, cards.Two, cards.King))
	require.NoError(t, err)

	assert.True(t, res.Natural)
	assert.Len(t, res.PlayerCards, 2)
	assert.Equal(t, SideBanker, res.Winner)
}

func TestDealExhaustedDeck(t *testing.T) {
	_, err := Deal(DefaultRules(), stacked(cards.Two, cards.Ace, cards.Three, cards.Four))
	assert.ErrorIs(t, err, common.ErrDeckExhausted)
}

func TestPayout(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name   string
		bet    Side
		winner Side
		stake  int64
		want   int64
	}{
		{"tie bet wins", SideTie, SideTie, 10, 90},
		{"player bet wins", SidePlayer, SidePlayer, 10, 20},
		{"banker bet wins with commission", SideBanker, SideBanker, 10, 19},
		{"banker bet 100", SideBanker, SideBanker, 100, 195},
		{"player bet push on tie", SidePlayer, SideTie, 10, 10},
		{"banker bet push on tie", SideBanker, SideTie, 10, 10},
		{"banker bet loses", SideBanker, SidePlayer, 10, 0},
		{"tie bet loses", SideTie, SideBanker, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Payout(r, tt.bet, tt.winner, tt.stake))
		})
	}
}

func TestParseSide(t *testing.T) {
	s, ok := ParseSide("banker")
	assert.True(t, ok)
	assert.Equal(t, SideBanker, s)

	_, ok = ParseSide("dragon")
	assert.False(t, ok)
}
