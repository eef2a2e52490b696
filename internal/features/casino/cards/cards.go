// Package cards описывает колоду из 52 карт и подсчёт очков
// для блэкджека и баккары.
package cards

import (
	"strings"

	"serotonyl.ru/duna-casino/internal/common"
	"serotonyl.ru/duna-casino/internal/features/casino/random"
)

// Suit: масть.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank: достоинство карты.
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Suits и Ranks задают порядок построения новой колоды.
var (
	Suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card: карта.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string { return string(c.Rank) + string(c.Suit) }

// pipValue: «сырое» значение карты: A=1, 2-10 по номиналу, J/Q/K=10.
func (c Card) pipValue() int {
	switch c.Rank {
	case Ace:
		return 1
	case Jack, Queen, King, Ten:
		return 10
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	}
	return 0
}

// Deck: одноразовая перетасованная последовательность карт на один раунд.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck строит 52 карты и тасует их Фишером–Йетсом.
func NewDeck(src random.Source) *Deck {
	cards := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// NewStackedDeck создаёт колоду с заданным порядком карт (для тестов и повторов).
func NewStackedDeck(cards ...Card) *Deck {
	cp := make([]Card, len(cards))
	copy(cp, cards)
	return &Deck{cards: cp}
}

// Draw снимает следующую карту сверху.
func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, common.ErrDeckExhausted
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// Remaining возвращает количество неснятых карт.
func (d *Deck) Remaining() int { return len(d.cards) - d.next }

// BlackjackTotal считает очки руки в блэкджеке.
// Туз считается как 11 и понижается до 1, пока сумма больше 21.
// soft = true, если в сумме остался туз, посчитанный как 11.
func BlackjackTotal(hand []Card) (total int, soft bool) {
	highAces := 0
	for _, c := range hand {
		if c.Rank == Ace {
			total += 11
			highAces++
			continue
		}
		total += c.pipValue()
	}
	for total > 21 && highAces > 0 {
		total -= 10
		highAces--
	}
	return total, highAces > 0
}

// BaccaratScore: сумма «сырых» значений по модулю 10.
func BaccaratScore(hand []Card) int {
	sum := 0
	for _, c := range hand {
		sum += c.pipValue()
	}
	return sum % 10
}

// FormatHand выводит руку в виде "A♠ K♥".
func FormatHand(hand []Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
