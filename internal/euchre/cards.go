package euchre

import (
	"fmt"
	"math/rand"
	"strings"
)

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

type Rank string

const (
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var Ranks = []Rank{Nine, Ten, Jack, Queen, King, Ace}

// Card - 4 suits x 6 ranks, the 24-card euchre deck.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// ID is the stable identifier carried in action payloads, e.g. "J-hearts".
func (that Card) ID() string {
	return string(that.Rank) + "-" + string(that.Suit)
}

func (that Card) String() string {
	return that.ID()
}

func ParseCardID(id string) (Card, error) {
	rank, suit, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, fmt.Errorf("malformed card id %q", id)
	}

	card := Card{Suit: Suit(suit), Rank: Rank(rank)}
	if !validSuit(card.Suit) || plainRankOrder[card.Rank] == 0 {
		return Card{}, fmt.Errorf("unknown card id %q", id)
	}

	return card, nil
}

func validSuit(suit Suit) bool {
	for _, s := range Suits {
		if s == suit {
			return true
		}
	}

	return false
}

// sameColor maps each suit to the other suit of its color; the Jack of
// that suit is the left bower when the mapped suit is trump.
var sameColor = map[Suit]Suit{
	Hearts:   Diamonds,
	Diamonds: Hearts,
	Clubs:    Spades,
	Spades:   Clubs,
}

var suitIndex = map[Suit]int{
	Hearts:   0,
	Diamonds: 1,
	Clubs:    2,
	Spades:   3,
}

var plainRankOrder = map[Rank]int{
	Nine:  1,
	Ten:   2,
	Jack:  3,
	Queen: 4,
	King:  5,
	Ace:   6,
}

// jacks excluded, they rank as bowers
var trumpRankOrder = map[Rank]int{
	Nine:  1,
	Ten:   2,
	Queen: 3,
	King:  4,
	Ace:   5,
}

func IsRightBower(card Card, trump Suit) bool {
	return card.Rank == Jack && card.Suit == trump
}

func IsLeftBower(card Card, trump Suit) bool {
	return card.Rank == Jack && card.Suit == sameColor[trump]
}

func IsBower(card Card, trump Suit) bool {
	return IsRightBower(card, trump) || IsLeftBower(card, trump)
}

// EffectiveSuit - the left bower counts as trump for every suit-following
// and ranking decision, regardless of its printed suit.
func EffectiveSuit(card Card, trump Suit) Suit {
	if trump != "" && IsLeftBower(card, trump) {
		return trump
	}

	return card.Suit
}

const (
	trumpBase   = 200
	ledBase     = 100
	rightBower  = 7
	leftBower   = 6
	deadPerSuit = 10
)

// trickValue assigns every card a distinct weight within one trick context
// (led suit, trump suit): trump above led suit above everything else, and
// off-suit cards ordered arbitrarily but deterministically so the order
// stays strict.
func trickValue(card Card, led, trump Suit) int {
	switch {
	case trump != "" && IsRightBower(card, trump):
		return trumpBase + rightBower
	case trump != "" && IsLeftBower(card, trump):
		return trumpBase + leftBower
	case trump != "" && card.Suit == trump:
		return trumpBase + trumpRankOrder[card.Rank]
	case led != "" && card.Suit == led:
		return ledBase + plainRankOrder[card.Rank]
	default:
		return suitIndex[card.Suit]*deadPerSuit + plainRankOrder[card.Rank]
	}
}

// Compare orders two distinct cards within one trick context; the result is
// never zero because every card maps to a distinct weight.
func Compare(a, b Card, led, trump Suit) int {
	return trickValue(a, led, trump) - trickValue(b, led, trump)
}

// NewDeck returns the 24 cards in a fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}

	return deck
}

func shuffledDeck(rng *rand.Rand) []Card {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	return deck
}

func removeCard(hand []Card, card Card) ([]Card, bool) {
	for i, held := range hand {
		if held == card {
			return append(hand[:i:i], hand[i+1:]...), true
		}
	}

	return hand, false
}

func containsCard(hand []Card, card Card) bool {
	for _, held := range hand {
		if held == card {
			return true
		}
	}

	return false
}
