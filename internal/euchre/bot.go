package euchre

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
)

// Hand-tuned bidding thresholds. The values are deliberate constants, not
// derived from anything deeper.
const (
	botOrderUpMinTrump       = 3
	botDealerOrderUpMinTrump = 2
	botSuitCallThreshold     = 5
	botAloneMinTrumpBothBow  = 3
	botAloneMinTrumpRightBow = 4
	botRightBowerBonus       = 2
	botLeftBowerBonus        = 1
)

// BotAction decides the bot's move from the same information a client
// would see: public round state plus the bot's own hand. It returns
// game.NoAction when the bot has nothing legal to do.
func BotAction(state *GameState, botID string) (game.Action, error) {
	if state.Phase != PhasePlaying || state.Round == nil {
		return game.NoAction, nil
	}

	seat := state.SeatOf(botID)
	if seat == noSeat {
		return game.NoAction, nil
	}

	round := state.Round

	switch round.Phase {
	case RoundBidRound1:
		if !state.onTurn(botID) {
			return game.NoAction, nil
		}

		return bidRound1(state, botID, seat)
	case RoundBidRound2:
		if !state.onTurn(botID) {
			return game.NoAction, nil
		}

		return bidRound2(state, botID, seat)
	case RoundDealerDiscard:
		if seat != state.DealerSeat {
			return game.NoAction, nil
		}

		return chooseDiscard(round, botID)
	case RoundPlaying:
		if !state.onTurn(botID) || (round.GoingAlone && seat == round.SidelinedSeat) {
			return game.NoAction, nil
		}

		return chooseCard(state, botID, seat)
	default:
		return game.NoAction, nil
	}
}

func bidRound1(state *GameState, botID string, seat int) (game.Action, error) {
	round := state.Round
	hand := round.Hands[botID]
	candidate := round.faceUp().Suit

	trump := len(trumpCards(hand, candidate))
	right := handHasRightBower(hand, candidate)
	left := handHasLeftBower(hand, candidate)
	isDealer := seat == state.DealerSeat

	orderUp := right ||
		(left && trump >= botOrderUpMinTrump) ||
		(trump >= botOrderUpMinTrump && hasTrumpFaceCard(hand, candidate)) ||
		(isDealer && trump >= botDealerOrderUpMinTrump)

	if !orderUp {
		return makeAction(ActionPassTrump, nil)
	}

	return makeAction(ActionCallTrump, CallTrumpPayload{
		PickUp:  true,
		GoAlone: shouldGoAlone(hand, candidate),
	})
}

func bidRound2(state *GameState, botID string, seat int) (game.Action, error) {
	round := state.Round
	hand := round.Hands[botID]
	faceUpSuit := round.faceUp().Suit

	var bestSuit Suit
	bestScore := -1

	for _, suit := range Suits {
		if suit == faceUpSuit {
			continue
		}

		score := len(trumpCards(hand, suit))
		if handHasRightBower(hand, suit) {
			score += botRightBowerBonus
		}
		if handHasLeftBower(hand, suit) {
			score += botLeftBowerBonus
		}

		if score > bestScore {
			bestScore = score
			bestSuit = suit
		}
	}

	stuck := seat == state.DealerSeat && len(round.Passed) == seatCount-1

	if bestScore < botSuitCallThreshold && !stuck {
		return makeAction(ActionPassTrump, nil)
	}

	return makeAction(ActionCallTrump, CallTrumpPayload{
		Suit:    bestSuit,
		GoAlone: shouldGoAlone(hand, bestSuit),
	})
}

// shouldGoAlone - both bowers plus another trump and an off-suit ace, or
// the right bower with three more trump.
func shouldGoAlone(hand []Card, trump Suit) bool {
	count := len(trumpCards(hand, trump))
	right := handHasRightBower(hand, trump)
	left := handHasLeftBower(hand, trump)

	if right && left && count >= botAloneMinTrumpBothBow && hasOffSuitAce(hand, trump) {
		return true
	}

	return right && count >= botAloneMinTrumpRightBow
}

// chooseDiscard - never a bower; the lowest non-trump card, or the lowest
// plain trump when the hand is nothing but trump.
func chooseDiscard(round *Round, botID string) (game.Action, error) {
	hand := round.Hands[botID]
	trump := round.Trump

	var offSuit, plainTrump []Card
	for _, card := range hand {
		switch {
		case IsBower(card, trump):
		case EffectiveSuit(card, trump) == trump:
			plainTrump = append(plainTrump, card)
		default:
			offSuit = append(offSuit, card)
		}
	}

	pool := offSuit
	if len(pool) == 0 {
		pool = plainTrump
	}
	if len(pool) == 0 {
		pool = hand
	}

	return makeAction(ActionDiscard, CardPayload{CardID: lowestCard(pool).ID()})
}

func chooseCard(state *GameState, botID string, seat int) (game.Action, error) {
	round := state.Round
	hand := round.Hands[botID]
	trump := round.Trump

	if len(round.Trick) == 0 {
		return makeAction(ActionPlayCard, CardPayload{CardID: chooseLead(hand, trump).ID()})
	}

	led := EffectiveSuit(round.Trick[0].Card, trump)

	legal := cardsOfSuit(hand, led, trump)
	canFollow := len(legal) > 0
	if !canFollow {
		legal = hand
	}

	best := round.Trick[0]
	for _, play := range round.Trick[1:] {
		if Compare(play.Card, best.Card, led, trump) > 0 {
			best = play
		}
	}

	// partner already winning: keep the win, spend nothing
	if teamForSeat(best.Seat) == teamForSeat(seat) {
		return makeAction(ActionPlayCard, CardPayload{CardID: lowestInContext(legal, led, trump).ID()})
	}

	var winners []Card
	for _, card := range legal {
		if Compare(card, best.Card, led, trump) > 0 {
			winners = append(winners, card)
		}
	}

	if len(winners) > 0 && (canFollow || worthWinning(round.Trick, led, trump)) {
		// the lowest card that still wins
		return makeAction(ActionPlayCard, CardPayload{CardID: lowestInContext(winners, led, trump).ID()})
	}

	return makeAction(ActionPlayCard, CardPayload{CardID: lowestInContext(legal, led, trump).ID()})
}

// chooseLead - right bower, then an off-suit ace, then the highest trump
// when holding two or more, else the lowest card.
func chooseLead(hand []Card, trump Suit) Card {
	for _, card := range hand {
		if IsRightBower(card, trump) {
			return card
		}
	}

	for _, card := range hand {
		if card.Rank == Ace && EffectiveSuit(card, trump) != trump {
			return card
		}
	}

	if trumps := trumpCards(hand, trump); len(trumps) >= 2 {
		return highestInContext(trumps, trump, trump)
	}

	return lowestCard(hand)
}

// worthWinning - a trick worth spending trump on already carries a high
// card or trump.
func worthWinning(trick []TrickPlay, led, trump Suit) bool {
	for _, play := range trick {
		if EffectiveSuit(play.Card, trump) == trump {
			return true
		}

		if plainRankOrder[play.Card.Rank] >= plainRankOrder[King] {
			return true
		}
	}

	return false
}

func trumpCards(hand []Card, trump Suit) []Card {
	var trumps []Card
	for _, card := range hand {
		if EffectiveSuit(card, trump) == trump {
			trumps = append(trumps, card)
		}
	}

	return trumps
}

func cardsOfSuit(hand []Card, suit, trump Suit) []Card {
	var matched []Card
	for _, card := range hand {
		if EffectiveSuit(card, trump) == suit {
			matched = append(matched, card)
		}
	}

	return matched
}

func handHasRightBower(hand []Card, trump Suit) bool {
	return containsCard(hand, Card{Suit: trump, Rank: Jack})
}

func handHasLeftBower(hand []Card, trump Suit) bool {
	return containsCard(hand, Card{Suit: sameColor[trump], Rank: Jack})
}

func hasTrumpFaceCard(hand []Card, trump Suit) bool {
	for _, card := range hand {
		if EffectiveSuit(card, trump) == trump && plainRankOrder[card.Rank] >= plainRankOrder[Jack] {
			return true
		}
	}

	return false
}

func hasOffSuitAce(hand []Card, trump Suit) bool {
	for _, card := range hand {
		if card.Rank == Ace && card.Suit != trump {
			return true
		}
	}

	return false
}

func lowestCard(cards []Card) Card {
	lowest := cards[0]
	for _, card := range cards[1:] {
		if plainRankOrder[card.Rank] < plainRankOrder[lowest.Rank] {
			lowest = card
		}
	}

	return lowest
}

func lowestInContext(cards []Card, led, trump Suit) Card {
	lowest := cards[0]
	for _, card := range cards[1:] {
		if Compare(card, lowest, led, trump) < 0 {
			lowest = card
		}
	}

	return lowest
}

func highestInContext(cards []Card, led, trump Suit) Card {
	highest := cards[0]
	for _, card := range cards[1:] {
		if Compare(card, highest, led, trump) > 0 {
			highest = card
		}
	}

	return highest
}

func makeAction(name string, payload any) (game.Action, error) {
	if payload == nil {
		return game.Action{Name: name}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return game.NoAction, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	return game.Action{Name: name, Payload: raw}, nil
}
