package euchre

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/apperror"
	"github.com/rocketscienceinc/whosdeal-backend/internal/events"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
)

// Action vocabulary.
const (
	ActionCallTrump = "call-trump"
	ActionPassTrump = "pass-trump"
	ActionDiscard   = "discard"
	ActionPlayCard  = "play-card"
	ActionPlayAgain = "play-again"
)

type CallTrumpPayload struct {
	PickUp  bool `json:"pickUp,omitempty"`
	Suit    Suit `json:"suit,omitempty"`
	GoAlone bool `json:"goAlone,omitempty"`
}

type CardPayload struct {
	CardID string `json:"cardId"`
}

// Apply runs one player action through the state machine, mutating state
// and returning the outbound events. Stale retries of already-applied
// actions return no events and no error; invalid or out-of-turn requests
// fail with a typed apperror error and leave the state untouched.
func Apply(state *GameState, playerID string, action game.Action, rng *rand.Rand, now time.Time, tun Tunables) ([]game.Event, error) {
	if state.Round == nil && action.Name != ActionPlayAgain {
		return nil, apperror.ErrNotYourTurn
	}

	switch action.Name {
	case ActionCallTrump:
		var payload CallTrumpPayload
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return nil, fmt.Errorf("malformed call-trump payload: %w", err)
		}

		return state.callTrump(playerID, payload, now, tun)
	case ActionPassTrump:
		return state.passTrump(playerID, now, tun)
	case ActionDiscard:
		var payload CardPayload
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return nil, fmt.Errorf("malformed discard payload: %w", err)
		}

		return state.discard(playerID, payload.CardID, now, tun)
	case ActionPlayCard:
		var payload CardPayload
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return nil, fmt.Errorf("malformed play-card payload: %w", err)
		}

		return state.playCard(playerID, payload.CardID, now, tun)
	case ActionPlayAgain:
		return state.playAgain(playerID, rng, now, tun)
	default:
		return nil, fmt.Errorf("unknown action %q", action.Name)
	}
}

func (that *GameState) callTrump(playerID string, payload CallTrumpPayload, now time.Time, tun Tunables) ([]game.Event, error) {
	if that.Phase == PhaseGameOver {
		return nil, apperror.ErrGameFinished
	}

	round := that.Round

	if round.Phase != RoundBidRound1 && round.Phase != RoundBidRound2 {
		// trump already decided; a resubmission by the caller is a safe retry
		if round.CallerID == playerID && round.Trump != "" {
			return nil, nil
		}

		return nil, apperror.ErrNotYourTurn
	}

	if !that.onTurn(playerID) {
		return nil, apperror.ErrNotYourTurn
	}

	if round.Phase == RoundBidRound1 {
		return that.orderUp(playerID, payload, now, tun)
	}

	return that.nameTrump(playerID, payload, now, tun)
}

// orderUp - round1: the face-up card's suit becomes trump and the dealer
// takes the card up, moving to the discard phase.
func (that *GameState) orderUp(playerID string, payload CallTrumpPayload, now time.Time, tun Tunables) ([]game.Event, error) {
	round := that.Round
	faceUp := round.faceUp()

	if payload.Suit != "" && payload.Suit != faceUp.Suit {
		return nil, apperror.ErrInvalidSuit
	}

	that.setCaller(playerID, faceUp.Suit, payload.GoAlone)

	dealerID := that.Seats[that.DealerSeat]
	round.Hands[dealerID] = append(round.Hands[dealerID], faceUp)
	round.Phase = RoundDealerDiscard
	round.TurnSeat = that.DealerSeat
	that.scheduleBot(now, tun)

	return []game.Event{
		{Name: events.TrumpAction, Payload: map[string]any{"player_id": playerID, "action": "pick_up", "go_alone": payload.GoAlone}},
		{Name: events.TrumpConfirmed, Payload: map[string]any{"trump": faceUp.Suit, "caller_id": playerID, "going_alone": payload.GoAlone}},
		handEvent(round, dealerID),
	}, nil
}

// nameTrump - round2: any suit other than the face-up card's suit.
func (that *GameState) nameTrump(playerID string, payload CallTrumpPayload, now time.Time, tun Tunables) ([]game.Event, error) {
	round := that.Round

	if !validSuit(payload.Suit) || payload.Suit == round.faceUp().Suit {
		return nil, apperror.ErrInvalidSuit
	}

	that.setCaller(playerID, payload.Suit, payload.GoAlone)

	round.Phase = RoundPlaying
	that.startFirstTrick(now, tun)

	return []game.Event{
		{Name: events.TrumpAction, Payload: map[string]any{"player_id": playerID, "action": "call", "suit": payload.Suit, "go_alone": payload.GoAlone}},
		{Name: events.TrumpConfirmed, Payload: map[string]any{"trump": payload.Suit, "caller_id": playerID, "going_alone": payload.GoAlone}},
		{Name: events.TrickStarted, Payload: map[string]any{"lead_seat": round.LeadSeat}},
	}, nil
}

func (that *GameState) setCaller(playerID string, trump Suit, goAlone bool) {
	round := that.Round
	seat := that.SeatOf(playerID)

	round.Trump = trump
	round.CallerID = playerID
	round.CallingTeam = teamForSeat(seat)

	if goAlone {
		round.GoingAlone = true
		round.AloneID = playerID
		round.SidelinedSeat = partnerSeat(seat)
	}
}

// startFirstTrick - first lead is the seat left of the dealer, skipping
// the sidelined partner when someone is going alone.
func (that *GameState) startFirstTrick(now time.Time, tun Tunables) {
	round := that.Round
	round.LeadSeat = that.nextSeat(that.DealerSeat)
	round.TurnSeat = round.LeadSeat
	that.scheduleBot(now, tun)
}

func (that *GameState) passTrump(playerID string, now time.Time, tun Tunables) ([]game.Event, error) {
	if that.Phase == PhaseGameOver {
		return nil, apperror.ErrGameFinished
	}

	round := that.Round

	// a duplicate pass by a seat that already passed is a safe retry
	if round.hasPassed(playerID) {
		return nil, nil
	}

	if round.Phase != RoundBidRound1 && round.Phase != RoundBidRound2 {
		return nil, apperror.ErrNotYourTurn
	}

	if !that.onTurn(playerID) {
		return nil, apperror.ErrNotYourTurn
	}

	// stick the dealer: the fourth consecutive passer of round2 would be
	// the dealer, who must call instead
	if round.Phase == RoundBidRound2 && that.SeatOf(playerID) == that.DealerSeat && len(round.Passed) == seatCount-1 {
		return nil, apperror.ErrMustCall
	}

	round.Passed = append(round.Passed, playerID)

	evts := []game.Event{
		{Name: events.TrumpAction, Payload: map[string]any{"player_id": playerID, "action": "pass"}},
	}

	if round.Phase == RoundBidRound1 && len(round.Passed) == seatCount {
		// all four passed: second bidding round, left of the dealer again
		round.Phase = RoundBidRound2
		round.Passed = nil
		round.TurnSeat = that.leftOfDealer()
	} else {
		round.TurnSeat = that.nextSeat(round.TurnSeat)
	}

	that.scheduleBot(now, tun)

	return evts, nil
}

func (that *GameState) discard(playerID, cardID string, now time.Time, tun Tunables) ([]game.Event, error) {
	if that.Phase == PhaseGameOver {
		return nil, apperror.ErrGameFinished
	}

	round := that.Round

	if that.SeatOf(playerID) != that.DealerSeat {
		return nil, apperror.ErrNotDealer
	}

	if round.Phase != RoundDealerDiscard {
		// the dealer already discarded: a safe retry
		if round.Discarded {
			return nil, nil
		}

		return nil, apperror.ErrNotYourTurn
	}

	card, err := ParseCardID(cardID)
	if err != nil {
		return nil, apperror.ErrInvalidCard
	}

	hand, ok := removeCard(round.Hands[playerID], card)
	if !ok {
		return nil, apperror.ErrInvalidCard
	}

	round.Hands[playerID] = hand
	round.Discarded = true
	round.Phase = RoundPlaying
	that.startFirstTrick(now, tun)

	return []game.Event{
		{Name: events.DealerDiscarded, Payload: map[string]any{"player_id": playerID}},
		handEvent(round, playerID),
		{Name: events.TrickStarted, Payload: map[string]any{"lead_seat": round.LeadSeat}},
	}, nil
}

func (that *GameState) playCard(playerID, cardID string, now time.Time, tun Tunables) ([]game.Event, error) {
	if that.Phase == PhaseGameOver {
		return nil, apperror.ErrGameFinished
	}

	round := that.Round
	seat := that.SeatOf(playerID)

	if seat == noSeat {
		return nil, apperror.ErrNotYourTurn
	}

	if round.GoingAlone && seat == round.SidelinedSeat {
		return nil, apperror.ErrInactivePartner
	}

	card, err := ParseCardID(cardID)
	if err != nil {
		return nil, apperror.ErrInvalidCard
	}

	// a replay of a card already on the table, or resolved with the last
	// trick, is a safe retry
	if trickHolds(round.Trick, seat, card) || trickHolds(round.LastTrick, seat, card) {
		return nil, nil
	}

	if round.Phase != RoundPlaying || round.TurnSeat != seat {
		return nil, apperror.ErrNotYourTurn
	}

	hand := round.Hands[playerID]
	if !containsCard(hand, card) {
		return nil, apperror.ErrInvalidCard
	}

	if len(round.Trick) > 0 {
		led := EffectiveSuit(round.Trick[0].Card, round.Trump)
		if EffectiveSuit(card, round.Trump) != led && holdsSuit(hand, led, round.Trump) {
			return nil, apperror.ErrMustFollowSuit
		}
	}

	round.Hands[playerID], _ = removeCard(hand, card)
	round.Trick = append(round.Trick, TrickPlay{Seat: seat, Card: card})

	evts := []game.Event{
		{Name: events.CardPlayed, Payload: map[string]any{"seat": seat, "card": card}},
		handEvent(round, playerID),
	}

	if len(round.Trick) < round.trickSize() {
		round.TurnSeat = that.nextSeat(round.TurnSeat)
		that.scheduleBot(now, tun)

		return evts, nil
	}

	return append(evts, that.resolveTrick(now, tun)...), nil
}

// resolveTrick settles a completed trick and, after the fifth one, scores
// the round.
func (that *GameState) resolveTrick(now time.Time, tun Tunables) []game.Event {
	round := that.Round

	winner := TrickWinner(round.Trick, round.Trump)
	winningTeam := teamForSeat(winner)

	round.TricksWon[winningTeam]++
	round.TricksPlayed++
	round.LastTrick = round.Trick
	round.Trick = nil

	evts := []game.Event{
		{Name: events.TrickWon, Payload: map[string]any{"seat": winner, "team": winningTeam}},
	}

	if round.TricksPlayed < tricksPerRound {
		round.LeadSeat = winner
		round.TurnSeat = winner
		that.scheduleBot(now, tun)

		return append(evts, game.Event{Name: events.TrickStarted, Payload: map[string]any{"lead_seat": winner}})
	}

	return append(evts, that.finishRound(now, tun)...)
}

func (that *GameState) finishRound(now time.Time, tun Tunables) []game.Event {
	round := that.Round

	points, scoringTeam := RoundScore(round.CallingTeam, round.TricksWon[round.CallingTeam], round.GoingAlone)
	that.Teams[scoringTeam].Score += points

	round.Phase = RoundOver
	that.BotDue = 0

	evts := []game.Event{
		{Name: events.RoundOver, Payload: map[string]any{
			"points":       points,
			"team":         scoringTeam,
			"calling_team": round.CallingTeam,
			"tricks_won":   round.TricksWon,
			"scores":       that.scores(),
		}},
	}

	if that.Teams[scoringTeam].Score >= that.TargetScore {
		that.Phase = PhaseGameOver
		that.WinningTeam = scoringTeam
		that.PhaseDeadline = 0

		return append(evts, game.Event{Name: events.GameOver, Payload: map[string]any{"team": scoringTeam, "scores": that.scores()}})
	}

	that.PhaseDeadline = now.Add(tun.RoundBreak).UnixMilli()

	return evts
}

func (that *GameState) playAgain(playerID string, rng *rand.Rand, now time.Time, tun Tunables) ([]game.Event, error) {
	if that.SeatOf(playerID) == noSeat {
		return nil, apperror.ErrNotYourTurn
	}

	// a rematch request after someone already restarted is a safe retry
	if that.Phase != PhaseGameOver {
		return nil, nil
	}

	that.restart(rng, now, tun)

	evts := []game.Event{
		{Name: events.GameStarted, Payload: map[string]any{"target_score": that.TargetScore}},
	}

	return append(evts, that.newRoundEvents()...), nil
}

func (that *GameState) scores() map[TeamID]int {
	return map[TeamID]int{
		TeamA: that.Teams[TeamA].Score,
		TeamB: that.Teams[TeamB].Score,
	}
}

func (that *GameState) newRoundEvents() []game.Event {
	round := that.Round

	evts := []game.Event{
		{Name: events.NewRound, Payload: map[string]any{
			"dealer_seat": that.DealerSeat,
			"face_up":     round.faceUp(),
			"turn_seat":   round.TurnSeat,
		}},
	}

	for _, playerID := range that.Seats {
		evts = append(evts, handEvent(round, playerID))
	}

	return evts
}

func handEvent(round *Round, playerID string) game.Event {
	return game.Event{
		Name:     events.HandUpdated,
		PlayerID: playerID,
		Payload:  map[string]any{"hand": round.Hands[playerID]},
	}
}

func trickHolds(trick []TrickPlay, seat int, card Card) bool {
	for _, play := range trick {
		if play.Seat == seat && play.Card == card {
			return true
		}
	}

	return false
}

func holdsSuit(hand []Card, suit, trump Suit) bool {
	for _, card := range hand {
		if EffectiveSuit(card, trump) == suit {
			return true
		}
	}

	return false
}
