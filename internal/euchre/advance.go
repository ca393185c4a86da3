package euchre

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
)

// fingerprint captures the part of the state a scheduled transition was
// computed against. The advancement guard compares fingerprints so a
// transition computed from a stale snapshot is discarded instead of
// clobbering newer player input.
type fingerprint struct {
	roundPhase   RoundPhase
	turnSeat     int
	tricksPlayed int
	trickLen     int
	passedLen    int
	discarded    bool
	dealerSeat   int
}

func (that *GameState) fingerprint() fingerprint {
	fp := fingerprint{dealerSeat: that.DealerSeat}

	if that.Round != nil {
		fp.roundPhase = that.Round.Phase
		fp.turnSeat = that.Round.TurnSeat
		fp.tricksPlayed = that.Round.TricksPlayed
		fp.trickLen = len(that.Round.Trick)
		fp.passedLen = len(that.Round.Passed)
		fp.discarded = that.Round.Discarded
	}

	return fp
}

// advancement is the engine-level counterpart of game.Advancement, before
// the module adapter serializes the candidate state.
type advancement struct {
	state   *GameState
	base    fingerprint
	events  []game.Event
	recurse bool
}

// ScheduledAdvancement inspects the two stored deadlines and synthesizes
// the due transition, if any: a round break expiring into the next deal,
// or a bot whose move has come due. The state passed in is not modified;
// the candidate is built on a copy supplied by the caller.
func ScheduledAdvancement(state *GameState, players []*entity.Player, rng *rand.Rand, now time.Time, tun Tunables) (*advancement, error) {
	if state.Phase != PhasePlaying || state.Round == nil {
		return nil, nil
	}

	base := state.fingerprint()

	if state.Round.Phase == RoundOver {
		if state.PhaseDeadline == 0 || now.UnixMilli() < state.PhaseDeadline {
			return nil, nil
		}

		next := state.clone()
		next.nextRound(rng, now, tun)

		return &advancement{
			state:   next,
			base:    base,
			events:  next.newRoundEvents(),
			recurse: true,
		}, nil
	}

	if state.BotDue == 0 || now.UnixMilli() < state.BotDue {
		return nil, nil
	}

	actorID := state.Seats[state.Round.TurnSeat]
	if !isBot(players, actorID) {
		return nil, nil
	}

	action, err := BotAction(state, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute bot action: %w", err)
	}

	if action.IsZero() {
		return nil, nil
	}

	next := state.clone()

	evts, err := Apply(next, actorID, action, rng, now, tun)
	if err != nil {
		return nil, fmt.Errorf("bot action %s rejected: %w", action.Name, err)
	}

	return &advancement{
		state:   next,
		base:    base,
		events:  evts,
		recurse: true,
	}, nil
}

// Reassign substitutes a bot for every reference to a departing player.
// Turn order, scores and the in-flight trick are untouched: the trick
// records seats, and the seat keeps its place.
func Reassign(state *GameState, departingID, botID string) {
	for seat, id := range state.Seats {
		if id == departingID {
			state.Seats[seat] = botID
		}
	}

	for _, team := range state.Teams {
		for i, id := range team.Players {
			if id == departingID {
				team.Players[i] = botID
			}
		}
	}

	round := state.Round
	if round == nil {
		return
	}

	if hand, ok := round.Hands[departingID]; ok {
		round.Hands[botID] = hand
		delete(round.Hands, departingID)
	}

	if round.CallerID == departingID {
		round.CallerID = botID
	}

	if round.AloneID == departingID {
		round.AloneID = botID
	}

	for i, id := range round.Passed {
		if id == departingID {
			round.Passed[i] = botID
		}
	}
}

func isBot(players []*entity.Player, id string) bool {
	for _, player := range players {
		if player.ID == id {
			return player.IsBot()
		}
	}

	return false
}
