package euchre

import (
	"math/rand"
	"time"
)

// Tunables - scheduling delays and defaults, injected from config.
type Tunables struct {
	BotMoveDelay time.Duration
	RoundBreak   time.Duration
	TargetScore  int
}

func DefaultTunables() Tunables {
	return Tunables{
		BotMoveDelay: 1500 * time.Millisecond,
		RoundBreak:   8 * time.Second,
		TargetScore:  10,
	}
}

// allowed target scores; anything else falls back to the default
var validTargets = map[int]bool{5: true, 7: true, 10: true, 11: true}

// NewGame seats four players in join order and deals the first round.
// It is total: any ids and any target yield a playable state.
func NewGame(playerIDs [seatCount]string, targetScore int, rng *rand.Rand, now time.Time, tun Tunables) *GameState {
	if !validTargets[targetScore] {
		targetScore = tun.TargetScore
	}

	state := &GameState{
		Seats: playerIDs,
		Teams: map[TeamID]*Team{
			TeamA: {Players: [2]string{playerIDs[0], playerIDs[2]}},
			TeamB: {Players: [2]string{playerIDs[1], playerIDs[3]}},
		},
		TargetScore: targetScore,
		DealerSeat:  0,
		Phase:       PhasePlaying,
	}

	state.Round = state.deal(rng)
	state.scheduleBot(now, tun)

	return state
}

// deal shuffles the 24 cards into four 5-card hands and a 4-card kitty
// whose first card is turned face up. Bidding starts left of the dealer.
func (that *GameState) deal(rng *rand.Rand) *Round {
	deck := shuffledDeck(rng)

	hands := make(map[string][]Card, seatCount)
	for seat, playerID := range that.Seats {
		hands[playerID] = append([]Card(nil), deck[seat*handSize:(seat+1)*handSize]...)
	}

	return &Round{
		Hands:         hands,
		Kitty:         append([]Card(nil), deck[seatCount*handSize:]...),
		Phase:         RoundBidRound1,
		SidelinedSeat: noSeat,
		TurnSeat:      (that.DealerSeat + 1) % seatCount,
		LeadSeat:      (that.DealerSeat + 1) % seatCount,
		TricksWon:     map[TeamID]int{TeamA: 0, TeamB: 0},
	}
}

// nextRound rotates the dealer one seat and replaces the round wholesale.
func (that *GameState) nextRound(rng *rand.Rand, now time.Time, tun Tunables) {
	that.DealerSeat = (that.DealerSeat + 1) % seatCount
	that.Round = that.deal(rng)
	that.PhaseDeadline = 0
	that.scheduleBot(now, tun)
}

// restart resets scores for a rematch with the same seats.
func (that *GameState) restart(rng *rand.Rand, now time.Time, tun Tunables) {
	for _, team := range that.Teams {
		team.Score = 0
	}

	that.Phase = PhasePlaying
	that.WinningTeam = ""
	that.nextRound(rng, now, tun)
}
