package euchre

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
)

func botPlayers(ids ...string) []*entity.Player {
	players := make([]*entity.Player, 0, len(ids))
	for _, id := range ids {
		players = append(players, &entity.Player{ID: id, Bot: true})
	}

	return players
}

func TestScheduledAdvancement(t *testing.T) {
	t.Run("An expired round break deals the next round", func(t *testing.T) {
		// Given: a finished round whose break deadline has passed
		state := biddingState(t)
		state.Round.Phase = RoundOver
		state.PhaseDeadline = testNow.Add(-time.Second).UnixMilli()

		// When: the scheduler looks at the state
		adv, err := ScheduledAdvancement(state, nil, testRNG(), testNow, DefaultTunables())

		// Then: a fresh deal with the dealer rotated, flagged for another
		// scheduler pass
		require.NoError(t, err)
		require.NotNil(t, adv)
		assert.True(t, adv.recurse)
		assert.Equal(t, 1, adv.state.DealerSeat)
		assert.Equal(t, RoundBidRound1, adv.state.Round.Phase)
		assert.Zero(t, adv.state.PhaseDeadline)
		assert.Len(t, adv.state.Round.Hands["p0"], handSize)

		// and the input state is untouched
		assert.Equal(t, RoundOver, state.Round.Phase)
		assert.Equal(t, 0, state.DealerSeat)
	})

	t.Run("Does nothing before the round break expires", func(t *testing.T) {
		state := biddingState(t)
		state.Round.Phase = RoundOver
		state.PhaseDeadline = testNow.Add(time.Second).UnixMilli()

		adv, err := ScheduledAdvancement(state, nil, testRNG(), testNow, DefaultTunables())

		require.NoError(t, err)
		assert.Nil(t, adv)
	})

	t.Run("A due bot takes its move", func(t *testing.T) {
		// Given: a bot on turn whose move delay has elapsed
		state := biddingState(t)
		state.BotDue = testNow.Add(-time.Second).UnixMilli()
		players := botPlayers("p1")

		adv, err := ScheduledAdvancement(state, players, testRNG(), testNow, DefaultTunables())

		// Then: the bot's bid is applied to a copy of the state
		require.NoError(t, err)
		require.NotNil(t, adv)
		assert.True(t, adv.recurse)
		assert.Equal(t, Spades, adv.state.Round.Trump)
		assert.Equal(t, "p1", adv.state.Round.CallerID)
		assert.Empty(t, state.Round.Trump)
	})

	t.Run("Waits for the bot's move delay", func(t *testing.T) {
		state := biddingState(t)
		state.BotDue = testNow.Add(time.Second).UnixMilli()

		adv, err := ScheduledAdvancement(state, botPlayers("p1"), testRNG(), testNow, DefaultTunables())

		require.NoError(t, err)
		assert.Nil(t, adv)
	})

	t.Run("Never moves for a human on turn", func(t *testing.T) {
		// Given: a due deadline but a human holding the turn
		state := biddingState(t)
		state.BotDue = testNow.Add(-time.Second).UnixMilli()
		players := []*entity.Player{{ID: "p1"}}

		adv, err := ScheduledAdvancement(state, players, testRNG(), testNow, DefaultTunables())

		require.NoError(t, err)
		assert.Nil(t, adv)
	})

	t.Run("Does nothing once the game is over", func(t *testing.T) {
		state := biddingState(t)
		state.Phase = PhaseGameOver
		state.BotDue = testNow.Add(-time.Second).UnixMilli()

		adv, err := ScheduledAdvancement(state, botPlayers("p1"), testRNG(), testNow, DefaultTunables())

		require.NoError(t, err)
		assert.Nil(t, adv)
	})

	t.Run("The guard fingerprint pins the snapshot", func(t *testing.T) {
		// Given: an advancement computed from one snapshot
		state := biddingState(t)
		state.BotDue = testNow.Add(-time.Second).UnixMilli()

		adv, err := ScheduledAdvancement(state, botPlayers("p1"), testRNG(), testNow, DefaultTunables())
		require.NoError(t, err)
		require.NotNil(t, adv)

		// Then: the same snapshot still matches
		assert.Equal(t, adv.base, state.fingerprint())

		// and a state someone else moved on does not
		moved := state.clone()
		moved.Round.Passed = append(moved.Round.Passed, "p1")
		moved.Round.TurnSeat = 2
		assert.NotEqual(t, adv.base, moved.fingerprint())
	})
}

func TestReassign(t *testing.T) {
	t.Run("Swaps a bot into every reference to the leaver", func(t *testing.T) {
		// Given: p1 mid-round as caller, going alone, with a pass on record
		state := biddingState(t)
		state.Round.CallerID = "p1"
		state.Round.AloneID = "p1"
		state.Round.Passed = []string{"p2", "p1"}
		hand := state.Round.Hands["p1"]

		// When: p1 leaves and a bot takes over
		Reassign(state, "p1", "bot:xyz")

		// Then: the seat, team, hand and round references all point at the bot
		assert.Equal(t, "bot:xyz", state.Seats[1])
		assert.Equal(t, "bot:xyz", state.Teams[TeamB].Players[0])
		assert.Equal(t, hand, state.Round.Hands["bot:xyz"])
		assert.NotContains(t, state.Round.Hands, "p1")
		assert.Equal(t, "bot:xyz", state.Round.CallerID)
		assert.Equal(t, "bot:xyz", state.Round.AloneID)
		assert.Equal(t, []string{"p2", "bot:xyz"}, state.Round.Passed)
	})

	t.Run("Leaves the trick and scores untouched", func(t *testing.T) {
		state := biddingState(t)
		state.Teams[TeamA].Score = 3
		state.Round.Trick = []TrickPlay{{Seat: 1, Card: c(t, "9-spades")}}

		Reassign(state, "p1", "bot:xyz")

		assert.Equal(t, 3, state.Teams[TeamA].Score)
		assert.Equal(t, []TrickPlay{{Seat: 1, Card: c(t, "9-spades")}}, state.Round.Trick)
	})
}
