package euchre

import "time"

// ModuleID - the platform identifier of this game.
const ModuleID = "whos-deal"

type TeamID string

const (
	TeamA TeamID = "a"
	TeamB TeamID = "b"
)

type Phase string

const (
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

// RoundPhase - per-deal phases in strict order, with the single branch
// round1 -> (round2 | dealer_discard) -> playing -> round_over.
type RoundPhase string

const (
	RoundBidRound1     RoundPhase = "round1"
	RoundBidRound2     RoundPhase = "round2"
	RoundDealerDiscard RoundPhase = "dealer_discard"
	RoundPlaying       RoundPhase = "playing"
	RoundOver          RoundPhase = "round_over"
)

const (
	seatCount      = 4
	handSize       = 5
	kittySize      = 4
	tricksPerRound = 5
	noSeat         = -1
)

type Team struct {
	Players [2]string `json:"players"`
	Score   int       `json:"score"`
}

type TrickPlay struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// Round is the per-deal mutable state; it is replaced wholesale at the
// start of each deal.
type Round struct {
	Hands map[string][]Card `json:"hands"`
	// Kitty holds the 4 undealt cards; Kitty[0] is the face-up card.
	Kitty []Card     `json:"kitty"`
	Phase RoundPhase `json:"phase"`

	Trump       Suit   `json:"trump,omitempty"`
	CallerID    string `json:"caller_id,omitempty"`
	CallingTeam TeamID `json:"calling_team,omitempty"`

	GoingAlone    bool   `json:"going_alone,omitempty"`
	AloneID       string `json:"alone_id,omitempty"`
	SidelinedSeat int    `json:"sidelined_seat"`

	Discarded bool `json:"discarded,omitempty"`

	TurnSeat int      `json:"turn_seat"`
	Passed   []string `json:"passed,omitempty"`

	Trick        []TrickPlay    `json:"trick,omitempty"`
	LastTrick    []TrickPlay    `json:"last_trick,omitempty"`
	LeadSeat     int            `json:"lead_seat"`
	TricksWon    map[TeamID]int `json:"tricks_won"`
	TricksPlayed int            `json:"tricks_played"`
}

// GameState is one match: fixed seats and teams, the rotating dealer, the
// current round and the two scheduling timestamps the advancement
// scheduler watches. There are no timers anywhere; time lives in the data.
type GameState struct {
	Seats       [seatCount]string `json:"seats"`
	Teams       map[TeamID]*Team  `json:"teams"`
	TargetScore int               `json:"target_score"`
	DealerSeat  int               `json:"dealer_seat"`
	Round       *Round            `json:"round,omitempty"`
	Phase       Phase             `json:"phase"`
	WinningTeam TeamID            `json:"winning_team,omitempty"`

	// PhaseDeadline - unix millis after which a time-boxed phase
	// advances itself (round_over -> next deal).
	PhaseDeadline int64 `json:"phase_deadline,omitempty"`
	// BotDue - unix millis after which the seat on turn, if held by a
	// bot, takes its move.
	BotDue int64 `json:"bot_due,omitempty"`
}

// teamForSeat - seats 0 and 2 are team a, seats 1 and 3 are team b,
// fixed for the life of a match.
func teamForSeat(seat int) TeamID {
	if seat%2 == 0 {
		return TeamA
	}

	return TeamB
}

func opposingTeam(team TeamID) TeamID {
	if team == TeamA {
		return TeamB
	}

	return TeamA
}

func partnerSeat(seat int) int {
	return (seat + 2) % seatCount
}

func (that *GameState) SeatOf(playerID string) int {
	for seat, id := range that.Seats {
		if id == playerID {
			return seat
		}
	}

	return noSeat
}

// nextSeat advances clockwise, skipping the sidelined partner when
// someone is going alone.
func (that *GameState) nextSeat(seat int) int {
	next := (seat + 1) % seatCount
	if that.Round != nil && that.Round.GoingAlone && next == that.Round.SidelinedSeat {
		next = (next + 1) % seatCount
	}

	return next
}

func (that *GameState) leftOfDealer() int {
	return that.nextSeat(that.DealerSeat)
}

func (that *GameState) onTurn(playerID string) bool {
	seat := that.SeatOf(playerID)

	return seat != noSeat && that.Round != nil && seat == that.Round.TurnSeat
}

// trickSize - a trick is complete after 4 plays, or 3 when a sidelined
// partner sits out.
func (that *Round) trickSize() int {
	if that.GoingAlone {
		return seatCount - 1
	}

	return seatCount
}

func (that *Round) faceUp() Card {
	return that.Kitty[0]
}

func (that *Round) hasPassed(playerID string) bool {
	for _, id := range that.Passed {
		if id == playerID {
			return true
		}
	}

	return false
}

func (that *GameState) scheduleBot(now time.Time, tun Tunables) {
	that.BotDue = now.Add(tun.BotMoveDelay).UnixMilli()
}

// clone returns a deep copy; transitions are computed on copies so a
// rejected candidate leaves nothing behind.
func (that *GameState) clone() *GameState {
	next := *that

	next.Teams = make(map[TeamID]*Team, len(that.Teams))
	for id, team := range that.Teams {
		teamCopy := *team
		next.Teams[id] = &teamCopy
	}

	if that.Round != nil {
		round := *that.Round

		round.Hands = make(map[string][]Card, len(that.Round.Hands))
		for playerID, hand := range that.Round.Hands {
			round.Hands[playerID] = append([]Card(nil), hand...)
		}

		round.Kitty = append([]Card(nil), that.Round.Kitty...)
		round.Passed = append([]string(nil), that.Round.Passed...)
		round.Trick = append([]TrickPlay(nil), that.Round.Trick...)
		round.LastTrick = append([]TrickPlay(nil), that.Round.LastTrick...)

		round.TricksWon = make(map[TeamID]int, len(that.Round.TricksWon))
		for team, tricks := range that.Round.TricksWon {
			round.TricksWon[team] = tricks
		}

		next.Round = &round
	}

	return &next
}

// TrickWinner - the seat whose card outranks every other card of the
// trick; ties cannot occur because all 24 cards are distinct.
func TrickWinner(trick []TrickPlay, trump Suit) int {
	led := EffectiveSuit(trick[0].Card, trump)

	best := trick[0]
	for _, play := range trick[1:] {
		if Compare(play.Card, best.Card, led, trump) > 0 {
			best = play
		}
	}

	return best.Seat
}
