package euchre

// ViewState is what one player is allowed to see: everything public plus
// their own hand. Other hands and the kitty never leave the server.
type ViewState struct {
	Seats       [seatCount]string `json:"seats"`
	Teams       map[TeamID]*Team  `json:"teams"`
	TargetScore int               `json:"target_score"`
	DealerSeat  int               `json:"dealer_seat"`
	Phase       Phase             `json:"phase"`
	WinningTeam TeamID            `json:"winning_team,omitempty"`
	Round       *ViewRound        `json:"round,omitempty"`
}

type ViewRound struct {
	Hand      []Card         `json:"hand"`
	HandSizes map[string]int `json:"hand_sizes"`
	FaceUp    *Card          `json:"face_up,omitempty"`

	Phase       RoundPhase `json:"phase"`
	Trump       Suit       `json:"trump,omitempty"`
	CallerID    string     `json:"caller_id,omitempty"`
	CallingTeam TeamID     `json:"calling_team,omitempty"`

	GoingAlone    bool   `json:"going_alone,omitempty"`
	AloneID       string `json:"alone_id,omitempty"`
	SidelinedSeat int    `json:"sidelined_seat"`

	TurnSeat int      `json:"turn_seat"`
	Passed   []string `json:"passed,omitempty"`

	Trick        []TrickPlay    `json:"trick,omitempty"`
	LastTrick    []TrickPlay    `json:"last_trick,omitempty"`
	LeadSeat     int            `json:"lead_seat"`
	TricksWon    map[TeamID]int `json:"tricks_won"`
	TricksPlayed int            `json:"tricks_played"`
}

// Sanitize builds the viewer-relative state for one player.
func Sanitize(state *GameState, viewerID string) *ViewState {
	view := &ViewState{
		Seats:       state.Seats,
		Teams:       state.Teams,
		TargetScore: state.TargetScore,
		DealerSeat:  state.DealerSeat,
		Phase:       state.Phase,
		WinningTeam: state.WinningTeam,
	}

	round := state.Round
	if round == nil {
		return view
	}

	handSizes := make(map[string]int, seatCount)
	for playerID, hand := range round.Hands {
		handSizes[playerID] = len(hand)
	}

	viewRound := &ViewRound{
		Hand:          round.Hands[viewerID],
		HandSizes:     handSizes,
		Phase:         round.Phase,
		Trump:         round.Trump,
		CallerID:      round.CallerID,
		CallingTeam:   round.CallingTeam,
		GoingAlone:    round.GoingAlone,
		AloneID:       round.AloneID,
		SidelinedSeat: round.SidelinedSeat,
		TurnSeat:      round.TurnSeat,
		Passed:        round.Passed,
		Trick:         round.Trick,
		LastTrick:     round.LastTrick,
		LeadSeat:      round.LeadSeat,
		TricksWon:     round.TricksWon,
		TricksPlayed:  round.TricksPlayed,
	}

	// the face-up card is public knowledge during bidding only
	if round.Phase == RoundBidRound1 || round.Phase == RoundBidRound2 {
		faceUp := round.faceUp()
		viewRound.FaceUp = &faceUp
	}

	view.Round = viewRound

	return view
}
