package events

// Outbound event names, room-wide unless delivered to a private player
// channel (HandUpdated).
const (
	GameStarted     = "game-started"
	TeamsUpdated    = "teams-updated"
	SettingsUpdated = "settings-updated"
	TrumpAction     = "trump-action"
	TrumpConfirmed  = "trump-confirmed"
	DealerDiscarded = "dealer-discarded"
	TrickStarted    = "trick-started"
	CardPlayed      = "card-played"
	TrickWon        = "trick-won"
	RoundOver       = "round-over"
	NewRound        = "new-round"
	GameOver        = "game-over"
	HandUpdated     = "hand-updated"
)
