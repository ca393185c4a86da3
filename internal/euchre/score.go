package euchre

// Round scoring. The calling team needs 3 of the 5 tricks; falling short
// is a euchre and hands 2 points to the defenders. A march (all 5) pays 2,
// or 4 when the caller went alone.
const (
	pointsMarch      = 2
	pointsMarchAlone = 4
	pointsSimple     = 1
	pointsEuchred    = 2
)

// RoundScore is a pure function of (callingTeam, callerTricks, goingAlone)
// returning the points awarded and the team receiving them. Exactly one
// team scores every round.
func RoundScore(callingTeam TeamID, callerTricks int, goingAlone bool) (int, TeamID) {
	switch {
	case callerTricks == tricksPerRound && goingAlone:
		return pointsMarchAlone, callingTeam
	case callerTricks == tricksPerRound:
		return pointsMarch, callingTeam
	case callerTricks >= 3:
		return pointsSimple, callingTeam
	default:
		return pointsEuchred, opposingTeam(callingTeam)
	}
}
