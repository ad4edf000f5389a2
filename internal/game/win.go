package game

// DetermineWinner evaluates the win condition over live role counts. The
// second return is false while the game continues. Mafia win strictly when
// they outnumber the citizen team; equal counts play on.
func DetermineWinner(aliveMafia, aliveCitizens int) (Team, bool) {
	if aliveMafia == 0 {
		return TeamCitizen, true
	}
	if aliveMafia > aliveCitizens {
		return TeamMafia, true
	}
	return "", false
}
