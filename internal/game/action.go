package game

import "time"

// Action is one ledger entry: a concealed submission by an actor for a
// given day and phase. At most one action exists per
// (game, day, type, actor); a new submission replaces the prior one.
type Action struct {
	ID           string
	GameID       string
	DayCount     int
	Phase        Phase
	Type         ActionType
	ActorUserID  string
	TargetUserID string
	CreatedAt    time.Time
}

// Targets projects the target user ids out of a ledger slice for tallying.
func Targets(actions []Action) []string {
	targets := make([]string, 0, len(actions))
	for _, action := range actions {
		targets = append(targets, action.TargetUserID)
	}
	return targets
}
