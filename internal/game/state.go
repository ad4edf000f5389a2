package game

import "time"

// State is the authoritative view of one game. Transitions return a new
// value instead of mutating in place; the caller persists the result with a
// conditional write.
type State struct {
	ID                   string
	RoomID               string
	Phase                Phase
	DayCount             int
	PhaseStartTime       time.Time
	PhaseDurationSeconds int
	WinnerTeam           Team
	StartedAt            time.Time
	FinishedAt           time.Time
	DefendantUserID      string
}

// Finished reports whether the game is terminal. A terminal game accepts no
// further actions or transitions.
func (s State) Finished() bool {
	return !s.FinishedAt.IsZero()
}

func (s State) PhaseExpired(now time.Time) bool {
	if s.PhaseStartTime.IsZero() || s.PhaseDurationSeconds <= 0 {
		return false
	}
	return now.After(s.PhaseStartTime.Add(time.Duration(s.PhaseDurationSeconds) * time.Second))
}

func (s State) RemainingSeconds(now time.Time) int64 {
	if s.PhaseStartTime.IsZero() || s.PhaseDurationSeconds <= 0 {
		return 0
	}
	end := s.PhaseStartTime.Add(time.Duration(s.PhaseDurationSeconds) * time.Second)
	remaining := int64(end.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextPhase computes the successor phase. A VOTE round that named a defendant
// proceeds to DEFENSE; one that did not abandons the day and returns to
// NIGHT.
func NextPhase(current Phase, hasDefendant bool) Phase {
	switch current {
	case PhaseNight:
		return PhaseDay
	case PhaseDay:
		return PhaseVote
	case PhaseVote:
		if hasDefendant {
			return PhaseDefense
		}
		return PhaseNight
	case PhaseDefense:
		return PhaseResult
	case PhaseResult:
		return PhaseNight
	}
	return current
}

// Transition returns the game advanced by one phase. defendantUserID is the
// VOTE outcome's defendant and is only consulted when leaving VOTE. Entering
// NIGHT bumps the day and clears the defendant.
func (s State) Transition(durations map[Phase]int, defendantUserID string, now time.Time) State {
	hasDefendant := s.Phase == PhaseVote && defendantUserID != ""
	next := NextPhase(s.Phase, hasDefendant)

	dayCount := s.DayCount
	if next == PhaseNight && (s.Phase == PhaseVote || s.Phase == PhaseResult) {
		dayCount++
	}

	defendant := s.DefendantUserID
	switch {
	case hasDefendant:
		defendant = defendantUserID
	case next == PhaseNight:
		defendant = ""
	}

	out := s
	out.Phase = next
	out.DayCount = dayCount
	out.PhaseStartTime = now
	out.PhaseDurationSeconds = durations[next]
	out.DefendantUserID = defendant
	return out
}

// End returns the game marked terminal with the given winner. The defendant
// is cleared; a trial does not outlive the game.
func (s State) End(winner Team, now time.Time) State {
	out := s
	out.WinnerTeam = winner
	out.FinishedAt = now
	out.DefendantUserID = ""
	return out
}
