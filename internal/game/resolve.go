package game

import "sort"

// Outcome is the result of resolving one phase from the action ledger. The
// resolver never touches persisted state; the caller applies deaths and
// advances the phase.
type Outcome struct {
	Deaths          []string
	ExecutedUserID  string
	DefendantUserID string
	SavedByDoctor   bool
}

// PluralityTarget picks the most-voted target. Ties are broken
// deterministically in favor of the lexicographically smallest user id, so
// every instance resolves the same ledger to the same target.
func PluralityTarget(targets []string) string {
	if len(targets) == 0 {
		return ""
	}
	counts := make(map[string]int, len(targets))
	for _, target := range targets {
		counts[target]++
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	top := make([]string, 0, 1)
	for target, n := range counts {
		if n == max {
			top = append(top, target)
		}
	}
	sort.Strings(top)
	return top[0]
}

// MajorityThreshold is the minimum vote count for a majority among n voters.
func MajorityThreshold(n int) int {
	return n/2 + 1
}

// MajorityTarget returns the candidate holding a strict majority of
// aliveCount voters, or "" when no candidate reaches it.
func MajorityTarget(targets []string, aliveCount int) string {
	if len(targets) == 0 || aliveCount <= 0 {
		return ""
	}
	counts := make(map[string]int, len(targets))
	for _, target := range targets {
		counts[target]++
	}
	threshold := MajorityThreshold(aliveCount)
	winner := ""
	for target, n := range counts {
		if n < threshold {
			continue
		}
		if winner != "" {
			// Two majorities cannot coexist; treat as no result.
			return ""
		}
		winner = target
	}
	return winner
}

// SavedByDoctor reports whether the mafia target survives the night: no
// target chosen, or the doctor healed the same player.
func SavedByDoctor(mafiaTarget, doctorTarget string) bool {
	if mafiaTarget == "" {
		return true
	}
	return mafiaTarget == doctorTarget
}

// ResolveNight resolves a night given the plurality mafia target and the
// doctor's heal target.
func ResolveNight(mafiaTarget, doctorTarget string) Outcome {
	if SavedByDoctor(mafiaTarget, doctorTarget) {
		return Outcome{Deaths: []string{}, SavedByDoctor: mafiaTarget != ""}
	}
	return Outcome{Deaths: []string{mafiaTarget}}
}

// ResolveVote names a trial defendant from the day's VOTE targets, requiring
// a majority of currently-alive players. No majority abandons the day.
func ResolveVote(voteTargets []string, aliveCount int) Outcome {
	return Outcome{
		Deaths:          []string{},
		DefendantUserID: MajorityTarget(voteTargets, aliveCount),
	}
}

// ResolveResult tallies FINAL_VOTE ballots against the defendant. Ballots
// come from alive players other than the defendant; a ballot targeting the
// defendant is an execute vote, anything else is a spare. Execution needs a
// majority of the eligible voters (alive minus the defendant).
func ResolveResult(ballotTargets []string, defendantUserID string, aliveCount int) Outcome {
	if defendantUserID == "" {
		return Outcome{Deaths: []string{}}
	}
	executeVotes := 0
	for _, target := range ballotTargets {
		if target == defendantUserID {
			executeVotes++
		}
	}
	eligible := aliveCount - 1
	if eligible <= 0 || executeVotes < MajorityThreshold(eligible) {
		return Outcome{Deaths: []string{}}
	}
	return Outcome{
		Deaths:         []string{defendantUserID},
		ExecutedUserID: defendantUserID,
	}
}
