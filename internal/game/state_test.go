package game

import (
	"testing"
	"time"
)

var testDurations = map[Phase]int{
	PhaseNight:   30,
	PhaseDay:     30,
	PhaseVote:    10,
	PhaseDefense: 10,
	PhaseResult:  10,
}

func TestNextPhase(t *testing.T) {
	cases := []struct {
		current      Phase
		hasDefendant bool
		want         Phase
	}{
		{PhaseNight, false, PhaseDay},
		{PhaseDay, false, PhaseVote},
		{PhaseVote, true, PhaseDefense},
		{PhaseVote, false, PhaseNight},
		{PhaseDefense, false, PhaseResult},
		{PhaseResult, false, PhaseNight},
	}
	for _, tc := range cases {
		if got := NextPhase(tc.current, tc.hasDefendant); got != tc.want {
			t.Fatalf("NextPhase(%s, %v) = %s, want %s", tc.current, tc.hasDefendant, got, tc.want)
		}
	}
}

func TestTransitionDayCount(t *testing.T) {
	now := time.Now().UTC()
	state := State{Phase: PhaseVote, DayCount: 2, PhaseStartTime: now.Add(-time.Minute)}

	next := state.Transition(testDurations, "", now)
	if next.Phase != PhaseNight {
		t.Fatalf("expected NIGHT after voteless day, got %s", next.Phase)
	}
	if next.DayCount != 3 {
		t.Fatalf("expected day 3, got %d", next.DayCount)
	}

	fromResult := State{Phase: PhaseResult, DayCount: 2, DefendantUserID: "u1"}
	next = fromResult.Transition(testDurations, "", now)
	if next.Phase != PhaseNight || next.DayCount != 3 {
		t.Fatalf("expected NIGHT day 3 after result, got %s day %d", next.Phase, next.DayCount)
	}
	if next.DefendantUserID != "" {
		t.Fatalf("defendant should clear entering night, got %q", next.DefendantUserID)
	}
}

func TestTransitionSetsDefendant(t *testing.T) {
	now := time.Now().UTC()
	state := State{Phase: PhaseVote, DayCount: 1}

	next := state.Transition(testDurations, "u5", now)
	if next.Phase != PhaseDefense {
		t.Fatalf("expected DEFENSE, got %s", next.Phase)
	}
	if next.DefendantUserID != "u5" {
		t.Fatalf("expected defendant u5, got %q", next.DefendantUserID)
	}
	if next.DayCount != 1 {
		t.Fatalf("day must not advance into DEFENSE, got %d", next.DayCount)
	}
	if next.PhaseDurationSeconds != testDurations[PhaseDefense] {
		t.Fatalf("expected duration %d, got %d", testDurations[PhaseDefense], next.PhaseDurationSeconds)
	}
}

func TestTransitionDoesNotMutateReceiver(t *testing.T) {
	now := time.Now().UTC()
	state := State{Phase: PhaseNight, DayCount: 1, PhaseStartTime: now.Add(-time.Minute)}

	_ = state.Transition(testDurations, "", now)
	if state.Phase != PhaseNight || state.DayCount != 1 {
		t.Fatalf("receiver mutated: %s day %d", state.Phase, state.DayCount)
	}
}

func TestPhaseExpired(t *testing.T) {
	start := time.Now().UTC()
	state := State{Phase: PhaseNight, PhaseStartTime: start, PhaseDurationSeconds: 30}

	if state.PhaseExpired(start.Add(29 * time.Second)) {
		t.Fatalf("phase expired early")
	}
	if !state.PhaseExpired(start.Add(31 * time.Second)) {
		t.Fatalf("phase should have expired")
	}
}

func TestRemainingSeconds(t *testing.T) {
	start := time.Now().UTC()
	state := State{PhaseStartTime: start, PhaseDurationSeconds: 30}

	if got := state.RemainingSeconds(start.Add(10 * time.Second)); got != 20 {
		t.Fatalf("expected 20 remaining, got %d", got)
	}
	if got := state.RemainingSeconds(start.Add(time.Minute)); got != 0 {
		t.Fatalf("expected 0 remaining after expiry, got %d", got)
	}
}

func TestEnd(t *testing.T) {
	now := time.Now().UTC()
	state := State{Phase: PhaseResult, DayCount: 2, DefendantUserID: "u4"}

	ended := state.End(TeamMafia, now)
	if !ended.Finished() {
		t.Fatalf("ended game should be finished")
	}
	if ended.WinnerTeam != TeamMafia {
		t.Fatalf("expected MAFIA winner, got %s", ended.WinnerTeam)
	}
	if ended.DefendantUserID != "" {
		t.Fatalf("defendant should clear on a terminal game, got %q", ended.DefendantUserID)
	}
	if state.Finished() {
		t.Fatalf("receiver mutated by End")
	}
}
