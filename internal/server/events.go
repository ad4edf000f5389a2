package server

import "time"

// Death reasons carried on PLAYER_DIED events.
const (
	DeathReasonKilled   = "KILLED"
	DeathReasonExecuted = "EXECUTED"
)

type gameStartedPayload struct {
	RoomID string `json:"roomId"`
	GameID string `json:"gameId"`
}

type playerDiedPayload struct {
	GameID  string   `json:"gameId"`
	UserIDs []string `json:"userIds"`
	Reason  string   `json:"reason"`
}

type gameEndedPayload struct {
	RoomID     string `json:"roomId"`
	GameID     string `json:"gameId"`
	WinnerTeam string `json:"winnerTeam"`
}

type roomUpdatePayload struct {
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

// PhaseResult summarizes what the finished phase's resolution produced.
type PhaseResult struct {
	Deaths           []string `json:"deaths"`
	ExecutedUserID   string   `json:"executedUserId,omitempty"`
	WinnerTeam       string   `json:"winnerTeam,omitempty"`
	WasSavedByDoctor bool     `json:"wasSavedByDoctor"`
}

// PhaseTransitionResult is the outcome of one transition, returned to the
// manual caller and broadcast as PHASE_CHANGED.
type PhaseTransitionResult struct {
	GameID               string      `json:"gameId"`
	CurrentPhase         string      `json:"currentPhase"`
	DayCount             int         `json:"dayCount"`
	PhaseStartTime       time.Time   `json:"phaseStartTime"`
	PhaseDurationSeconds int         `json:"phaseDurationSeconds"`
	DefendantUserID      string      `json:"defendantUserId,omitempty"`
	Finished             bool        `json:"finished"`
	LastPhaseResult      PhaseResult `json:"lastPhaseResult"`
}
