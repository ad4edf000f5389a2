package game

import "fmt"

// Phase is one of the five stages of a game day.
type Phase string

const (
	PhaseNight   Phase = "NIGHT"
	PhaseDay     Phase = "DAY"
	PhaseVote    Phase = "VOTE"
	PhaseDefense Phase = "DEFENSE"
	PhaseResult  Phase = "RESULT"
)

func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseNight, PhaseDay, PhaseVote, PhaseDefense, PhaseResult:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Team is the winning side of a finished game. Draw is reserved for wire
// compatibility and never produced by the win evaluator.
type Team string

const (
	TeamMafia   Team = "MAFIA"
	TeamCitizen Team = "CITIZEN"
	TeamDraw    Team = "DRAW"
)

type Role string

const (
	RoleMafia   Role = "MAFIA"
	RoleDoctor  Role = "DOCTOR"
	RolePolice  Role = "POLICE"
	RoleCitizen Role = "CITIZEN"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMafia, RoleDoctor, RolePolice, RoleCitizen:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ActionType identifies a concealed player action submitted during a phase.
type ActionType string

const (
	ActionVote        ActionType = "VOTE"
	ActionMafiaKill   ActionType = "MAFIA_KILL"
	ActionDoctorHeal  ActionType = "DOCTOR_HEAL"
	ActionPoliceCheck ActionType = "POLICE_CHECK"
	ActionFinalVote   ActionType = "FINAL_VOTE"
)

func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionVote, ActionMafiaKill, ActionDoctorHeal, ActionPoliceCheck, ActionFinalVote:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}
