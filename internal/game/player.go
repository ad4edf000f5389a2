package game

import "time"

// Player is one seat in an 8-player game.
type Player struct {
	ID       string
	GameID   string
	UserID   string
	Role     Role
	IsAlive  bool
	Position int
	DiedAt   time.Time
}

// CanPerformAction checks role, phase and aliveness for an action
// submission. The RESULT-phase defendant exclusion for FINAL_VOTE is
// enforced by the caller, which knows who the defendant is.
func (p Player) CanPerformAction(phase Phase, action ActionType) bool {
	if !p.IsAlive {
		return false
	}
	switch action {
	case ActionVote:
		return phase == PhaseVote
	case ActionMafiaKill:
		return phase == PhaseNight && p.Role == RoleMafia
	case ActionDoctorHeal:
		return phase == PhaseNight && p.Role == RoleDoctor
	case ActionPoliceCheck:
		return phase == PhaseNight && p.Role == RolePolice
	case ActionFinalVote:
		return phase == PhaseResult
	}
	return false
}

// Mafia reports whether the player is on the mafia team.
func (p Player) Mafia() bool {
	return p.Role == RoleMafia
}

// CitizenTeam reports whether the player is on the citizen team (citizen,
// doctor, police).
func (p Player) CitizenTeam() bool {
	return p.Role == RoleCitizen || p.Role == RoleDoctor || p.Role == RolePolice
}

// Die returns the player marked dead. Death is never reversed.
func (p Player) Die(now time.Time) Player {
	out := p
	out.IsAlive = false
	out.DiedAt = now
	return out
}
