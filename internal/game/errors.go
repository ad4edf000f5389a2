package game

import "errors"

var (
	// ErrNotFound is returned when a game or player does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGameFinished rejects any mutation on a terminal game.
	ErrGameFinished = errors.New("game already finished")
	// ErrGameAlreadyActive rejects starting a game while the room has an
	// unfinished one.
	ErrGameAlreadyActive = errors.New("game already in progress")
	// ErrInvalidPlayerCount rejects a start without exactly eight members.
	ErrInvalidPlayerCount = errors.New("game requires exactly 8 players")
	// ErrNotParticipant rejects actions from users outside the game.
	ErrNotParticipant = errors.New("not a game participant")
	// ErrForbiddenAction rejects actions failing role, phase or aliveness
	// checks.
	ErrForbiddenAction = errors.New("action not allowed")
	// ErrStaleTransition signals that a conditional phase write lost to a
	// concurrent transition; callers treat it as already-advanced.
	ErrStaleTransition = errors.New("phase already advanced")
)
