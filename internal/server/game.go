package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/bus"
	"github.com/JiNookk/mafia-server/internal/game"
)

// StartGame creates a game for a room from exactly eight member ids, deals
// the fixed role multiset in random order, and announces the start.
func (s *Server) StartGame(ctx context.Context, roomID string, memberIDs []string) (game.State, error) {
	if len(memberIDs) != game.PlayerCount {
		return game.State{}, fmt.Errorf("%w: got %d", game.ErrInvalidPlayerCount, len(memberIDs))
	}

	_, err := s.store.FindActiveGameByRoomID(ctx, roomID)
	if err == nil {
		return game.State{}, game.ErrGameAlreadyActive
	}
	if !errors.Is(err, game.ErrNotFound) {
		return game.State{}, err
	}

	now := time.Now().UTC()
	state := game.State{
		ID:                   uuid.NewString(),
		RoomID:               roomID,
		Phase:                game.PhaseNight,
		DayCount:             1,
		PhaseStartTime:       now,
		PhaseDurationSeconds: s.cfg.NightDurationSeconds,
		StartedAt:            now,
	}

	roles := game.ShuffledRoles()
	players := make([]game.Player, 0, len(memberIDs))
	for i, userID := range memberIDs {
		players = append(players, game.Player{
			ID:       uuid.NewString(),
			GameID:   state.ID,
			UserID:   userID,
			Role:     roles[i],
			IsAlive:  true,
			Position: i + 1,
		})
	}

	if err := s.store.CreateGame(ctx, state, players); err != nil {
		return game.State{}, err
	}

	logrus.WithFields(logrus.Fields{"game_id": state.ID, "room_id": roomID}).Info("game started")
	s.appendEvent(ctx, state.ID, string(bus.MessageGameStarted), gameStartedPayload{RoomID: roomID, GameID: state.ID})
	s.broadcaster.PublishGameEvent(ctx, state.ID, bus.MessageGameStarted, gameStartedPayload{RoomID: roomID, GameID: state.ID})
	s.broadcaster.PublishRoomUpdate(ctx, roomID, roomUpdatePayload{RoomID: roomID, Status: "PLAYING"})

	return state, nil
}

// GetGameState returns the authoritative state for polling clients.
func (s *Server) GetGameState(ctx context.Context, gameID string) (game.State, error) {
	return s.store.GetGame(ctx, gameID)
}

// GetMyRole returns the caller's own seat. Roles are never exposed through
// any other query.
func (s *Server) GetMyRole(ctx context.Context, gameID, userID string) (game.Player, error) {
	player, err := s.store.GetPlayer(ctx, gameID, userID)
	if errors.Is(err, game.ErrNotFound) {
		return game.Player{}, game.ErrNotParticipant
	}
	return player, err
}

// GetPlayers lists the roster without roles.
func (s *Server) GetPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	if _, err := s.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.store.ListPlayers(ctx, gameID)
}

// RegisterAction validates an action against the game and the actor's seat,
// then replaces the actor's prior submission of the same type for the day.
// The ledger itself stores blindly; all authorization happens here.
func (s *Server) RegisterAction(ctx context.Context, gameID, actorUserID string, actionType game.ActionType, targetUserID string) error {
	state, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if state.Finished() {
		return game.ErrGameFinished
	}

	player, err := s.store.GetPlayer(ctx, gameID, actorUserID)
	if errors.Is(err, game.ErrNotFound) {
		return game.ErrNotParticipant
	}
	if err != nil {
		return err
	}

	if !player.CanPerformAction(state.Phase, actionType) {
		return game.ErrForbiddenAction
	}
	// The defendant does not vote on their own execution.
	if actionType == game.ActionFinalVote && actorUserID == state.DefendantUserID {
		return game.ErrForbiddenAction
	}

	return s.store.ReplaceAction(ctx, game.Action{
		ID:           uuid.NewString(),
		GameID:       gameID,
		DayCount:     state.DayCount,
		Phase:        state.Phase,
		Type:         actionType,
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		CreatedAt:    time.Now().UTC(),
	})
}

// VoteInfo is one cast vote in the day's tally.
type VoteInfo struct {
	VoterUserID  string `json:"voterUserId"`
	TargetUserID string `json:"targetUserId"`
}

// VoteStatus is the day's public vote standing.
type VoteStatus struct {
	Votes        []VoteInfo     `json:"votes"`
	Tally        map[string]int `json:"tally"`
	TopCandidate string         `json:"topCandidate,omitempty"`
	HasMajority  bool           `json:"hasMajority"`
}

// GetVoteStatus tallies the day's VOTE actions.
func (s *Server) GetVoteStatus(ctx context.Context, gameID string, dayCount int) (VoteStatus, error) {
	if _, err := s.store.GetGame(ctx, gameID); err != nil {
		return VoteStatus{}, err
	}
	actions, err := s.store.ActionsFor(ctx, gameID, dayCount, game.ActionVote)
	if err != nil {
		return VoteStatus{}, err
	}
	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return VoteStatus{}, err
	}
	aliveCount := 0
	for _, player := range players {
		if player.IsAlive {
			aliveCount++
		}
	}

	status := VoteStatus{
		Votes: make([]VoteInfo, 0, len(actions)),
		Tally: make(map[string]int),
	}
	for _, action := range actions {
		status.Votes = append(status.Votes, VoteInfo{
			VoterUserID:  action.ActorUserID,
			TargetUserID: action.TargetUserID,
		})
		status.Tally[action.TargetUserID]++
	}
	targets := game.Targets(actions)
	status.TopCandidate = game.PluralityTarget(targets)
	status.HasMajority = game.MajorityTarget(targets, aliveCount) != ""
	return status, nil
}

// PoliceCheckResult is one past investigation, visible only to the police
// player who made it.
type PoliceCheckResult struct {
	TargetUserID string `json:"targetUserId"`
	TargetRole   string `json:"targetRole"`
	DayCount     int    `json:"dayCount"`
}

// GetPoliceCheckResults returns the police player's investigation history.
func (s *Server) GetPoliceCheckResults(ctx context.Context, gameID, userID string) ([]PoliceCheckResult, error) {
	player, err := s.store.GetPlayer(ctx, gameID, userID)
	if errors.Is(err, game.ErrNotFound) {
		return nil, game.ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	if player.Role != game.RolePolice {
		return nil, game.ErrForbiddenAction
	}

	checks, err := s.store.ActionsByActor(ctx, gameID, userID, game.ActionPoliceCheck)
	if err != nil {
		return nil, err
	}
	results := make([]PoliceCheckResult, 0, len(checks))
	for _, check := range checks {
		target, err := s.store.GetPlayer(ctx, gameID, check.TargetUserID)
		if err != nil {
			continue
		}
		results = append(results, PoliceCheckResult{
			TargetUserID: target.UserID,
			TargetRole:   string(target.Role),
			DayCount:     check.DayCount,
		})
	}
	return results, nil
}

// appendEvent writes to the audit log; failures are logged, never fatal.
func (s *Server) appendEvent(ctx context.Context, gameID, eventType string, payload any) {
	if err := s.store.AppendEvent(ctx, gameID, eventType, payload); err != nil {
		logrus.WithFields(logrus.Fields{"game_id": gameID, "type": eventType}).WithError(err).Error("failed to append game event")
	}
}
