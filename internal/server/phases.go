package server

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/bus"
	"github.com/JiNookk/mafia-server/internal/game"
)

// errPhaseNotDue signals that a locked advance found the phase no longer
// expired: a peer instance already transitioned it.
var errPhaseNotDue = errors.New("phase not due")

func phaseLockKey(gameID string) string {
	return "phase:transition:" + gameID
}

// NextPhase resolves the current phase and advances the game, under the
// cluster-wide transition lock. Manual callers force the advance regardless
// of the timer.
func (s *Server) NextPhase(ctx context.Context, gameID string) (PhaseTransitionResult, error) {
	var result PhaseTransitionResult
	err := s.locker.WithLock(ctx, phaseLockKey(gameID), func(ctx context.Context) error {
		var err error
		result, err = s.advance(ctx, gameID, false)
		return err
	})
	return result, err
}

// advanceExpired is the scheduler's entry: inside the lock the expiry is
// re-checked against a fresh read, so a transition a peer already applied
// becomes a no-op.
func (s *Server) advanceExpired(ctx context.Context, gameID string) error {
	err := s.locker.WithLock(ctx, phaseLockKey(gameID), func(ctx context.Context) error {
		_, err := s.advance(ctx, gameID, true)
		return err
	})
	if errors.Is(err, errPhaseNotDue) {
		return nil
	}
	return err
}

func (s *Server) advance(ctx context.Context, gameID string, onlyIfExpired bool) (PhaseTransitionResult, error) {
	state, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return PhaseTransitionResult{}, err
	}
	if state.Finished() {
		return PhaseTransitionResult{}, game.ErrGameFinished
	}

	now := time.Now().UTC()
	if onlyIfExpired && !state.PhaseExpired(now) {
		return PhaseTransitionResult{}, errPhaseNotDue
	}

	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return PhaseTransitionResult{}, err
	}

	outcome, err := s.resolvePhase(ctx, state, players)
	if err != nil {
		return PhaseTransitionResult{}, err
	}

	if err := s.applyDeaths(ctx, state, outcome, now); err != nil {
		return PhaseTransitionResult{}, err
	}

	aliveMafia, aliveCitizens := countAliveAfter(players, outcome.Deaths)

	result := PhaseTransitionResult{
		GameID: gameID,
		LastPhaseResult: PhaseResult{
			Deaths:           outcome.Deaths,
			ExecutedUserID:   outcome.ExecutedUserID,
			WasSavedByDoctor: outcome.SavedByDoctor,
		},
	}

	if winner, won := game.DetermineWinner(aliveMafia, aliveCitizens); won {
		ended := state.End(winner, now)
		if err := s.store.UpdateGamePhase(ctx, ended, state.Phase, state.DayCount); err != nil {
			return PhaseTransitionResult{}, err
		}
		fillTransitionResult(&result, ended)
		result.LastPhaseResult.WinnerTeam = string(winner)

		logrus.WithFields(logrus.Fields{"game_id": gameID, "winner": winner}).Info("game ended")
		payload := gameEndedPayload{RoomID: state.RoomID, GameID: gameID, WinnerTeam: string(winner)}
		s.appendEvent(ctx, gameID, string(bus.MessageGameEnded), payload)
		s.broadcaster.PublishGameEvent(ctx, gameID, bus.MessageGameEnded, payload)
		s.broadcaster.PublishRoomUpdate(ctx, state.RoomID, roomUpdatePayload{RoomID: state.RoomID, Status: "WAITING"})
		return result, nil
	}

	next := state.Transition(s.cfg.PhaseDurations(), outcome.DefendantUserID, now)
	if err := s.store.UpdateGamePhase(ctx, next, state.Phase, state.DayCount); err != nil {
		return PhaseTransitionResult{}, err
	}
	fillTransitionResult(&result, next)

	logrus.WithFields(logrus.Fields{
		"game_id": gameID,
		"from":    state.Phase,
		"to":      next.Phase,
		"day":     next.DayCount,
	}).Info("phase advanced")
	s.appendEvent(ctx, gameID, string(bus.MessagePhaseChanged), result)
	s.broadcaster.PublishGameEvent(ctx, gameID, bus.MessagePhaseChanged, result)
	return result, nil
}

// resolvePhase computes the expiring phase's outcome from the ledger and
// the alive snapshot. Pure aside from ledger reads.
func (s *Server) resolvePhase(ctx context.Context, state game.State, players []game.Player) (game.Outcome, error) {
	aliveCount := 0
	alive := make(map[string]bool, len(players))
	for _, player := range players {
		if player.IsAlive {
			aliveCount++
			alive[player.UserID] = true
		}
	}

	switch state.Phase {
	case game.PhaseNight:
		kills, err := s.store.ActionsFor(ctx, state.ID, state.DayCount, game.ActionMafiaKill)
		if err != nil {
			return game.Outcome{}, err
		}
		heals, err := s.store.ActionsFor(ctx, state.ID, state.DayCount, game.ActionDoctorHeal)
		if err != nil {
			return game.Outcome{}, err
		}
		doctorTarget := ""
		if len(heals) > 0 {
			doctorTarget = heals[0].TargetUserID
		}
		return game.ResolveNight(game.PluralityTarget(game.Targets(kills)), doctorTarget), nil

	case game.PhaseVote:
		votes, err := s.store.ActionsFor(ctx, state.ID, state.DayCount, game.ActionVote)
		if err != nil {
			return game.Outcome{}, err
		}
		return game.ResolveVote(game.Targets(votes), aliveCount), nil

	case game.PhaseResult:
		ballots, err := s.store.ActionsFor(ctx, state.ID, state.DayCount, game.ActionFinalVote)
		if err != nil {
			return game.Outcome{}, err
		}
		eligible := make([]string, 0, len(ballots))
		for _, ballot := range ballots {
			if alive[ballot.ActorUserID] && ballot.ActorUserID != state.DefendantUserID {
				eligible = append(eligible, ballot.TargetUserID)
			}
		}
		return game.ResolveResult(eligible, state.DefendantUserID, aliveCount), nil
	}

	// DAY and DEFENSE are deliberation windows with nothing to resolve.
	return game.Outcome{Deaths: []string{}}, nil
}

func (s *Server) applyDeaths(ctx context.Context, state game.State, outcome game.Outcome, now time.Time) error {
	if len(outcome.Deaths) == 0 {
		return nil
	}
	for _, userID := range outcome.Deaths {
		if err := s.store.KillPlayer(ctx, state.ID, userID, now); err != nil {
			return err
		}
	}
	reason := DeathReasonKilled
	if outcome.ExecutedUserID != "" {
		reason = DeathReasonExecuted
	}
	payload := playerDiedPayload{GameID: state.ID, UserIDs: outcome.Deaths, Reason: reason}
	s.appendEvent(ctx, state.ID, string(bus.MessagePlayerDied), payload)
	s.broadcaster.PublishGameEvent(ctx, state.ID, bus.MessagePlayerDied, payload)
	return nil
}

func countAliveAfter(players []game.Player, deaths []string) (aliveMafia, aliveCitizens int) {
	dead := make(map[string]bool, len(deaths))
	for _, userID := range deaths {
		dead[userID] = true
	}
	for _, player := range players {
		if !player.IsAlive || dead[player.UserID] {
			continue
		}
		if player.Mafia() {
			aliveMafia++
		} else {
			aliveCitizens++
		}
	}
	return aliveMafia, aliveCitizens
}

func fillTransitionResult(result *PhaseTransitionResult, state game.State) {
	result.CurrentPhase = string(state.Phase)
	result.DayCount = state.DayCount
	result.PhaseStartTime = state.PhaseStartTime
	result.PhaseDurationSeconds = state.PhaseDurationSeconds
	result.DefendantUserID = state.DefendantUserID
	result.Finished = state.Finished()
}
