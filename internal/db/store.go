package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JiNookk/mafia-server/internal/game"
)

// Store is the gorm-backed implementation of the server storage interface.
// All writes that race across instances are conditional so a stale
// transition is detected instead of clobbered.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{conn: conn}
}

func toGameRecord(state game.State) Game {
	record := Game{
		ID:                   state.ID,
		RoomID:               state.RoomID,
		Phase:                string(state.Phase),
		DayCount:             state.DayCount,
		PhaseStartTime:       state.PhaseStartTime,
		PhaseDurationSeconds: state.PhaseDurationSeconds,
		StartedAt:            state.StartedAt,
	}
	if state.WinnerTeam != "" {
		winner := string(state.WinnerTeam)
		record.WinnerTeam = &winner
	}
	if !state.FinishedAt.IsZero() {
		finished := state.FinishedAt
		record.FinishedAt = &finished
	}
	if state.DefendantUserID != "" {
		defendant := state.DefendantUserID
		record.DefendantUserID = &defendant
	}
	return record
}

func toGameState(record Game) game.State {
	state := game.State{
		ID:                   record.ID,
		RoomID:               record.RoomID,
		Phase:                game.Phase(record.Phase),
		DayCount:             record.DayCount,
		PhaseStartTime:       record.PhaseStartTime,
		PhaseDurationSeconds: record.PhaseDurationSeconds,
		StartedAt:            record.StartedAt,
	}
	if record.WinnerTeam != nil {
		state.WinnerTeam = game.Team(*record.WinnerTeam)
	}
	if record.FinishedAt != nil {
		state.FinishedAt = *record.FinishedAt
	}
	if record.DefendantUserID != nil {
		state.DefendantUserID = *record.DefendantUserID
	}
	return state
}

func toPlayer(record GamePlayer) game.Player {
	player := game.Player{
		ID:       record.ID,
		GameID:   record.GameID,
		UserID:   record.UserID,
		Role:     game.Role(record.Role),
		IsAlive:  record.IsAlive,
		Position: record.Position,
	}
	if record.DiedAt != nil {
		player.DiedAt = *record.DiedAt
	}
	return player
}

func toAction(record GameAction) game.Action {
	return game.Action{
		ID:           record.ID,
		GameID:       record.GameID,
		DayCount:     record.DayCount,
		Phase:        game.Phase(record.Phase),
		Type:         game.ActionType(record.Type),
		ActorUserID:  record.ActorUserID,
		TargetUserID: record.TargetUserID,
		CreatedAt:    record.CreatedAt,
	}
}

// CreateGame inserts the game row and its eight players in one transaction.
func (s *Store) CreateGame(ctx context.Context, state game.State, players []game.Player) error {
	return s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := toGameRecord(state)
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, player := range players {
			playerRecord := GamePlayer{
				ID:       player.ID,
				GameID:   player.GameID,
				UserID:   player.UserID,
				Role:     string(player.Role),
				IsAlive:  player.IsAlive,
				Position: player.Position,
			}
			if err := tx.Create(&playerRecord).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetGame(ctx context.Context, gameID string) (game.State, error) {
	var record Game
	err := s.conn.WithContext(ctx).First(&record, "id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.State{}, game.ErrNotFound
	}
	if err != nil {
		return game.State{}, err
	}
	return toGameState(record), nil
}

// FindActiveGameByRoomID returns the room's unfinished game, if any.
func (s *Store) FindActiveGameByRoomID(ctx context.Context, roomID string) (game.State, error) {
	var record Game
	err := s.conn.WithContext(ctx).
		Where("room_id = ? AND finished_at IS NULL", roomID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.State{}, game.ErrNotFound
	}
	if err != nil {
		return game.State{}, err
	}
	return toGameState(record), nil
}

// FindActiveGames lists every unfinished game for the scheduler scan.
func (s *Store) FindActiveGames(ctx context.Context) ([]game.State, error) {
	var records []Game
	if err := s.conn.WithContext(ctx).
		Where("finished_at IS NULL").
		Find(&records).Error; err != nil {
		return nil, err
	}
	states := make([]game.State, 0, len(records))
	for _, record := range records {
		states = append(states, toGameState(record))
	}
	return states, nil
}

// UpdateGamePhase persists a transitioned game, guarded by the phase and
// day the caller read. Zero rows affected means a peer advanced the game
// first.
func (s *Store) UpdateGamePhase(ctx context.Context, state game.State, prevPhase game.Phase, prevDay int) error {
	record := toGameRecord(state)
	result := s.conn.WithContext(ctx).
		Model(&Game{}).
		Where("id = ? AND phase = ? AND day_count = ? AND finished_at IS NULL",
			state.ID, string(prevPhase), prevDay).
		Updates(map[string]any{
			"phase":                  record.Phase,
			"day_count":              record.DayCount,
			"phase_start_time":       record.PhaseStartTime,
			"phase_duration_seconds": record.PhaseDurationSeconds,
			"winner_team":            record.WinnerTeam,
			"finished_at":            record.FinishedAt,
			"defendant_user_id":      record.DefendantUserID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return game.ErrStaleTransition
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, gameID, userID string) (game.Player, error) {
	var record GamePlayer
	err := s.conn.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.Player{}, game.ErrNotFound
	}
	if err != nil {
		return game.Player{}, err
	}
	return toPlayer(record), nil
}

func (s *Store) ListPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	var records []GamePlayer
	if err := s.conn.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("position ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	players := make([]game.Player, 0, len(records))
	for _, record := range records {
		players = append(players, toPlayer(record))
	}
	return players, nil
}

// KillPlayer marks a player dead. The alive guard makes a retried
// resolution a no-op.
func (s *Store) KillPlayer(ctx context.Context, gameID, userID string, at time.Time) error {
	return s.conn.WithContext(ctx).
		Model(&GamePlayer{}).
		Where("game_id = ? AND user_id = ? AND is_alive = ?", gameID, userID, true).
		Updates(map[string]any{
			"is_alive": false,
			"died_at":  at,
		}).Error
}

// ReplaceAction removes any prior submission for the same
// (game, day, type, actor) and inserts the new one as a single unit.
func (s *Store) ReplaceAction(ctx context.Context, action game.Action) error {
	return s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("game_id = ? AND day_count = ? AND type = ? AND actor_user_id = ?",
				action.GameID, action.DayCount, string(action.Type), action.ActorUserID).
			Delete(&GameAction{}).Error; err != nil {
			return err
		}
		record := GameAction{
			ID:           action.ID,
			GameID:       action.GameID,
			DayCount:     action.DayCount,
			Phase:        string(action.Phase),
			Type:         string(action.Type),
			ActorUserID:  action.ActorUserID,
			TargetUserID: action.TargetUserID,
			CreatedAt:    action.CreatedAt,
		}
		return tx.Create(&record).Error
	})
}

// ActionsFor returns the current ledger entries for one day and type,
// oldest first.
func (s *Store) ActionsFor(ctx context.Context, gameID string, dayCount int, actionType game.ActionType) ([]game.Action, error) {
	var records []GameAction
	if err := s.conn.WithContext(ctx).
		Where("game_id = ? AND day_count = ? AND type = ?", gameID, dayCount, string(actionType)).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	actions := make([]game.Action, 0, len(records))
	for _, record := range records {
		actions = append(actions, toAction(record))
	}
	return actions, nil
}

// ActionsByActor returns every action of one type an actor submitted over
// the whole game, used for the police check history.
func (s *Store) ActionsByActor(ctx context.Context, gameID, actorUserID string, actionType game.ActionType) ([]game.Action, error) {
	var records []GameAction
	if err := s.conn.WithContext(ctx).
		Where("game_id = ? AND actor_user_id = ? AND type = ?", gameID, actorUserID, string(actionType)).
		Order("day_count ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	actions := make([]game.Action, 0, len(records))
	for _, record := range records {
		actions = append(actions, toAction(record))
	}
	return actions, nil
}

// AppendEvent records a domain event for audit. Best effort from the
// caller's point of view.
func (s *Store) AppendEvent(ctx context.Context, gameID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := GameEvent{
		GameID:    gameID,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
		CreatedAt: time.Now().UTC(),
	}
	return s.conn.WithContext(ctx).Create(&record).Error
}
