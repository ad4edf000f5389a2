package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID                   string       `gorm:"primaryKey;size:36"`
	RoomID               string       `gorm:"size:36;index;not null"`
	Phase                string       `gorm:"size:16;not null"`
	DayCount             int          `gorm:"not null;default:1"`
	PhaseStartTime       time.Time    `gorm:"not null"`
	PhaseDurationSeconds int          `gorm:"not null"`
	WinnerTeam           *string      `gorm:"size:16"`
	StartedAt            time.Time    `gorm:"not null"`
	FinishedAt           *time.Time   `gorm:"index"`
	DefendantUserID      *string      `gorm:"size:36"`
	Players              []GamePlayer `gorm:"foreignKey:GameID"`
	Actions              []GameAction `gorm:"foreignKey:GameID"`
	Events               []GameEvent  `gorm:"foreignKey:GameID"`
}

type GamePlayer struct {
	ID       string     `gorm:"primaryKey;size:36"`
	GameID   string     `gorm:"size:36;not null;uniqueIndex:idx_game_players_game_user"`
	UserID   string     `gorm:"size:36;not null;uniqueIndex:idx_game_players_game_user"`
	Role     string     `gorm:"size:16;not null"`
	IsAlive  bool       `gorm:"not null;default:true"`
	Position int        `gorm:"not null"`
	DiedAt   *time.Time
}

type GameAction struct {
	ID           string    `gorm:"primaryKey;size:36"`
	GameID       string    `gorm:"size:36;not null;uniqueIndex:idx_game_actions_replace"`
	DayCount     int       `gorm:"not null;uniqueIndex:idx_game_actions_replace"`
	Phase        string    `gorm:"size:32;not null"`
	Type         string    `gorm:"size:32;not null;uniqueIndex:idx_game_actions_replace"`
	ActorUserID  string    `gorm:"size:36;not null;uniqueIndex:idx_game_actions_replace"`
	TargetUserID string    `gorm:"size:36;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type GameEvent struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"size:36;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
