package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JiNookk/mafia-server/internal/game"
)

func TestGameRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	state := game.State{
		ID:                   "g1",
		RoomID:               "r1",
		Phase:                game.PhaseDefense,
		DayCount:             3,
		PhaseStartTime:       now,
		PhaseDurationSeconds: 10,
		WinnerTeam:           game.TeamMafia,
		StartedAt:            now.Add(-time.Hour),
		FinishedAt:           now,
		DefendantUserID:      "u5",
	}

	record := toGameRecord(state)
	require.NotNil(t, record.WinnerTeam)
	require.NotNil(t, record.FinishedAt)
	require.NotNil(t, record.DefendantUserID)
	require.Equal(t, state, toGameState(record))
}

func TestGameRecordNullableColumns(t *testing.T) {
	state := game.State{
		ID:             "g1",
		RoomID:         "r1",
		Phase:          game.PhaseNight,
		DayCount:       1,
		PhaseStartTime: time.Now().UTC(),
		StartedAt:      time.Now().UTC(),
	}

	record := toGameRecord(state)
	require.Nil(t, record.WinnerTeam, "running game must not write a winner")
	require.Nil(t, record.FinishedAt)
	require.Nil(t, record.DefendantUserID)

	back := toGameState(record)
	require.False(t, back.Finished())
	require.Empty(t, back.WinnerTeam)
	require.Empty(t, back.DefendantUserID)
}

func TestPlayerRecordDiedAt(t *testing.T) {
	died := time.Now().UTC()
	record := GamePlayer{ID: "p1", GameID: "g1", UserID: "u1", Role: "MAFIA", IsAlive: false, Position: 2, DiedAt: &died}

	player := toPlayer(record)
	require.False(t, player.IsAlive)
	require.Equal(t, died, player.DiedAt)
	require.True(t, player.Mafia())

	alive := toPlayer(GamePlayer{ID: "p2", GameID: "g1", UserID: "u2", Role: "CITIZEN", IsAlive: true, Position: 3})
	require.True(t, alive.DiedAt.IsZero())
}
