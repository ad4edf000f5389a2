package server

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/game"
	"github.com/JiNookk/mafia-server/internal/lock"
)

type startGameRequest struct {
	MemberIDs []string `json:"memberIds" binding:"required"`
}

type registerActionRequest struct {
	ActorUserID  string `json:"actorUserId" binding:"required"`
	Type         string `json:"type" binding:"required,actiontype"`
	TargetUserID string `json:"targetUserId"`
}

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("actiontype", func(fl validator.FieldLevel) bool {
			_, err := game.ParseActionType(fl.Field().String())
			return err == nil
		})
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
	case errors.Is(err, game.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a game participant"})
	case errors.Is(err, game.ErrForbiddenAction):
		c.JSON(http.StatusForbidden, gin.H{"error": "action not allowed"})
	case errors.Is(err, game.ErrGameFinished):
		c.JSON(http.StatusBadRequest, gin.H{"error": "game already finished"})
	case errors.Is(err, game.ErrInvalidPlayerCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "game requires exactly 8 players"})
	case errors.Is(err, game.ErrGameAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": "game already in progress"})
	case errors.Is(err, game.ErrStaleTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "phase already advanced"})
	case errors.Is(err, lock.ErrNotAcquired):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "phase transition in progress"})
	default:
		logrus.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type gameStateResponse struct {
	GameID               string     `json:"gameId"`
	CurrentPhase         string     `json:"currentPhase"`
	DayCount             int        `json:"dayCount"`
	PhaseStartTime       time.Time  `json:"phaseStartTime"`
	PhaseDurationSeconds int        `json:"phaseDurationSeconds"`
	RemainingSeconds     int64      `json:"remainingSeconds"`
	WinnerTeam           string     `json:"winnerTeam,omitempty"`
	DefendantUserID      string     `json:"defendantUserId,omitempty"`
	StartedAt            time.Time  `json:"startedAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
}

func toGameStateResponse(state game.State) gameStateResponse {
	resp := gameStateResponse{
		GameID:               state.ID,
		CurrentPhase:         string(state.Phase),
		DayCount:             state.DayCount,
		PhaseStartTime:       state.PhaseStartTime,
		PhaseDurationSeconds: state.PhaseDurationSeconds,
		RemainingSeconds:     state.RemainingSeconds(time.Now().UTC()),
		WinnerTeam:           string(state.WinnerTeam),
		DefendantUserID:      state.DefendantUserID,
		StartedAt:            state.StartedAt,
	}
	if state.Finished() {
		finished := state.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}

func (s *Server) handleStartGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	state, err := s.StartGame(c.Request.Context(), c.Param("roomID"), req.MemberIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGameStateResponse(state))
}

func (s *Server) handleGetGameState(c *gin.Context) {
	state, err := s.GetGameState(c.Request.Context(), c.Param("gameID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGameStateResponse(state))
}

func (s *Server) handleGetMyRole(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	player, err := s.GetMyRole(c.Request.Context(), c.Param("gameID"), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role":     player.Role,
		"isAlive":  player.IsAlive,
		"position": player.Position,
	})
}

func (s *Server) handleGetPlayers(c *gin.Context) {
	players, err := s.GetPlayers(c.Request.Context(), c.Param("gameID"))
	if err != nil {
		writeError(c, err)
		return
	}
	list := make([]gin.H, 0, len(players))
	for _, player := range players {
		entry := gin.H{
			"userId":   player.UserID,
			"position": player.Position,
			"isAlive":  player.IsAlive,
		}
		if !player.DiedAt.IsZero() {
			entry["diedAt"] = player.DiedAt
		}
		list = append(list, entry)
	}
	c.JSON(http.StatusOK, gin.H{"players": list})
}

func (s *Server) handleRegisterAction(c *gin.Context) {
	var req registerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}
	actionType, err := game.ParseActionType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}
	if err := s.RegisterAction(c.Request.Context(), c.Param("gameID"), req.ActorUserID, actionType, req.TargetUserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetVoteStatus(c *gin.Context) {
	dayCount, err := strconv.Atoi(c.DefaultQuery("dayCount", "0"))
	if err != nil || dayCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dayCount"})
		return
	}
	if dayCount == 0 {
		state, err := s.GetGameState(c.Request.Context(), c.Param("gameID"))
		if err != nil {
			writeError(c, err)
			return
		}
		dayCount = state.DayCount
	}
	status, err := s.GetVoteStatus(c.Request.Context(), c.Param("gameID"), dayCount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleGetPoliceChecks(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	results, err := s.GetPoliceCheckResults(c.Request.Context(), c.Param("gameID"), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleNextPhase(c *gin.Context) {
	result, err := s.NextPhase(c.Request.Context(), c.Param("gameID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
