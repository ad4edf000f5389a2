package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JiNookk/mafia-server/internal/config"
	"github.com/JiNookk/mafia-server/internal/game"
	"github.com/JiNookk/mafia-server/internal/lock"
)

// Storage is the persisted view of games, players and the action ledger.
// Implemented by db.Store; tests use an in-memory fake.
type Storage interface {
	CreateGame(ctx context.Context, state game.State, players []game.Player) error
	GetGame(ctx context.Context, gameID string) (game.State, error)
	FindActiveGameByRoomID(ctx context.Context, roomID string) (game.State, error)
	FindActiveGames(ctx context.Context) ([]game.State, error)
	UpdateGamePhase(ctx context.Context, state game.State, prevPhase game.Phase, prevDay int) error
	GetPlayer(ctx context.Context, gameID, userID string) (game.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]game.Player, error)
	KillPlayer(ctx context.Context, gameID, userID string, at time.Time) error
	ReplaceAction(ctx context.Context, action game.Action) error
	ActionsFor(ctx context.Context, gameID string, dayCount int, actionType game.ActionType) ([]game.Action, error)
	ActionsByActor(ctx context.Context, gameID, actorUserID string, actionType game.ActionType) ([]game.Action, error)
	AppendEvent(ctx context.Context, gameID, eventType string, payload any) error
}

type Server struct {
	store       Storage
	locker      *lock.Locker
	broadcaster *Broadcaster
	cfg         config.Config
}

func New(store Storage, locker *lock.Locker, broadcaster *Broadcaster, cfg config.Config) *Server {
	return &Server{
		store:       store,
		locker:      locker,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

// Broadcaster exposes the event fan-out for wiring the bus relay in main.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/rooms/:roomID/games/start", s.handleStartGame)
	api.GET("/games/:gameID", s.handleGetGameState)
	api.GET("/games/:gameID/my-role", s.handleGetMyRole)
	api.GET("/games/:gameID/players", s.handleGetPlayers)
	api.POST("/games/:gameID/actions", s.handleRegisterAction)
	api.GET("/games/:gameID/vote-status", s.handleGetVoteStatus)
	api.GET("/games/:gameID/police-checks", s.handleGetPoliceChecks)
	api.POST("/games/:gameID/next-phase", s.handleNextPhase)

	router.GET("/ws/games/:gameID/:channel", s.handleGameWebsocket)

	return router
}
