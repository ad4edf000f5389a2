package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/game"
)

const (
	channelEvents = "events"
	channelAll    = "all"
	channelMafia  = "mafia"
	channelDead   = "dead"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// chatMessage is an inbound chat frame from a websocket client.
type chatMessage struct {
	Content string `json:"content"`
}

type chatPayload struct {
	GameID       string    `json:"gameId"`
	Channel      string    `json:"channel"`
	SenderUserID string    `json:"senderUserId"`
	Content      string    `json:"content"`
	SentAt       time.Time `json:"sentAt"`
}

// handleGameWebsocket serves both the game event stream and the chat
// channels under one route. The channel segment picks the topic: "events"
// streams phase and death notifications; "all", "mafia" and "dead" are
// bidirectional chat rooms gated on the caller's seat.
func (s *Server) handleGameWebsocket(c *gin.Context) {
	gameID := c.Param("gameID")
	channel := c.Param("channel")

	if _, err := s.store.GetGame(c.Request.Context(), gameID); err != nil {
		writeError(c, err)
		return
	}

	switch channel {
	case channelEvents:
		s.serveEventStream(c, gameID)
	case channelAll, channelMafia, channelDead:
		s.serveChatChannel(c, gameID, channel)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
	}
}

func (s *Server) serveEventStream(c *gin.Context, gameID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	events, cancel := s.broadcaster.SubscribeGameEvents(gameID)
	go writePump(conn, events)

	// Event streams are one-way; the read loop only notices the close.
	defer cancel()
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) serveChatChannel(c *gin.Context, gameID, channel string) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	player, err := s.store.GetPlayer(c.Request.Context(), gameID, userID)
	if errors.Is(err, game.ErrNotFound) {
		writeError(c, game.ErrNotParticipant)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if !chatChannelAllowed(player, channel) {
		writeError(c, game.ErrForbiddenAction)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	messages, cancel := s.broadcaster.SubscribeGameChat(gameID, channel)
	go writePump(conn, messages)

	defer cancel()
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg chatMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Content == "" {
			continue
		}
		s.broadcaster.PublishGameChat(c.Request.Context(), gameID, channel, chatPayload{
			GameID:       gameID,
			Channel:      channel,
			SenderUserID: userID,
			Content:      msg.Content,
			SentAt:       time.Now().UTC(),
		})
	}
}

// chatChannelAllowed gates the restricted chat rooms: mafia chat is for
// living mafia, dead chat is for eliminated players, and the open channel
// takes everyone.
func chatChannelAllowed(player game.Player, channel string) bool {
	switch channel {
	case channelMafia:
		return player.Mafia() && player.IsAlive
	case channelDead:
		return !player.IsAlive
	default:
		return true
	}
}

func writePump(conn *websocket.Conn, messages <-chan []byte) {
	for frame := range messages {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			conn.Close()
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}
