// Package bus is the shared pub/sub fabric between server instances. The
// instance that wins a game's transition lock publishes the result here so
// peers can relay it to their own connected clients.
package bus

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logical channels shared by all instances.
const (
	ChannelRoomUpdates = "room-updates"
	ChannelGameChat    = "game-chat"
	ChannelGameEvents  = "game-events"
)

type MessageType string

const (
	MessageRoomUpdate   MessageType = "ROOM_UPDATE"
	MessageChat         MessageType = "CHAT"
	MessageGameStarted  MessageType = "GAME_STARTED"
	MessagePhaseChanged MessageType = "PHASE_CHANGED"
	MessagePlayerDied   MessageType = "PLAYER_DIED"
	MessageGameEnded    MessageType = "GAME_ENDED"
)

// Envelope is the wire format on every channel. Key routes the message to a
// local topic (game id, or game id + chat channel). Origin identifies the
// publishing instance so it can skip its own messages, which it already
// delivered locally.
type Envelope struct {
	Origin string          `json:"origin"`
	Key    string          `json:"key"`
	Type   MessageType     `json:"type"`
	Data   json.RawMessage `json:"data"`
}

type Bus struct {
	client *redis.Client
	origin string
}

func New(client *redis.Client) *Bus {
	return &Bus{
		client: client,
		origin: uuid.NewString(),
	}
}

// Origin is this instance's identity on the bus.
func (b *Bus) Origin() string {
	return b.origin
}

// Publish sends an envelope on a channel. The envelope's origin is stamped
// here.
func (b *Bus) Publish(ctx context.Context, channel string, envelope Envelope) error {
	envelope.Origin = b.origin
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// Run subscribes to all channels and feeds peer messages to handler until
// the context is canceled. Own-origin messages are dropped. Malformed
// messages are logged and skipped.
func (b *Bus) Run(ctx context.Context, handler func(channel string, envelope Envelope)) {
	pubsub := b.client.Subscribe(ctx, ChannelRoomUpdates, ChannelGameChat, ChannelGameEvents)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			var envelope Envelope
			if err := json.Unmarshal([]byte(message.Payload), &envelope); err != nil {
				logrus.WithField("channel", message.Channel).WithError(err).Error("failed to decode bus message")
				continue
			}
			if envelope.Origin == b.origin {
				continue
			}
			handler(message.Channel, envelope)
		}
	}
}
