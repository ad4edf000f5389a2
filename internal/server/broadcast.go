package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/bus"
)

// EventBus is the cross-instance half of the broadcaster. Implemented by
// bus.Bus; tests use an in-memory fake.
type EventBus interface {
	Publish(ctx context.Context, channel string, envelope bus.Envelope) error
}

// subscriberBuffer bounds a slow client; overflowing messages are dropped
// rather than blocking the broadcast path.
const subscriberBuffer = 16

type topic struct {
	subscribers map[chan []byte]struct{}
}

// topicHub is the per-instance registry of live subscription topics. A topic
// is created on first subscribe and torn down when its last subscriber
// cancels.
type topicHub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

func newTopicHub() *topicHub {
	return &topicHub{topics: make(map[string]*topic)}
}

// Subscribe returns a receive channel for the topic and a cancel func. The
// cancel is idempotent and closes the channel.
func (h *topicHub) Subscribe(key string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	entry := h.topics[key]
	if entry == nil {
		entry = &topic{subscribers: make(map[chan []byte]struct{})}
		h.topics[key] = entry
	}
	entry.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if entry, ok := h.topics[key]; ok {
				delete(entry.subscribers, ch)
				if len(entry.subscribers) == 0 {
					delete(h.topics, key)
				}
			}
			// Closed under the lock so Publish never sends on a closed
			// channel.
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish fans payload out to the topic's subscribers, if the topic exists.
// Slow subscribers lose messages instead of blocking the caller. Sends
// happen under the lock; they are non-blocking, and this is what keeps a
// concurrent cancel from closing a channel mid-send.
func (h *topicHub) Publish(key string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := h.topics[key]
	if entry == nil {
		return
	}
	for ch := range entry.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// SubscriberCount reports live subscribers on a topic.
func (h *topicHub) SubscriberCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := h.topics[key]
	if entry == nil {
		return 0
	}
	return len(entry.subscribers)
}

// clientMessage is the JSON frame delivered to websocket subscribers.
type clientMessage struct {
	Type bus.MessageType `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcaster delivers domain events to locally-held client streams and
// republishes them on the shared bus so peer instances can relay to their
// own clients. Bus failures are logged, never propagated: clients recover
// via polling.
type Broadcaster struct {
	hub *topicHub
	bus EventBus
	log *logrus.Entry
}

func NewBroadcaster(eventBus EventBus) *Broadcaster {
	return &Broadcaster{
		hub: newTopicHub(),
		bus: eventBus,
		log: logrus.WithField("component", "broadcaster"),
	}
}

func chatTopicKey(gameID, channel string) string {
	return gameID + ":" + channel
}

func roomTopicKey(roomID string) string {
	return "room:" + roomID
}

// SubscribeGameEvents attaches a local stream to a game's event topic.
func (b *Broadcaster) SubscribeGameEvents(gameID string) (<-chan []byte, func()) {
	return b.hub.Subscribe(gameID)
}

// SubscribeGameChat attaches a local stream to one of a game's chat
// channels (all, mafia, dead).
func (b *Broadcaster) SubscribeGameChat(gameID, channel string) (<-chan []byte, func()) {
	return b.hub.Subscribe(chatTopicKey(gameID, channel))
}

func (b *Broadcaster) publish(ctx context.Context, channel, key string, msgType bus.MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		b.log.WithError(err).Error("failed to encode event payload")
		return
	}
	frame, err := json.Marshal(clientMessage{Type: msgType, Data: raw})
	if err != nil {
		b.log.WithError(err).Error("failed to encode event frame")
		return
	}
	b.hub.Publish(key, frame)
	if err := b.bus.Publish(ctx, channel, bus.Envelope{Key: key, Type: msgType, Data: raw}); err != nil {
		b.log.WithFields(logrus.Fields{"channel": channel, "key": key}).WithError(err).Error("failed to publish on bus")
	}
}

// PublishGameEvent emits a game-events message (phase changed, player died,
// game started/ended) locally and on the bus.
func (b *Broadcaster) PublishGameEvent(ctx context.Context, gameID string, msgType bus.MessageType, data any) {
	b.publish(ctx, bus.ChannelGameEvents, gameID, msgType, data)
}

// PublishGameChat emits a chat message on one of the game's chat channels.
func (b *Broadcaster) PublishGameChat(ctx context.Context, gameID, channel string, data any) {
	b.publish(ctx, bus.ChannelGameChat, chatTopicKey(gameID, channel), bus.MessageChat, data)
}

// PublishRoomUpdate emits a room membership update.
func (b *Broadcaster) PublishRoomUpdate(ctx context.Context, roomID string, data any) {
	b.publish(ctx, bus.ChannelRoomUpdates, roomTopicKey(roomID), bus.MessageRoomUpdate, data)
}

// HandleBusMessage relays a peer instance's message into the local hub.
// Wire it to bus.Run; own-origin messages are already filtered there.
func (b *Broadcaster) HandleBusMessage(channel string, envelope bus.Envelope) {
	frame, err := json.Marshal(clientMessage{Type: envelope.Type, Data: envelope.Data})
	if err != nil {
		b.log.WithError(err).Error("failed to encode relayed frame")
		return
	}
	b.hub.Publish(envelope.Key, frame)
}
