package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/JiNookk/mafia-server/internal/bus"
	"github.com/JiNookk/mafia-server/internal/config"
	"github.com/JiNookk/mafia-server/internal/game"
	"github.com/JiNookk/mafia-server/internal/lock"
)

// memStore is an in-memory Storage with the same conditional-write
// semantics as the database implementation.
type memStore struct {
	mu      sync.Mutex
	games   map[string]game.State
	players map[string][]game.Player
	actions map[string][]game.Action
	events  []storedEvent
}

type storedEvent struct {
	GameID  string
	Type    string
	Payload []byte
}

func newMemStore() *memStore {
	return &memStore{
		games:   make(map[string]game.State),
		players: make(map[string][]game.Player),
		actions: make(map[string][]game.Action),
	}
}

func (m *memStore) CreateGame(_ context.Context, state game.State, players []game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[state.ID] = state
	m.players[state.ID] = append([]game.Player(nil), players...)
	return nil
}

func (m *memStore) GetGame(_ context.Context, gameID string) (game.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.games[gameID]
	if !ok {
		return game.State{}, game.ErrNotFound
	}
	return state, nil
}

func (m *memStore) FindActiveGameByRoomID(_ context.Context, roomID string) (game.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, state := range m.games {
		if state.RoomID == roomID && !state.Finished() {
			return state, nil
		}
	}
	return game.State{}, game.ErrNotFound
}

func (m *memStore) FindActiveGames(_ context.Context) ([]game.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []game.State
	for _, state := range m.games {
		if !state.Finished() {
			active = append(active, state)
		}
	}
	return active, nil
}

func (m *memStore) UpdateGamePhase(_ context.Context, state game.State, prevPhase game.Phase, prevDay int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.games[state.ID]
	if !ok {
		return game.ErrNotFound
	}
	if current.Finished() || current.Phase != prevPhase || current.DayCount != prevDay {
		return game.ErrStaleTransition
	}
	m.games[state.ID] = state
	return nil
}

func (m *memStore) GetPlayer(_ context.Context, gameID, userID string) (game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, player := range m.players[gameID] {
		if player.UserID == userID {
			return player, nil
		}
	}
	return game.Player{}, game.ErrNotFound
}

func (m *memStore) ListPlayers(_ context.Context, gameID string) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Player(nil), m.players[gameID]...), nil
}

func (m *memStore) KillPlayer(_ context.Context, gameID, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := m.players[gameID]
	for i, player := range players {
		if player.UserID == userID && player.IsAlive {
			players[i] = player.Die(at)
		}
	}
	return nil
}

func (m *memStore) ReplaceAction(_ context.Context, action game.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.actions[action.GameID][:0]
	for _, existing := range m.actions[action.GameID] {
		if existing.DayCount == action.DayCount &&
			existing.Type == action.Type &&
			existing.ActorUserID == action.ActorUserID {
			continue
		}
		kept = append(kept, existing)
	}
	m.actions[action.GameID] = append(kept, action)
	return nil
}

func (m *memStore) ActionsFor(_ context.Context, gameID string, dayCount int, actionType game.ActionType) ([]game.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Action
	for _, action := range m.actions[gameID] {
		if action.DayCount == dayCount && action.Type == actionType {
			out = append(out, action)
		}
	}
	return out, nil
}

func (m *memStore) ActionsByActor(_ context.Context, gameID, actorUserID string, actionType game.ActionType) ([]game.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Action
	for _, action := range m.actions[gameID] {
		if action.ActorUserID == actorUserID && action.Type == actionType {
			out = append(out, action)
		}
	}
	return out, nil
}

func (m *memStore) AppendEvent(_ context.Context, gameID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, storedEvent{GameID: gameID, Type: eventType, Payload: raw})
	return nil
}

// setGame force-writes state, bypassing the conditional check. Test setup
// only.
func (m *memStore) setGame(state game.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[state.ID] = state
}

func (m *memStore) setPlayers(gameID string, players []game.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[gameID] = append([]game.Player(nil), players...)
}

// fakeBus records published envelopes instead of touching redis.
type fakeBus struct {
	mu        sync.Mutex
	published []fakePublication
}

type fakePublication struct {
	Channel  string
	Envelope bus.Envelope
}

func (f *fakeBus) Publish(_ context.Context, channel string, envelope bus.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakePublication{Channel: channel, Envelope: envelope})
	return nil
}

func (f *fakeBus) countType(msgType bus.MessageType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, pub := range f.published {
		if pub.Envelope.Type == msgType {
			n++
		}
	}
	return n
}

// memKV backs the locker in tests with SetNX semantics.
type memKV struct {
	mu      sync.Mutex
	entries map[string]kvEntry
}

type kvEntry struct {
	value     string
	expiresAt time.Time
}

func newMemKV() *memKV {
	return &memKV{entries: make(map[string]kvEntry)}
}

func (m *memKV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		return false, nil
	}
	m.entries[key] = kvEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", nil
	}
	return entry.value, nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func testConfig() config.Config {
	return config.Default()
}

// newTestServer builds a fully-wired server over in-memory fakes. Callers
// that simulate peer instances share the store and KV across servers.
func newTestServer(t *testing.T, store *memStore, kv lock.KV) (*Server, *fakeBus) {
	t.Helper()
	eventBus := &fakeBus{}
	locker := lock.New(kv, 10*time.Second, 50, time.Millisecond)
	srv := New(store, locker, NewBroadcaster(eventBus), testConfig())
	return srv, eventBus
}

func memberIDs() []string {
	return []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
}

func playersByRole(t *testing.T, store *memStore, gameID string) (mafia []game.Player, doctor, police game.Player, citizens []game.Player) {
	t.Helper()
	players, err := store.ListPlayers(context.Background(), gameID)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	for _, player := range players {
		switch player.Role {
		case game.RoleMafia:
			mafia = append(mafia, player)
		case game.RoleDoctor:
			doctor = player
		case game.RolePolice:
			police = player
		default:
			citizens = append(citizens, player)
		}
	}
	return mafia, doctor, police, citizens
}
