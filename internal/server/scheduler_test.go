package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JiNookk/mafia-server/internal/bus"
	"github.com/JiNookk/mafia-server/internal/game"
)

func TestConcurrentSchedulersAdvanceOnce(t *testing.T) {
	store := newMemStore()
	kv := newMemKV()
	srvA, busA := newTestServer(t, store, kv)
	srvB, busB := newTestServer(t, store, kv)
	ctx := context.Background()

	state, err := srvA.StartGame(ctx, "room-1", memberIDs())
	if err != nil {
		t.Fatalf("start game: %v", err)
	}

	expired := state
	expired.PhaseStartTime = time.Now().UTC().Add(-time.Minute)
	store.setGame(expired)

	var wg sync.WaitGroup
	for _, srv := range []*Server{srvA, srvB} {
		wg.Add(1)
		go func(srv *Server) {
			defer wg.Done()
			if err := srv.advanceExpired(ctx, state.ID); err != nil {
				t.Errorf("advance expired: %v", err)
			}
		}(srv)
	}
	wg.Wait()

	after, err := store.GetGame(ctx, state.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if after.Phase != game.PhaseDay || after.DayCount != 1 {
		t.Fatalf("expected exactly one advance to DAY day 1, got %s day %d", after.Phase, after.DayCount)
	}
	changed := busA.countType(bus.MessagePhaseChanged) + busB.countType(bus.MessagePhaseChanged)
	if changed != 1 {
		t.Fatalf("expected exactly 1 PHASE_CHANGED across instances, got %d", changed)
	}
}

func TestAdvanceExpiredSkipsFreshPhase(t *testing.T) {
	store := newMemStore()
	srv, eventBus := newTestServer(t, store, newMemKV())
	ctx := context.Background()

	state, err := srv.StartGame(ctx, "room-1", memberIDs())
	if err != nil {
		t.Fatalf("start game: %v", err)
	}

	if err := srv.advanceExpired(ctx, state.ID); err != nil {
		t.Fatalf("advance on fresh phase should no-op, got %v", err)
	}

	after, err := store.GetGame(ctx, state.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if after.Phase != game.PhaseNight {
		t.Fatalf("fresh phase must not advance, got %s", after.Phase)
	}
	if n := eventBus.countType(bus.MessagePhaseChanged); n != 0 {
		t.Fatalf("no PHASE_CHANGED expected, got %d", n)
	}
}

func TestSchedulerTickDispatchesExpiredGames(t *testing.T) {
	store := newMemStore()
	srv, eventBus := newTestServer(t, store, newMemKV())
	ctx := context.Background()

	state, err := srv.StartGame(ctx, "room-1", memberIDs())
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	expired := state
	expired.PhaseStartTime = time.Now().UTC().Add(-time.Minute)
	store.setGame(expired)

	scheduler := NewScheduler(srv, time.Millisecond)
	scheduler.tick(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		after, err := store.GetGame(ctx, state.ID)
		if err != nil {
			t.Fatalf("get game: %v", err)
		}
		if after.Phase == game.PhaseDay {
			if n := eventBus.countType(bus.MessagePhaseChanged); n != 1 {
				t.Fatalf("expected 1 PHASE_CHANGED, got %d", n)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scheduler never advanced the expired game")
}

func TestSchedulerSkipsGameAlreadyInFlight(t *testing.T) {
	srv, _ := newTestServer(t, newMemStore(), newMemKV())
	scheduler := NewScheduler(srv, time.Millisecond)

	if !scheduler.markInFlight("g1") {
		t.Fatalf("first mark should succeed")
	}
	if scheduler.markInFlight("g1") {
		t.Fatalf("second mark should be rejected")
	}
	scheduler.clearInFlight("g1")
	if !scheduler.markInFlight("g1") {
		t.Fatalf("mark after clear should succeed")
	}
}
