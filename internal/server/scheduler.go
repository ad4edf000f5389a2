package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/lock"
)

// Scheduler drives automatic phase advancement. Every instance runs one;
// the distributed lock decides which instance actually transitions an
// expired game. Failures are logged and retried on a later tick.
type Scheduler struct {
	server   *Server
	interval time.Duration
	log      *logrus.Entry

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewScheduler(server *Server, interval time.Duration) *Scheduler {
	return &Scheduler{
		server:   server,
		interval: interval,
		log:      logrus.WithField("component", "scheduler"),
		inFlight: make(map[string]struct{}),
	}
}

// Run ticks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("phase scheduler running")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("phase scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick scans unfinished games and dispatches every expired one that is not
// already being processed by this instance.
func (s *Scheduler) tick(ctx context.Context) {
	games, err := s.server.store.FindActiveGames(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to scan active games")
		return
	}
	now := time.Now().UTC()
	for _, state := range games {
		if !state.PhaseExpired(now) {
			continue
		}
		if !s.markInFlight(state.ID) {
			continue
		}
		go s.processExpired(ctx, state.ID)
	}
}

func (s *Scheduler) processExpired(ctx context.Context, gameID string) {
	defer s.clearInFlight(gameID)

	err := s.server.advanceExpired(ctx, gameID)
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrNotAcquired):
		// Another instance owns this transition; its result lands in the
		// shared store either way.
		s.log.WithField("game_id", gameID).Debug("transition lock held elsewhere, skipping tick")
	default:
		s.log.WithField("game_id", gameID).WithError(err).Error("auto phase transition failed")
	}
}

func (s *Scheduler) markInFlight(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[gameID]; busy {
		return false
	}
	s.inFlight[gameID] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, gameID)
}
