package config

import (
	"testing"

	"github.com/JiNookk/mafia-server/internal/game"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NIGHT_SECONDS", "45")
	t.Setenv("LOCK_TTL_SECONDS", "5")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DAY_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.NightDurationSeconds != 45 {
		t.Fatalf("expected night 45, got %d", cfg.NightDurationSeconds)
	}
	if cfg.LockTTLSeconds != 5 {
		t.Fatalf("expected lock ttl 5, got %d", cfg.LockTTLSeconds)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
	if cfg.DayDurationSeconds != Default().DayDurationSeconds {
		t.Fatalf("bad value must keep the default, got %d", cfg.DayDurationSeconds)
	}
}

func TestPhaseDurations(t *testing.T) {
	durations := Default().PhaseDurations()
	for _, phase := range []game.Phase{game.PhaseNight, game.PhaseDay, game.PhaseVote, game.PhaseDefense, game.PhaseResult} {
		if durations[phase] <= 0 {
			t.Fatalf("missing duration for %s", phase)
		}
	}
}
