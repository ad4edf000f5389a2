package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/JiNookk/mafia-server/internal/game"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	NightDurationSeconds     int
	DayDurationSeconds       int
	VoteDurationSeconds      int
	DefenseDurationSeconds   int
	ResultDurationSeconds    int
	SchedulerIntervalMillis  int
	LockTTLSeconds           int
	LockRetryAttempts        int
	LockRetryDelayMillis     int
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		NightDurationSeconds:     30,
		DayDurationSeconds:       30,
		VoteDurationSeconds:      10,
		DefenseDurationSeconds:   10,
		ResultDurationSeconds:    10,
		SchedulerIntervalMillis:  1000,
		LockTTLSeconds:           10,
		LockRetryAttempts:        50,
		LockRetryDelayMillis:     100,
		RedisAddr:                "localhost:6379",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("NIGHT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.NightDurationSeconds = value
		}
	}
	if raw := os.Getenv("DAY_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DayDurationSeconds = value
		}
	}
	if raw := os.Getenv("VOTE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.VoteDurationSeconds = value
		}
	}
	if raw := os.Getenv("DEFENSE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefenseDurationSeconds = value
		}
	}
	if raw := os.Getenv("RESULT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ResultDurationSeconds = value
		}
	}
	if raw := os.Getenv("SCHEDULER_INTERVAL_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SchedulerIntervalMillis = value
		}
	}
	if raw := os.Getenv("LOCK_TTL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LockTTLSeconds = value
		}
	}
	if raw := os.Getenv("LOCK_RETRY_ATTEMPTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.LockRetryAttempts = value
		}
	}
	if raw := os.Getenv("LOCK_RETRY_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LockRetryDelayMillis = value
		}
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	return cfg
}

// PhaseDurations maps each phase to its configured duration in seconds.
func (c Config) PhaseDurations() map[game.Phase]int {
	return map[game.Phase]int{
		game.PhaseNight:   c.NightDurationSeconds,
		game.PhaseDay:     c.DayDurationSeconds,
		game.PhaseVote:    c.VoteDurationSeconds,
		game.PhaseDefense: c.DefenseDurationSeconds,
		game.PhaseResult:  c.ResultDurationSeconds,
	}
}
