package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/JiNookk/mafia-server/internal/bus"
	"github.com/JiNookk/mafia-server/internal/config"
	"github.com/JiNookk/mafia-server/internal/db"
	"github.com/JiNookk/mafia-server/internal/lock"
	"github.com/JiNookk/mafia-server/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	if err := db.Migrate(conn); err != nil {
		logrus.WithError(err).Fatal("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}

	locker := lock.New(
		lock.NewRedisKV(redisClient),
		time.Duration(cfg.LockTTLSeconds)*time.Second,
		cfg.LockRetryAttempts,
		time.Duration(cfg.LockRetryDelayMillis)*time.Millisecond,
	)
	eventBus := bus.New(redisClient)
	broadcaster := server.NewBroadcaster(eventBus)
	srv := server.New(db.NewStore(conn), locker, broadcaster, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eventBus.Run(ctx, broadcaster.HandleBusMessage)

	scheduler := server.NewScheduler(srv, time.Duration(cfg.SchedulerIntervalMillis)*time.Millisecond)
	go scheduler.Run(ctx)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		logrus.WithField("addr", addr).Info("mafia server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	if err := redisClient.Close(); err != nil {
		logrus.WithError(err).Error("failed to close redis client")
	}
}
