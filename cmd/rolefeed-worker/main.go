package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db"
	"github.com/minimartapp/minimart-backend/pkg/idempotency"
	"github.com/minimartapp/minimart-backend/pkg/instance"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/pubsub"
	"github.com/minimartapp/minimart-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "rolefeed-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "rolefeed-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	subscription := pubsubClient.StaffSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "staff subscription", errors.New("subscription not configured"))
	}

	cacheStore, err := session.NewCacheStore(redisClient, cfg.JWT.RefreshTokenTTL())
	requireResource(ctx, logg, "session cache store", err)
	durableStore, err := session.NewDurableStore(dbClient.DB())
	requireResource(ctx, logg, "session durable store", err)
	recorder, err := session.NewRecorder(cacheStore, durableStore)
	requireResource(ctx, logg, "session recorder", err)

	hub, err := rolefeed.NewHub(durableStore, logg, nil)
	requireResource(ctx, logg, "role feed hub", err)

	transport, err := rolefeed.NewRedisTransport(redisClient)
	requireResource(ctx, logg, "role feed transport", err)
	bridge, err := rolefeed.NewBridge(hub, transport, cfg.RoleFeed.Channel, logg)
	requireResource(ctx, logg, "role feed bridge", err)

	guard, err := idempotency.NewManager(redisClient, cfg.PubSub.ProcessedTTL)
	requireResource(ctx, logg, "idempotency guard", err)

	watcher, err := rolefeed.NewWatcher(subscription, recorder, hub, bridge, guard, logg)
	requireResource(ctx, logg, "role feed watcher", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "rolefeed worker ready")

	go func() {
		if err := bridge.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "role feed bridge stopped", err)
		}
	}()

	if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "rolefeed worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
