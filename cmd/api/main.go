package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/minimartapp/minimart-backend/api/controllers"
	"github.com/minimartapp/minimart-backend/api/routes"
	"github.com/minimartapp/minimart-backend/internal/auth"
	"github.com/minimartapp/minimart-backend/internal/invitations"
	"github.com/minimartapp/minimart-backend/internal/passwordreset"
	"github.com/minimartapp/minimart-backend/internal/products"
	"github.com/minimartapp/minimart-backend/internal/profiles"
	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/internal/staff"
	"github.com/minimartapp/minimart-backend/internal/stores"
	authsession "github.com/minimartapp/minimart-backend/pkg/auth/session"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db"
	"github.com/minimartapp/minimart-backend/pkg/env"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/metrics"
	"github.com/minimartapp/minimart-backend/pkg/migrate"
	"github.com/minimartapp/minimart-backend/pkg/pubsub"
	"github.com/minimartapp/minimart-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sessionMetrics := metrics.NewSessionMetrics(registry)

	accessTTL := time.Duration(cfg.JWT.ExpirationMinutes) * time.Minute
	sessionManager, err := authsession.NewManager(redisClient, cfg.JWT.RefreshTokenTTL(), accessTTL)
	requireResource(ctx, logg, "session manager", err)

	cacheStore, err := session.NewCacheStore(redisClient, cfg.JWT.RefreshTokenTTL())
	requireResource(ctx, logg, "session cache store", err)
	durableStore, err := session.NewDurableStore(dbClient.DB())
	requireResource(ctx, logg, "session durable store", err)
	recorder, err := session.NewRecorder(cacheStore, durableStore)
	requireResource(ctx, logg, "session recorder", err)

	profileRepo := profiles.NewRepository(dbClient.DB())
	staffRepo := staff.NewRepository(dbClient.DB())
	storeRepo := stores.NewRepository(dbClient.DB())

	reconciler, err := session.NewReconciler(session.ReconcilerParams{
		Cache:     cacheStore,
		Durable:   durableStore,
		Directory: staffRepo,
		Logger:    logg,
		Metrics:   sessionMetrics,
	})
	requireResource(ctx, logg, "session reconciler", err)

	hub, err := rolefeed.NewHub(durableStore, logg, sessionMetrics)
	requireResource(ctx, logg, "role feed hub", err)

	transport, err := rolefeed.NewRedisTransport(redisClient)
	requireResource(ctx, logg, "role feed transport", err)
	bridge, err := rolefeed.NewBridge(hub, transport, cfg.RoleFeed.Channel, logg)
	requireResource(ctx, logg, "role feed bridge", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Profiles:    profileRepo,
		Staff:       staffRepo,
		Stores:      storeRepo,
		Sessions:    sessionManager,
		Recorder:    recorder,
		JWT:         cfg.JWT,
		PasswordCfg: cfg.Password,
		VerifyCfg:   cfg.EmailVerification,
		Logger:      logg,
	})
	requireResource(ctx, logg, "auth service", err)

	storesService, err := stores.NewService(dbClient, storeRepo, staffRepo)
	requireResource(ctx, logg, "stores service", err)

	staffParams := staff.ServiceParams{
		Repo:     staffRepo,
		Recorder: recorder,
		Feed:     hub,
		Relay:    bridge,
		Logger:   logg,
	}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		publisher, err := rolefeed.NewRemotePublisher(pubsubClient.StaffPublisher())
		requireResource(ctx, logg, "staff event publisher", err)
		staffParams.Publisher = publisher
	}
	staffService, err := staff.NewService(staffParams)
	requireResource(ctx, logg, "staff service", err)

	invitationsService, err := invitations.NewService(invitations.ServiceParams{
		Tx:          dbClient,
		Repo:        invitations.NewRepository(dbClient.DB()),
		Staff:       staffRepo,
		PasswordCfg: cfg.Password,
		InviteCfg:   cfg.Invitations,
		BaseURL:     cfg.App.BaseURL,
		Logger:      logg,
	})
	requireResource(ctx, logg, "invitations service", err)

	productsService, err := products.NewService(products.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "products service", err)

	passwordResetService, err := passwordreset.NewService(passwordreset.ServiceParams{
		Repo:        passwordreset.NewRepository(dbClient.DB()),
		Profiles:    profileRepo,
		Staff:       staffRepo,
		PasswordCfg: cfg.Password,
		ResetCfg:    cfg.PasswordReset,
		Logger:      logg,
	})
	requireResource(ctx, logg, "password reset service", err)

	router := routes.NewRouter(cfg, logg, redisClient, registry, routes.Services{
		Auth:          authService,
		Stores:        storesService,
		Staff:         staffService,
		Invitations:   invitationsService,
		Products:      productsService,
		PasswordReset: passwordResetService,
		Reconciler:    reconciler,
		RoleHub:       hub,
		Sessions:      sessionManager,
		Health: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	// peer bridge runs for the life of the process; role changes made by
	// other instances land on the local hub through it
	go func() {
		if err := bridge.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "role feed bridge stopped", err)
		}
	}()

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
