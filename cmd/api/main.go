package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardrelay/cardrelay/internal/api"
	"github.com/cardrelay/cardrelay/internal/cache"
	"github.com/cardrelay/cardrelay/internal/config"
	"github.com/cardrelay/cardrelay/internal/db"
	"github.com/cardrelay/cardrelay/internal/events"
	"github.com/cardrelay/cardrelay/internal/logger"
	"github.com/cardrelay/cardrelay/internal/metrics"
	"github.com/cardrelay/cardrelay/internal/provider"
	"github.com/cardrelay/cardrelay/internal/repository/postgres"
	"github.com/cardrelay/cardrelay/internal/services"
	"github.com/cardrelay/cardrelay/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	// refuse to start without partner credentials: an unsigned request
	// is silently mis-validated by the provider, not rejected loudly
	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(dbPool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	prov := provider.New(cfg)

	var pub services.EventPublisher
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.ReconciledTopic)
		defer kp.Close()
		pub = kp
	}

	var sc services.StatusCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, status cache disabled", "err", err)
		} else {
			sc = cache.NewStatusCache(rdb, 10*time.Minute)
		}
	}

	redemptionSvc := services.NewRedemptionService(
		repos.Redemptions,
		repos.AuditLogs,
		prov,
		pub,
		sc,
		wp,
		cfg.NotFoundStatus,
	)

	metrics.Init()
	r := api.NewRouter(cfg, redemptionSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "provider", cfg.ProviderURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
