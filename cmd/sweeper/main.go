package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/internal/sweeper"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/metrics"
	"github.com/angelmondragon/fleetshop-backend/pkg/migrate"
	"github.com/angelmondragon/fleetshop-backend/pkg/pubsub"
	"github.com/angelmondragon/fleetshop-backend/pkg/redis"
)

const serviceName = "sweeper"

func main() {
	once := flag.Bool("once", false, "run a single sweep cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
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
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	var events pubsub.EventPublisher = pubsub.NoopPublisher{}
	if strings.TrimSpace(cfg.PubSub.InventoryTopic) != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}()
		events = pubsub.NewEventPublisher(psClient.InventoryPublisher())
	} else {
		logg.Warn(ctx, "inventory topic not configured, low-stock alerts are logged only")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sweepMetrics := metrics.NewSweepMetrics(registry)

	lowStock, err := sweeper.NewLowStockJob(
		parts.NewRepository(dbClient.DB()),
		parts.NewLowStockNotifier(events, logg),
		sweepMetrics,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create low stock job", err)
		os.Exit(1)
	}

	lock, err := sweeper.NewRedisLock(redisClient, redisClient.SweepLockKey(lockName(cfg.App.Env)), cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweeper.NewService(sweeper.ServiceParams{
		Logger:     logg,
		Registry:   sweeper.NewRegistry(lowStock),
		Lock:       lock,
		Metrics:    sweepMetrics,
		Interval:   cfg.Sweeper.Interval,
		JobTimeout: cfg.Sweeper.JobTimeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweeper", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := service.RunOnce(runCtx); err != nil {
			logg.Error(ctx, "sweep cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if addr := strings.TrimSpace(cfg.Sweeper.MetricsAddr); addr != "" {
		serveMetrics(runCtx, logg, addr, registry)
	}

	logg.Info(ctx, "starting sweeper")
	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sweeper shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("inventory:%s", strings.ToLower(env))
}
